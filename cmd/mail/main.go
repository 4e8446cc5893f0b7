package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ed-residency/resident-scheduler/internal/config"
	"github.com/ed-residency/resident-scheduler/internal/domain"
	"github.com/ed-residency/resident-scheduler/internal/mail"
	"github.com/ed-residency/resident-scheduler/internal/queue"
	amqp "github.com/rabbitmq/amqp091-go"
	gomail "github.com/wneessen/go-mail"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 读取配置文件
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 创建邮件客户端
	 **********************************************/
	client, err := gomail.NewClient(cfg.Email.SMTP.Host,
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithSSL(),
		gomail.WithPort(cfg.Email.SMTP.Port),
		gomail.WithUsername(cfg.Email.SMTP.Username),
		gomail.WithPassword(cfg.Email.SMTP.Password),
	)
	if err != nil {
		logger.Error("无法创建邮件客户端", slog.String("error", err.Error()))
		return
	}
	defer client.Close()

	// 验证邮件客户端是否连接成功
	clientDialCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Email.SMTP.DialTimeout)*time.Second)
	defer cancel()
	if err := client.DialWithContext(clientDialCtx); err != nil {
		logger.Error("无法连接到邮件服务器", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 连接 RabbitMQ
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 RabbitMQ", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	// 创建通道
	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法创建通道", slog.String("error", err.Error()))
		return
	}
	defer ch.Close()

	if err := queue.Declare(ch, cfg.RabbitMQ.EmailQueue); err != nil {
		logger.Error("无法声明队列", slog.String("error", err.Error()))
		return
	}

	handle := func(ctx context.Context, body []byte) (bool, error) {
		logger.Info("收到消息", slog.String("message", string(body)))

		mailMessage := domain.MailMessage{}
		if err := json.Unmarshal(body, &mailMessage); err != nil {
			logger.Error("邮件信息反序列化失败", slog.String("error", err.Error()))
			return false, err
		}

		msg, err := mail.BuildMessage(cfg.Email.SMTP.Username, mailMessage)
		if err != nil {
			logger.Error("无法构建邮件", slog.String("error", err.Error()))
			return false, err
		}

		if err := client.DialAndSendWithContext(ctx, msg); err != nil {
			logger.Error("邮件发送失败", slog.String("error", err.Error()))
			return true, err // 将消息重新入队
		}
		return false, nil
	}

	// 监听 CTRL+C
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("等待消息...（按 CTRL+C 退出）")
	if err := queue.Consume(ctx, ch, cfg.RabbitMQ.EmailQueue, handle); err != nil {
		logger.Error("无法消费消息", slog.String("error", err.Error()))
		return
	}

	slog.Info("mail worker 已成功关闭")
}
