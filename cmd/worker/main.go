package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ed-residency/resident-scheduler/internal/config"
	"github.com/ed-residency/resident-scheduler/internal/queue"
	"github.com/ed-residency/resident-scheduler/internal/repository"
	"github.com/ed-residency/resident-scheduler/internal/scheduler"
	"github.com/ed-residency/resident-scheduler/internal/worker"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
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
	 * 连接 redis
	 **********************************************/
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer rdb.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Redis.ConnectTimeout)*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Error("无法连接到 redis", slog.String("error", err.Error()))
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

	// 消费和投递使用不同的通道
	consumeCh, err := conn.Channel()
	if err != nil {
		logger.Error("无法创建通道", slog.String("error", err.Error()))
		return
	}
	defer consumeCh.Close()

	publishCh, err := conn.Channel()
	if err != nil {
		logger.Error("无法创建通道", slog.String("error", err.Error()))
		return
	}
	defer publishCh.Close()

	if err := queue.Declare(consumeCh, cfg.RabbitMQ.ScheduleQueue, cfg.RabbitMQ.EmailQueue); err != nil {
		logger.Error("无法声明队列", slog.String("error", err.Error()))
		return
	}

	backend, err := scheduler.BackendByName(cfg.Solver.Backend)
	if err != nil {
		logger.Error("无法创建求解后端", slog.String("error", err.Error()))
		return
	}

	w := worker.New(
		repository.NewRepository(cfg, rdb),
		queue.NewPublisher(publishCh, time.Duration(cfg.RabbitMQ.PublishTimeout)*time.Second),
		cfg.RabbitMQ.EmailQueue,
		scheduler.SolveOptions{
			MaxTime: cfg.SolverMaxTime(),
			Seed:    cfg.SolverSeed(),
			Workers: cfg.Solver.Workers,
			Backend: backend,
		},
	)

	// 监听 CTRL+C，取消正在进行的求解
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("等待排班任务...（按 CTRL+C 退出）", "queue", cfg.RabbitMQ.ScheduleQueue)
	if err := queue.Consume(ctx, consumeCh, cfg.RabbitMQ.ScheduleQueue, w.Handle); err != nil {
		logger.Error("无法消费消息", slog.String("error", err.Error()))
		return
	}

	slog.Info("schedule worker 已成功关闭")
}
