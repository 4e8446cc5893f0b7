// Package mail 根据队列中的邮件消息构建邮件
package mail

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/ed-residency/resident-scheduler/internal/domain"
	gomail "github.com/wneessen/go-mail"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"team": func(code string) string {
		tmpl, err := domain.ParseShiftTemplate(templateCodeOf(code))
		if err != nil {
			return ""
		}
		return tmpl.Team.Name()
	},
}).ParseFS(templateFS, "templates/*.html"))

// templateCodeOf 去掉班次代码末尾的日期
func templateCodeOf(shiftCode string) string {
	i := strings.LastIndex(shiftCode, "-")
	if i < 0 {
		return shiftCode
	}
	if _, err := time.Parse("20060102", shiftCode[i+1:]); err != nil {
		return shiftCode
	}
	return shiftCode[:i]
}

// BuildMessage 根据邮件类型渲染模板并构建邮件
func BuildMessage(from string, message domain.MailMessage) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("无法设置邮件发件人: %w", err)
	}
	if err := msg.To(message.To); err != nil {
		return nil, fmt.Errorf("无法设置邮件收件人: %w", err)
	}

	switch message.Type {
	case domain.MailTypeScheduleReady:
		data := domain.ScheduleReadyMailData{}
		if err := decodeData(message.Data, &data); err != nil {
			return nil, err
		}
		if err := msg.SetBodyHTMLTemplate(templates.Lookup("schedule_ready_email.html"), data); err != nil {
			return nil, fmt.Errorf("无法设置邮件正文: %w", err)
		}
		msg.Subject(fmt.Sprintf("急诊住院医排班 - 任务 %s 已完成", data.JobID))
	default:
		return nil, fmt.Errorf("不支持的邮件类型 %q", message.Type)
	}

	return msg, nil
}

// decodeData 把反序列化后的 map 转成具体的结构体
func decodeData(raw any, v any) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("邮件数据格式错误: %w", err)
	}
	return nil
}
