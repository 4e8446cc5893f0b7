package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ed-residency/resident-scheduler/internal/domain"
	"github.com/ed-residency/resident-scheduler/internal/handler"
)

// 为调用排班 API 签发令牌，密钥与 api 服务的 JWT_SECRET 一致
func main() {
	var subject, role string
	var ttl time.Duration

	flag.StringVar(&subject, "sub", "", "令牌所属用户")
	flag.StringVar(&role, "role", string(domain.RoleChiefResident), "角色 (chief_resident 或 admin)")
	flag.DurationVar(&ttl, "ttl", 14*24*time.Hour, "有效期")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.Error("未设置 JWT_SECRET")
		os.Exit(1)
	}
	if subject == "" {
		logger.Error("请通过 -sub 指定用户")
		os.Exit(1)
	}
	if r := domain.Role(role); r != domain.RoleChiefResident && r != domain.RoleAdmin {
		logger.Error("不支持的角色", "role", role)
		os.Exit(1)
	}

	token, err := handler.SignToken(secret, subject, domain.Role(role), ttl)
	if err != nil {
		logger.Error("无法签发令牌", "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
