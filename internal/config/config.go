package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"330"` // 同步求解最多 5 分钟
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Solver struct {
		MaxTime int    `env:"MAX_TIME" envDefault:"300"` // 秒
		Workers int    `env:"WORKERS" envDefault:"0"`    // 0 表示使用 CPU 核数
		Seed    int64  `env:"SEED" envDefault:"-1"`      // 负数表示每次随机
		Backend string `env:"BACKEND" envDefault:"cp"`   // cp 或 pb
	} `envPrefix:"SOLVER_"`
	JWT struct {
		Expiration int    `env:"EXPIRATION" envDefault:"1209600"` // 14 天
		Secret     string `env:"SECRET,required"`
	} `envPrefix:"JWT_"`
	Email struct {
		SMTP struct {
			Username    string `env:"USERNAME,required"`
			Password    string `env:"PASSWORD,required"`
			Host        string `env:"HOST,required"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		ScheduleQueue  string `env:"SCHEDULE_QUEUE" envDefault:"schedule_queue"`
		EmailQueue     string `env:"EMAIL_QUEUE" envDefault:"email_queue"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host                string `env:"HOST" envDefault:"localhost"`
		Port                int    `env:"PORT" envDefault:"6379"`
		Password            string `env:"PASSWORD,required"`
		ConnectTimeout      int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		OperationExpiration int    `env:"OPERATION_EXPIRATION" envDefault:"10"`
		JobExpiration       int    `env:"JOB_EXPIRATION" envDefault:"86400"` // 1 天
	} `envPrefix:"REDIS_"`
}

func LoadConfig() (*Config, error) {
	return parse(env.Options{})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok && len(aggErr.Errors) > 0 {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	return cfg, nil
}

// SolverMaxTime 返回单次求解的时间上限
func (c *Config) SolverMaxTime() time.Duration {
	return time.Duration(c.Solver.MaxTime) * time.Second
}

// SolverSeed 返回固定的随机种子，未配置时返回 nil
func (c *Config) SolverSeed() *int64 {
	if c.Solver.Seed < 0 {
		return nil
	}
	seed := c.Solver.Seed
	return &seed
}
