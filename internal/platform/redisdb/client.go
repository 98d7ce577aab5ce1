package redisdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/studentdiary-backend/internal/platform/logger"
)

type Config struct {
	Addr        string        `envconfig:"REDIS_ADDR"`
	Password    string        `envconfig:"REDIS_PASSWORD"`
	DB          int           `envconfig:"REDIS_DB" default:"0"`
	DialTimeout time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
}

func (c Config) Enabled() bool { return strings.TrimSpace(c.Addr) != "" }

// New returns (nil, nil) when REDIS_ADDR is unset.
func New(ctx context.Context, cfg Config, log *logger.Logger) (*redis.Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})
	pctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info("Redis connected", "addr", cfg.Addr)
	return rdb, nil
}
