package app

import (
	"fmt"

	"github.com/yungbote/coursehub-backend/internal/platform/gcp"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"github.com/yungbote/coursehub-backend/internal/platform/redis"
	"github.com/yungbote/coursehub-backend/internal/platform/sendgrid"
)

type Clients struct {
	Media gcp.MediaStore
	Mail  sendgrid.Client
	Cache redis.Cache
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	media, err := gcp.NewMediaStore(log, cfg.Media)
	if err != nil {
		return Clients{}, fmt.Errorf("init media store: %w", err)
	}

	cache, err := redis.NewCache(log, cfg.RedisAddr)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis cache: %w", err)
	}

	return Clients{
		Media: media,
		Mail:  sendgrid.New(log, cfg.SendGrid),
		Cache: cache,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
}
