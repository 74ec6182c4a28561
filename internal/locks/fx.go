package locks

import (
	"strings"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/dairyos/internal/clock"
	"github.com/smallbiznis/dairyos/internal/config"
)

// NewLocker chooses the lease backend: redis when an address is
// configured, otherwise an in-process map. A single-node deployment
// works without redis; multi-worker deployments must configure it.
func NewLocker(cfg config.Config, c clock.Clock, log *zap.Logger) Locker {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		log.Warn("redis addr not configured, using in-process locks")
		return NewMemoryLocker(c)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	return NewRedisLocker(client)
}

var Module = fx.Module("locks",
	fx.Provide(NewLocker),
)
