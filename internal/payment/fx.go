package payment

import (
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/smallbiznis/dairyos/internal/clock"
	"github.com/smallbiznis/dairyos/internal/config"
	"github.com/smallbiznis/dairyos/internal/payment/adapters"
	razorpayadapter "github.com/smallbiznis/dairyos/internal/payment/adapters/razorpay"
	"github.com/smallbiznis/dairyos/internal/payment/repository"
	"github.com/smallbiznis/dairyos/internal/payment/service"
	razorpayclient "github.com/smallbiznis/dairyos/internal/providers/razorpay"
)

func newRegistry(cfg config.Config, c clock.Clock) *adapters.Registry {
	skew := time.Duration(cfg.WebhookSkewSeconds) * time.Second
	return adapters.NewRegistry(
		razorpayadapter.New(cfg.RazorpayWebhookSecret, skew, c),
	)
}

func newOrderClient(cfg config.Config) service.OrderCreator {
	return razorpayclient.NewClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
}

func newIdempotencyCache(cfg config.Config, c clock.Clock) service.IdempotencyCache {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return service.NewMemoryIdempotencyCache(c)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	return service.NewRedisIdempotencyCache(client)
}

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(newRegistry),
	fx.Provide(newOrderClient),
	fx.Provide(newIdempotencyCache),
	fx.Provide(service.New),
	fx.Provide(service.NewWebhookService),
)
