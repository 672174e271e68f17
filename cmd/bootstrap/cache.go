package bootstrap

import (
	"context"

	"spotmarket/internal/infra/cache"
	"spotmarket/internal/pkg/config"
	"spotmarket/internal/usecase/commands"

	"go.uber.org/fx"
)

var CacheModule = fx.Module("cache",
	fx.Provide(
		fx.Annotate(
			NewCache,
			fx.As(new(commands.AvailabilityCache)),
		),
	),
)

func NewCache(lc fx.Lifecycle, cfg config.RedisConfig) *cache.RedisInvalidator {
	invalidator := cache.NewRedisInvalidator(cfg)

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			invalidator.Close()
			return nil
		},
	})

	return invalidator
}
