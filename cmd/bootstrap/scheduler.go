package bootstrap

import (
	"context"
	"log/slog"

	"spotmarket/internal/pkg/clock"
	"spotmarket/internal/pkg/config"
	"spotmarket/internal/scheduler"
	"spotmarket/internal/usecase/commands"
	"spotmarket/internal/usecase/shared"

	"go.uber.org/fx"
)

var SchedulerModule = fx.Module("scheduler",
	fx.Invoke(StartSweeper),
)

// StartSweeper runs the auto-transition sweeper for the lifetime of the
// process when SCHEDULER_ENABLED is set. Exactly one process in the fleet
// should carry the flag.
func StartSweeper(lc fx.Lifecycle, cfg config.SchedulerConfig, uow shared.UnitOfWork, cache commands.AvailabilityCache, clk clock.Clock) {
	if !cfg.Enabled {
		slog.Info("booking sweeper disabled")
		return
	}

	sweeper := scheduler.NewSweeper(uow, cache, clk, cfg.Interval)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				defer close(done)
				sweeper.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
