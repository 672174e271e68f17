package components

import (
	"spotmarket/internal/pkg/clock"
	"spotmarket/internal/usecase/commands"
	"spotmarket/internal/usecase/queries"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	fx.Provide(
		clock.NewRealClock,
		commands.NewBookingCommands,
		queries.NewBookingQueries,
	),
)
