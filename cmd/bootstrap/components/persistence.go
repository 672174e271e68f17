package components

import (
	"spotmarket/internal/infra/readstore"
	"spotmarket/internal/infra/uow"
	"spotmarket/internal/usecase/queries"

	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	fx.Provide(
		// NewPostgresUoW already returns the shared.UnitOfWork interface.
		uow.NewPostgresUoW,
		fx.Annotate(
			readstore.NewBookingReadStore,
			fx.As(new(queries.BookingReadStore)),
		),
	),
)
