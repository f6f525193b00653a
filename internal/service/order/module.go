package order

import (
	"context"

	"go.uber.org/fx"
)

// Module provides the ordering core to Fx.
var Module = fx.Options(
	fx.Provide(NewMetrics, NewAllocator, NewVerifier, NewService),
	fx.Invoke(func(lc fx.Lifecycle, svc *Service) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return svc.Drain(ctx)
			},
		})
	}),
)
