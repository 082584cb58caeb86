package main

import (
	"context"
	"log/slog"
	"os"

	"agency/config"
	"agency/internal/delivery"
	"agency/internal/delivery/api"
	"agency/internal/delivery/api/middleware"
	"agency/internal/delivery/api/router/handler"
	"agency/internal/delivery/live"
	"agency/internal/infra/auth"
	"agency/internal/infra/blob"
	firebaseinfra "agency/internal/infra/firebase"
	logs "agency/internal/infra/log"
	"agency/internal/infra/metrics"
	"agency/internal/infra/persistence"
	"agency/internal/infra/pubsub"
	"agency/internal/infra/qrcode"
	"agency/internal/livequery"
	"agency/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle
	fx.Shutdowner

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		persistence.Module,
		auth.Module,
		pubsub.Module,
		metrics.Module,
		injectService(),
		injectUsecase(),
		injectMiddleware(),
		injectHandler(),
		injectDelivery(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		firebaseinfra.NewAppProvider,
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			blob.NewBlobStore,
			qrcode.NewQRCodeServiceFromConfig,
			livequery.NewMetrics,
			livequery.NewManager,
		),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewSessionService,
			impl.NewProfileService,
			impl.NewRecordService,
			impl.NewCommentService,
			impl.NewNotificationService,
			impl.NewFileService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewAuthMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewSessionHandler,
			handler.NewProfileHandler,
			handler.NewRecordHandler,
			handler.NewNotificationHandler,
			handler.NewFileHandler,
			live.NewHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				api.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))

				// Trigger graceful shutdown to execute all OnStop hooks
				if shutdownErr := params.Shutdown(); shutdownErr != nil {
					slog.Error("Failed to shutdown gracefully", slog.Any("error", shutdownErr))
					os.Exit(1)
				}
			}
		}()
	}
}
