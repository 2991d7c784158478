package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/stocker-erp/stocker/configs"
	"github.com/stocker-erp/stocker/internal/application/usecase/customer"
	"github.com/stocker-erp/stocker/internal/application/usecase/invoice"
	"github.com/stocker-erp/stocker/internal/infra/database"
	"github.com/stocker-erp/stocker/internal/infra/sequence"
	"github.com/stocker-erp/stocker/internal/infra/web"
	"github.com/stocker-erp/stocker/internal/infra/web/handler"
	"github.com/stocker-erp/stocker/internal/infra/web/middleware"
	"github.com/stocker-erp/stocker/pkg/logger"
	"github.com/stocker-erp/stocker/pkg/metrics"
	"github.com/stocker-erp/stocker/pkg/otel"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config, err := configs.LoadConfig(".")
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(config.ServiceName, true)

	if config.OtelCollectorAddr != "" {
		shutdown, err := otel.InitProvider(ctx, config.ServiceName, config.ServiceVersion, config.OtelCollectorAddr)
		if err != nil {
			log.Error(ctx, "init tracing", logger.WithError(err))
			os.Exit(1)
		}
		defer shutdown()
	}

	db, err := database.Open(ctx, config.DSN())
	if err != nil {
		log.Error(ctx, "open database", logger.WithError(err))
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		log.Error(ctx, "run migrations", logger.WithError(err))
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	meters := metrics.NewPrometheusMetrics(registry, config.ServiceName)

	factory := database.NewFactory(db, database.NewDefaultRegistry(), log)
	numbers := sequence.NewGenerator(factory, log, meters)

	customers := handler.NewCustomerHandler(
		&customer.CreateMetricsDecorator{Next: customer.NewCreateUseCase(factory), Metrics: meters},
		customer.NewArchiveUseCase(factory),
		customer.NewRestoreUseCase(factory),
		&customer.ListMetricsDecorator{Next: customer.NewListUseCase(factory), Metrics: meters},
		log,
	)
	invoices := handler.NewInvoiceHandler(
		&invoice.CreateMetricsDecorator{Next: invoice.NewCreateUseCase(factory, numbers), Metrics: meters},
		invoice.NewGetUseCase(factory),
		log,
	)

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: config.RateLimitPerSecond,
		Burst:             config.RateLimitBurst,
		CleanupInterval:   time.Minute,
		ClientTimeout:     3 * time.Minute,
	})

	router := web.NewRouter(web.RouterDeps{
		ServiceName: config.ServiceName,
		Log:         log,
		Metrics:     meters,
		Registry:    registry,
		RateLimiter: limiter,
		Health:      handler.NewHealthHandler(config.ServiceName, config.ServiceVersion, handler.WithPostgres(db)),
		Customers:   customers,
		Invoices:    invoices,
	})

	server := &http.Server{
		Addr:              ":" + config.WebServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info(ctx, "http server listening", logger.String("port", config.WebServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "http server failed", logger.WithError(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "shutdown http server", logger.WithError(err))
	}
	log.Info(context.Background(), "api stopped")
}
