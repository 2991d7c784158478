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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/stocker-erp/stocker/configs"
	"github.com/stocker-erp/stocker/internal/infra/database"
	"github.com/stocker-erp/stocker/internal/infra/event"
	"github.com/stocker-erp/stocker/internal/infra/storage"
	"github.com/stocker-erp/stocker/internal/infra/web/handler"
	"github.com/stocker-erp/stocker/pkg/logger"
	"github.com/stocker-erp/stocker/pkg/metrics"
	"github.com/stocker-erp/stocker/pkg/otel"
)

const handlerName = "domain-events"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config, err := configs.LoadConfig(".")
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(config.ServiceName+"-worker", true)

	if config.OtelCollectorAddr != "" {
		shutdown, err := otel.InitProvider(ctx, config.ServiceName+"-worker", config.ServiceVersion, config.OtelCollectorAddr)
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

	conn, err := amqp.Dial(config.AMQPURL)
	if err != nil {
		log.Error(ctx, "connect to broker", logger.WithError(err))
		os.Exit(1)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Error(ctx, "open broker channel", logger.WithError(err))
		os.Exit(1)
	}
	defer ch.Close()

	rdb := redis.NewClient(&redis.Options{Addr: config.RedisAddr, Password: config.RedisPassword})
	defer rdb.Close()

	registry := prometheus.NewRegistry()
	meters := metrics.NewPrometheusMetrics(registry, config.ServiceName+"_worker")

	factory := database.NewFactory(db, database.NewDefaultRegistry(), log)

	relay := event.NewOutboxRelay(factory, event.NewDispatcher(ch, config.AMQPExchange), log, meters)
	go relay.Run(ctx)
	go relay.RunRescuer(ctx)

	go serveOps(ctx, log, registry, handler.NewHealthHandler(
		config.ServiceName+"-worker", config.ServiceVersion,
		handler.WithPostgres(db),
		handler.WithRedis(rdb),
		handler.WithRabbitMQ(config.AMQPURL),
	))

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    handlerName,
		Timeout: 30 * time.Second,
	})

	handle := event.WrapIdempotency(log, meters, storage.NewRedisAdapter(rdb), handlerName, 24*time.Hour,
		event.WrapExponentialBackoff(log, meters, handlerName, 3, 500*time.Millisecond,
			event.WrapResilientConsumer(meters, handlerName, 10*time.Second, cb,
				logEvent(log),
			),
		),
	)

	consumer := event.NewConsumer(conn, config.AMQPExchange, log)
	if err := consumer.Start(ctx, config.AMQPQueue, handle); err != nil && !errors.Is(err, context.Canceled) {
		log.Error(ctx, "consumer stopped", logger.WithError(err))
		os.Exit(1)
	}
	log.Info(context.Background(), "worker stopped")
}

// logEvent is the terminal handler: downstream projections hang off the
// same chain, for now every event is acknowledged after being recorded.
func logEvent(log logger.Logger) event.MessageHandler {
	return func(ctx context.Context, msg []byte, headers map[string]interface{}) error {
		eventType, _ := headers["x-event-type"].(string)
		log.Info(ctx, "domain event received",
			logger.String("event_type", eventType),
			logger.Int("payload_bytes", len(msg)),
		)
		return nil
	}
}

// serveOps exposes liveness and metrics on a side port so probes never
// compete with queue consumption.
func serveOps(ctx context.Context, log logger.Logger, registry *prometheus.Registry, health http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/healthz", health)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: ":8081", Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error(ctx, "ops server failed", logger.WithError(err))
	}
}
