package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	_ "time/tzdata"

	"github.com/md-rashed-zaman/consultbook/libs/config"
	"github.com/md-rashed-zaman/consultbook/libs/db"
	"github.com/md-rashed-zaman/consultbook/libs/grpcx"
	"github.com/md-rashed-zaman/consultbook/libs/httpx"
	"github.com/md-rashed-zaman/consultbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/consultbook/libs/otel"
	"github.com/md-rashed-zaman/consultbook/libs/redisx"
	"github.com/md-rashed-zaman/consultbook/libs/runtime"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/consumer"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/grpcserver"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/inbox"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/locker"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/reservations"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/scheduling"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/settings"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/tzconv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("load .env", "err", err)
		os.Exit(1)
	}
	service := config.String("SERVICE_NAME", "booking-service")
	logger := runtime.NewLogger(service)
	if err := run(logger, service); err != nil {
		logger.Error("booking-service failed", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, service string) error {
	port, err := config.Port("PORT", "8083")
	if err != nil {
		return err
	}
	grpcPort, err := config.Port("GRPC_PORT", "9083")
	if err != nil {
		return err
	}
	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		return err
	}
	defaultZone := config.String("DEFAULT_VISITOR_TIMEZONE", "UTC")
	if _, err := tzconv.LoadZone(defaultZone); err != nil {
		return err
	}
	lockTTL, err := config.Duration("BOOKING_LOCK_TTL", reservations.DefaultLockTTL)
	if err != nil {
		return err
	}
	rateLimit, err := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		return err
	}
	rateBurst, err := config.Int("RATE_LIMIT_BURST", 30)
	if err != nil {
		return err
	}
	redisDB, err := config.Int("REDIS_DB", 0)
	if err != nil {
		return err
	}
	platform, err := settings.FromEnv(logger)
	if err != nil {
		return err
	}
	brokers := config.String("KAFKA_BROKERS", "")

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		return err
	}
	defer pool.Close()

	rdb, err := redisx.Open(ctx, redisx.Config{
		Addr:     config.String("REDIS_ADDR", ""),
		Password: config.String("REDIS_PASSWORD", ""),
		DB:       redisDB,
	})
	if err != nil {
		logger.Warn("redis unavailable; using in-process rate limiting and no booking lock", "err", err)
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	outboxRepo := outbox.NewRepository(pool)
	resourceRepo := storage.NewResourceRepository(pool)
	bookingRepo := storage.NewBookingRepository(pool, outboxRepo)

	queries := scheduling.NewService(logger, resourceRepo, bookingRepo, platform,
		scheduling.WithDefaultZone(defaultZone))
	var resOpts []reservations.Option
	if rdb != nil {
		resOpts = append(resOpts, reservations.WithLocker(locker.NewRedis(rdb, logger), lockTTL))
	}
	bookings := reservations.NewService(logger, bookingRepo, resOpts...)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	if topic := config.String("KAFKA_ORDER_TOPIC", consumer.TopicOrderPlaced); brokers != "" && topic != "" {
		orders := consumer.New(logger, inbox.NewRepository(pool), consumer.Config{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", service),
			Topic:   topic,
		}, consumer.OrderPlacedHandler(logger, bookings))
		go orders.Run(ctx)
	}

	grpcServer := grpcx.NewServer(grpc.ChainUnaryInterceptor(
		grpcx.UnaryServerRequestIDInterceptor(),
		grpcx.UnaryServerAccessLogInterceptor(logger),
	))
	grpcserver.Register(grpcServer, queries)
	lis, err := net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		return err
	}
	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	checks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "redis", Check: redisx.ReadyCheck(rdb)},
	}
	if brokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	mux := runtime.NewBaseMuxWithReady(checks...)

	api := httpx.Chain(handlers.NewRouter(handlers.NewBookingHandler(queries, bookings, logger)),
		httpx.WithCORS(httpx.PublicCORSPolicy(config.List("CORS_ALLOWED_ORIGINS"))),
		rateLimiter(logger, rdb, rateLimit, rateBurst),
		httpx.WithBodyLimit(64<<10),
		httpx.WithTimeout(10*time.Second),
	)
	mux.Handle("/api/", api)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	grpcServer.GracefulStop()
	logger.Info("servers stopped")
	return nil
}

// rateLimiter shares one budget across replicas through Redis when available.
func rateLimiter(logger *slog.Logger, rdb *redis.Client, perMinute, burst int) httpx.Middleware {
	if rdb != nil {
		return httpx.NewRedisRateLimiter(rdb, perMinute, time.Minute, "booking:rl").Middleware(logger, true)
	}
	return httpx.NewRateLimiter(perMinute, time.Minute, burst).Middleware()
}
