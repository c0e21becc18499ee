package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/Clark-Hu/gymblog/internal/attachments"
	"github.com/Clark-Hu/gymblog/internal/auth"
	"github.com/Clark-Hu/gymblog/internal/config"
	"github.com/Clark-Hu/gymblog/internal/domain"
	"github.com/Clark-Hu/gymblog/internal/events"
	httpserver "github.com/Clark-Hu/gymblog/internal/http"
	"github.com/Clark-Hu/gymblog/internal/metrics"
	"github.com/Clark-Hu/gymblog/internal/mongostore"
	"github.com/Clark-Hu/gymblog/internal/places"
	"github.com/Clark-Hu/gymblog/internal/rating"
	"github.com/Clark-Hu/gymblog/internal/realtime"
	"github.com/Clark-Hu/gymblog/internal/repository"
	"github.com/Clark-Hu/gymblog/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := log.New(os.Stdout, "[gymblog-api] ", log.LstdFlags|log.Lshortfile)

	var wrap func(http.Handler) http.Handler
	var transport http.RoundTripper = http.DefaultTransport
	if cfg.OTLPEndpoint != "" {
		shutdownTracing, err := initOTEL(ctx, cfg)
		if err != nil {
			log.Fatalf("init tracing: %v", err)
		}
		defer func() {
			c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracing(c)
		}()
		wrap = func(h http.Handler) http.Handler { return otelhttp.NewHandler(h, "http.server") }
		transport = otelhttp.NewTransport(http.DefaultTransport)
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	storeOpts := store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		MigrationsDir:          cfg.MigrationsDir,
		Logger:                 logger,
	}

	st, err := store.New(dbCtx, cfg.DBURL, storeOpts)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	metrics.RegisterPoolStats(reg, st.Stats)

	repo := repository.New(st)
	health := healthChecks{st}

	var ratingStore rating.Store = repo.Ratings
	if cfg.RatingStore == config.RatingStoreMongo {
		ms, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Fatalf("connect mongo: %v", err)
		}
		defer func() {
			c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = ms.Close(c)
		}()
		ratingStore = ms
		health = append(health, ms)
		logger.Printf("rating documents stored in mongo database %s", cfg.MongoDB)
	}

	ratingHub := realtime.NewHub[domain.PostRating]()
	ratingHub.OnSubscriberChange(m.SubscriberGauge("rating"))
	commentHub := realtime.NewHub[[]domain.Comment]()
	commentHub.OnSubscriberChange(m.SubscriberGauge("comments"))

	var (
		ratingOut  realtime.Broadcaster[domain.PostRating] = ratingHub
		commentOut realtime.Broadcaster[[]domain.Comment]  = commentHub
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("parse redis url: %v", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(dbCtx).Err(); err != nil {
			log.Fatalf("ping redis: %v", err)
		}

		ratingBridge := realtime.NewRedisBridge(rdb, cfg.RealtimePrefix+":rating", ratingHub, logger)
		commentBridge := realtime.NewRedisBridge(rdb, cfg.RealtimePrefix+":comments", commentHub, logger)
		go runBridge(ctx, logger, "rating", ratingBridge.Run)
		go runBridge(ctx, logger, "comments", commentBridge.Run)
		ratingOut, commentOut = ratingBridge, commentBridge
	}

	var publisher events.Publisher = events.NewLoggingPublisher(logger)
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Fatalf("init kafka publisher: %v", err)
		}
		publisher = kp
	}
	defer publisher.Close()

	ratings := rating.NewService(ratingStore, ratingOut, ratingHub, rating.Options{
		MaxAttempts: cfg.RatingMaxAttempts,
		Events:      publisher,
		Metrics:     m,
		Logger:      logger,
	})

	deps := httpserver.Deps{
		Health:   health,
		Repo:     repo,
		Ratings:  ratings,
		Comments: realtime.NewChannel(commentOut, commentHub),
		Verifier: auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer),
		Events:   publisher,
		Metrics:  m,
		Gatherer: reg,
	}

	if cfg.PlacesURL != "" {
		placesClient, err := places.NewHTTPClient(cfg.PlacesURL, cfg.PlacesAPIKey, time.Duration(cfg.PlacesTimeoutSecs)*time.Second, transport, logger)
		if err != nil {
			log.Fatalf("init places client: %v", err)
		}
		deps.Places = placesClient
	}

	if cfg.MinioEndpoint != "" {
		uploads, err := attachments.NewMinioStore(attachments.Config{
			Endpoint:      cfg.MinioEndpoint,
			AccessKey:     cfg.MinioAccessKey,
			SecretKey:     cfg.MinioSecretKey,
			UseSSL:        cfg.MinioUseSSL,
			Bucket:        cfg.MinioBucket,
			PublicBaseURL: cfg.MinioPublicURL,
		})
		if err != nil {
			log.Fatalf("init attachment store: %v", err)
		}
		if err := uploads.EnsureBucket(dbCtx); err != nil {
			log.Fatalf("ensure bucket %s: %v", cfg.MinioBucket, err)
		}
		deps.Uploads = uploads
	}

	server := httpserver.New(cfg, deps, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on :%s", cfg.Port)
		if err := server.Start(ctx, wrap); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			log.Printf("server error: %v", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("graceful shutdown error: %v", err)
	}
}

// healthChecks is healthy when every backing store answers.
type healthChecks []httpserver.HealthChecker

func (h healthChecks) HealthCheck(ctx context.Context) error {
	for _, c := range h {
		if err := c.HealthCheck(ctx); err != nil {
			return err
		}
	}
	return nil
}

// runBridge keeps a Redis bridge subscribed, reconnecting after failures.
func runBridge(ctx context.Context, logger *log.Logger, name string, run func(context.Context) error) {
	for {
		err := run(ctx)
		if ctx.Err() != nil {
			return
		}
		logger.Printf("realtime %s bridge stopped: %v; retrying", name, err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func initOTEL(ctx context.Context, cfg config.Config) (func(context.Context) error, error) {
	endpoint := otlptracehttp.WithEndpoint(cfg.OTLPEndpoint)
	if strings.Contains(cfg.OTLPEndpoint, "://") {
		endpoint = otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint)
	}
	exp, err := otlptracehttp.New(ctx, endpoint, otlptracehttp.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("otel exporter: %w", err)
	}
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(cfg.ServiceName),
		attribute.String("deployment.environment", os.Getenv("ENV")),
	))
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return tp.Shutdown, nil
}
