package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	apphandler "loanbroker/internal/application/handler"
	appmetrics "loanbroker/internal/application/metrics"
	appservice "loanbroker/internal/application/service"
	appstore "loanbroker/internal/application/store"
	authhandler "loanbroker/internal/auth/handler"
	authmetrics "loanbroker/internal/auth/metrics"
	authservice "loanbroker/internal/auth/service"
	userstore "loanbroker/internal/auth/store/user"
	dashhandler "loanbroker/internal/dashboard/handler"
	dashservice "loanbroker/internal/dashboard/service"
	"loanbroker/internal/emi"
	"loanbroker/internal/events"
	jwttoken "loanbroker/internal/jwt_token"
	leadhandler "loanbroker/internal/lead/handler"
	leadmetrics "loanbroker/internal/lead/metrics"
	leadservice "loanbroker/internal/lead/service"
	leadstore "loanbroker/internal/lead/store"
	"loanbroker/internal/platform/config"
	"loanbroker/internal/platform/httpserver"
	"loanbroker/internal/platform/logger"
	"loanbroker/internal/platform/metrics"
	"loanbroker/internal/platform/middleware"
	"loanbroker/internal/platform/mongo"
	"loanbroker/internal/platform/postgres"
	"loanbroker/internal/platform/redis"
	quotecache "loanbroker/internal/quote/cache"
	quotehandler "loanbroker/internal/quote/handler"
	quotemetrics "loanbroker/internal/quote/metrics"
	quoteservice "loanbroker/internal/quote/service"
	httptransport "loanbroker/internal/transport/http"
)

const (
	tokenAudience      = "loanbroker-api"
	memoryCacheEntries = 10_000
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

// infra holds optional backing services; nil fields select in-memory stores.
type infra struct {
	db        *sql.DB
	mongo     *mongodriver.Client
	mongoDB   *mongodriver.Database
	redis     *redis.Client
	publisher events.Publisher
	closers   []func(context.Context)
}

func (in *infra) close(ctx context.Context) {
	for i := len(in.closers) - 1; i >= 0; i-- {
		in.closers[i](ctx)
	}
}

func connect(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	in := &infra{}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return in, err
	}
	if db != nil {
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return in, err
		}
		in.db = db
		in.closers = append(in.closers, func(context.Context) { _ = db.Close() })
		log.Info("postgres connected")
	}

	client, database, err := mongo.Connect(ctx, cfg.Mongo)
	if err != nil {
		return in, err
	}
	if client != nil {
		in.mongo, in.mongoDB = client, database
		in.closers = append(in.closers, func(ctx context.Context) { _ = client.Disconnect(ctx) })
		log.Info("mongo connected", "database", cfg.Mongo.Database)
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return in, err
	}
	if rc != nil {
		in.redis = rc
		in.closers = append(in.closers, func(context.Context) { _ = rc.Close() })
		log.Info("redis connected")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, events.WithLogger(log))
		if err != nil {
			return in, err
		}
		in.publisher = kp
		in.closers = append(in.closers, kp.Close)
		log.Info("kafka publisher ready", "topic", cfg.Kafka.Topic)
	} else {
		in.publisher = events.NewLogPublisher(log)
	}
	return in, nil
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	in, err := connect(ctx, cfg, log)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		in.close(shutdownCtx)
	}()
	if err != nil {
		return err
	}

	limits := emi.Limits(cfg.Limits)
	jwt := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.TokenIssuer, tokenAudience)
	validator := jwttoken.NewJWTServiceAdapter(jwt)
	health := httptransport.NewHealth(0)

	// accounts
	authOpts := []authservice.Option{
		authservice.WithLogger(log),
		authservice.WithMetrics(authmetrics.New()),
		authservice.WithPublisher(in.publisher),
		authservice.WithTokenTTL(cfg.Server.TokenTTL),
	}
	var users authservice.UserStore
	if in.db != nil {
		pg := userstore.NewPostgres(in.db)
		users = pg
		authOpts = append(authOpts, authservice.WithTxRunner(pg))
		health.Add("postgres", in.db.PingContext)
	} else {
		mem := userstore.New()
		users = mem
		authOpts = append(authOpts, authservice.WithTxRunner(mem))
	}
	auth, err := authservice.New(users, jwt, authOpts...)
	if err != nil {
		return err
	}
	if err := auth.EnsureAdmin(ctx, cfg.Server.AdminEmail, cfg.Server.AdminPassword); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	// calculator
	quoteOpts := []quoteservice.Option{
		quoteservice.WithLogger(log),
		quoteservice.WithMetrics(quotemetrics.New()),
	}
	if in.redis != nil {
		quoteOpts = append(quoteOpts, quoteservice.WithCache(quotecache.NewRedis(in.redis), cfg.Cache.QuoteTTL))
		health.Add("redis", in.redis.Health)
	} else if cfg.Cache.QuoteTTL > 0 {
		quoteOpts = append(quoteOpts, quoteservice.WithCache(quotecache.NewInMemory(memoryCacheEntries), cfg.Cache.QuoteTTL))
	}
	quotes := quoteservice.New(limits, quoteOpts...)

	// leads
	var leadStore leadservice.Store = leadstore.NewInMemory()
	if in.db != nil {
		leadStore = leadstore.NewPostgres(in.db)
	}
	leads := leadservice.New(leadStore,
		leadservice.WithLogger(log),
		leadservice.WithMetrics(leadmetrics.New()),
		leadservice.WithPublisher(in.publisher),
	)

	// applications
	var applicationStore appservice.Store = appstore.NewInMemory()
	if in.mongoDB != nil {
		ms := appstore.NewMongo(in.mongoDB)
		if err := ms.EnsureIndexes(ctx); err != nil {
			return err
		}
		applicationStore = ms
		health.Add("mongo", func(ctx context.Context) error { return in.mongo.Ping(ctx, readpref.Primary()) })
	}
	applications := appservice.New(applicationStore, limits,
		appservice.WithLogger(log),
		appservice.WithMetrics(appmetrics.New()),
		appservice.WithPublisher(in.publisher),
	)

	trusted, err := middleware.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return err
	}

	var limiter *middleware.RateLimiter
	if !cfg.RateLimit.Disabled && cfg.RateLimit.Capacity > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.Refill)
		defer limiter.Stop()
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Metrics:        metrics.New(),
		TokenValidator: validator,
		RateLimiter:    limiter,
		RequestTimeout: cfg.Server.RequestTimeout,
		TrustedProxies: trusted,
		Auth:           authhandler.New(auth, log, middleware.RequireAuth(validator, log)),
		Quote:          quotehandler.New(quotes, log),
		Leads:          leadhandler.New(leads, log),
		Applications:   apphandler.New(applications, log, httptransport.AdminRole),
		Dashboard:      dashhandler.New(dashservice.New(applications, leads, log), log),
		Health:         health,
		MetricsHandler: promhttp.Handler(),
	})

	srv := httpserver.New(cfg.Server.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting loanbroker", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
