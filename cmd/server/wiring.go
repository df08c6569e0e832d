package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/TylerGelinas/socure/internal/decision"
	decisionhandler "github.com/TylerGelinas/socure/internal/decision/handler"
	decisionmetrics "github.com/TylerGelinas/socure/internal/decision/metrics"
	"github.com/TylerGelinas/socure/internal/identity"
	identitycache "github.com/TylerGelinas/socure/internal/identity/cache"
	identitymetrics "github.com/TylerGelinas/socure/internal/identity/metrics"
	identitystore "github.com/TylerGelinas/socure/internal/identity/store"
	jwttoken "github.com/TylerGelinas/socure/internal/jwt_token"
	"github.com/TylerGelinas/socure/internal/platform/config"
	"github.com/TylerGelinas/socure/internal/platform/database"
	"github.com/TylerGelinas/socure/internal/platform/health"
	"github.com/TylerGelinas/socure/internal/platform/kafka"
	"github.com/TylerGelinas/socure/internal/platform/kafka/producer"
	platformredis "github.com/TylerGelinas/socure/internal/platform/redis"
	"github.com/TylerGelinas/socure/internal/platform/tracer"
	"github.com/TylerGelinas/socure/internal/verification/client"
	"github.com/TylerGelinas/socure/internal/verification/evaluator"
	verificationmetrics "github.com/TylerGelinas/socure/internal/verification/metrics"
	"github.com/TylerGelinas/socure/pkg/platform/audit"
	auditmetrics "github.com/TylerGelinas/socure/pkg/platform/audit/metrics"
	auditpublisher "github.com/TylerGelinas/socure/pkg/platform/audit/publisher"
	kafkastore "github.com/TylerGelinas/socure/pkg/platform/audit/store/kafka"
	memorystore "github.com/TylerGelinas/socure/pkg/platform/audit/store/memory"
	postgresstore "github.com/TylerGelinas/socure/pkg/platform/audit/store/postgres"
	"github.com/TylerGelinas/socure/pkg/platform/circuit"
	"github.com/TylerGelinas/socure/pkg/platform/middleware/metadata"
)

const poolStatsInterval = 15 * time.Second

// application is the fully wired gateway.
type application struct {
	router  http.Handler
	service *decision.Service
	// runners are background loops tied to the server lifetime.
	runners []func(ctx context.Context)
	closers []func(ctx context.Context) error
	// db is the identity database, shared with the audit sink. Nil without one.
	db *database.Pool
}

// close releases resources in reverse order of acquisition.
func (a *application) close(ctx context.Context) error {
	var errs []error
	for _, c := range slices.Backward(a.closers) {
		if err := c(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *application) onClose(fn func(ctx context.Context) error) {
	a.closers = append(a.closers, fn)
}

// build wires every dependency. On error, anything already opened is closed.
func build(ctx context.Context, cfg *config.Config, log *slog.Logger) (_ *application, err error) {
	app := &application{}
	defer func() {
		if err != nil {
			_ = app.close(context.Background())
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	healthHandler := health.New(cfg.Server.Environment)

	source, err := app.identitySource(ctx, cfg.Identity, reg, log, healthHandler)
	if err != nil {
		return nil, err
	}

	publisher, err := app.auditPublisher(ctx, cfg.Audit, reg, log, healthHandler)
	if err != nil {
		return nil, err
	}

	selection, err := cfg.Verification.Selection()
	if err != nil {
		return nil, err
	}
	policy, err := cfg.Verification.Policy()
	if err != nil {
		return nil, err
	}

	vm := verificationmetrics.New(reg)
	clientOpts := []client.Option{client.WithMetrics(vm), client.WithLogger(log)}
	if cfg.Verification.BreakerFailures > 0 {
		clientOpts = append(clientOpts, client.WithBreaker(circuit.New("socure-idplus",
			circuit.WithFailureThreshold(cfg.Verification.BreakerFailures),
			circuit.WithCooldown(cfg.Verification.BreakerCooldown),
		)))
	}
	verifier := client.New(client.Config{
		Endpoint: cfg.Verification.Endpoint,
		APIKey:   cfg.Verification.APIKey,
		Timeout:  cfg.Verification.Timeout,
	}, clientOpts...)

	eval := evaluator.New(
		evaluator.WithThresholds(evaluator.Thresholds{
			Score:           cfg.Verification.ScoreThreshold,
			FieldValidation: cfg.Verification.FieldValidationThreshold,
		}),
		evaluator.WithMetrics(vm),
		evaluator.WithLogger(log),
	)

	app.service = decision.New(source, verifier, eval, publisher, selection,
		decision.WithPolicy(policy),
		decision.WithRetry(cfg.Verification.RetryAttempts, cfg.Verification.RetryDelay),
		decision.WithMetrics(decisionmetrics.New(reg)),
		decision.WithTracer(tracer.NewOTel()),
		decision.WithLogger(log),
	)

	trusted, err := metadata.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}
	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience, 0)

	app.router = newRouter(routerDeps{
		logger:         log,
		registry:       reg,
		health:         healthHandler,
		decision:       decisionhandler.New(app.service, log),
		validator:      jwttoken.NewJWTServiceAdapter(jwtService),
		trustedProxies: trusted,
	})
	return app, nil
}

// identitySource picks the backing store (Postgres, else fixtures, else empty
// memory) and fronts it with Redis or an in-process LRU when configured.
func (a *application) identitySource(
	ctx context.Context,
	cfg config.Identity,
	reg prometheus.Registerer,
	log *slog.Logger,
	hh *health.Handler,
) (identity.Source, error) {
	im := identitymetrics.New(reg)

	var source identity.Source
	switch {
	case cfg.DatabaseURL != "":
		pool, err := database.New(ctx, database.DefaultConfig(cfg.DatabaseURL))
		if err != nil {
			return nil, err
		}
		a.onClose(func(context.Context) error { return pool.Close() })
		if err := pool.RegisterMetrics(reg); err != nil {
			return nil, fmt.Errorf("register database metrics: %w", err)
		}
		hh.RegisterCheck("postgres", pool.Health)
		a.db = pool
		source = identitystore.NewPostgres(pool.DB(), im)
		log.Info("identity store: postgres")
	default:
		mem := identitystore.NewMemory()
		if cfg.Fixtures != "" {
			n, err := mem.LoadFixtures(cfg.Fixtures)
			if err != nil {
				return nil, err
			}
			log.Info("identity store: memory fixtures", "path", cfg.Fixtures, "identities", n)
		} else {
			log.Warn("identity store: empty memory store; every lookup will miss")
		}
		source = mem
	}

	var cache identity.Cache
	switch {
	case cfg.RedisURL != "":
		rc, err := platformredis.New(ctx, platformredis.Config{URL: cfg.RedisURL}, platformredis.NewPoolMetrics(reg))
		if err != nil {
			return nil, err
		}
		a.onClose(func(context.Context) error { return rc.Close() })
		a.runners = append(a.runners, func(ctx context.Context) { rc.RunPoolStats(ctx, poolStatsInterval) })
		hh.RegisterCheck("redis", rc.Health)
		cache = identitycache.NewRedis(rc.Client, cfg.CacheTTL)
	case cfg.CacheSize > 0:
		cache = identitycache.NewLRU(cfg.CacheSize, cfg.CacheTTL)
	default:
		return source, nil
	}
	log.Info("identity cache enabled", "cache", cache.Name(), "ttl", cfg.CacheTTL)

	return identity.NewCachedSource(source, cache,
		identity.WithCacheMetrics(im),
		identity.WithCacheLogger(log),
	), nil
}

// auditPublisher writes decision events to Kafka when brokers are configured,
// else to the identity database when one is open, else to a bounded memory store.
// Call after identitySource.
func (a *application) auditPublisher(
	ctx context.Context,
	cfg config.Audit,
	reg prometheus.Registerer,
	log *slog.Logger,
	hh *health.Handler,
) (*auditpublisher.Publisher, error) {
	var store audit.Store
	switch {
	case len(cfg.KafkaBrokers) > 0:
		prod, err := producer.New(kafka.DefaultProducerConfig(cfg.KafkaBrokers), log)
		if err != nil {
			return nil, err
		}
		a.onClose(prod.Close)
		if err := prod.EnsureTopic(ctx, cfg.Topic, cfg.Partitions, cfg.ReplicationFactor); err != nil {
			return nil, err
		}
		hh.RegisterCheck("kafka", prod.Ping)
		store = kafkastore.New(prod, cfg.Topic)
		log.Info("audit sink: kafka", "topic", cfg.Topic)
	case a.db != nil:
		store = postgresstore.New(a.db.DB())
		log.Info("audit sink: postgres")
	default:
		store = memorystore.NewInMemoryStore(memorystore.WithCapacity(cfg.MemoryCapacity))
		log.Warn("audit sink: in-memory; events are not durable", "capacity", cfg.MemoryCapacity)
	}

	pub := auditpublisher.NewPublisher(store,
		auditpublisher.WithAsyncBuffer(cfg.AsyncBuffer),
		auditpublisher.WithPublisherLogger(log),
		auditpublisher.WithMetrics(auditmetrics.New(reg)),
	)
	a.onClose(func(context.Context) error {
		pub.Close()
		return nil
	})
	return pub, nil
}
