package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"verigate/internal/platform/config"
	"verigate/internal/platform/jwt"
	"verigate/internal/platform/kafka"
	"verigate/internal/platform/metrics"
	"verigate/internal/platform/postgres"
	"verigate/internal/platform/redis"
	rolesmetrics "verigate/internal/roles/metrics"
	roleshandler "verigate/internal/roles/handler"
	rolesservice "verigate/internal/roles/service"
	"verigate/internal/roles/store/session"
	"verigate/internal/verification/evaluator"
	vhandler "verigate/internal/verification/handler"
	vmetrics "verigate/internal/verification/metrics"
	vservice "verigate/internal/verification/service"
	"verigate/internal/verification/store/document"
	"verigate/internal/verification/store/personalinfo"
	"verigate/internal/verification/store/profile"
	"verigate/internal/verification/worker"
	"verigate/pkg/platform/audit"
	auditmemory "verigate/pkg/platform/audit/store/memory"
	auditpostgres "verigate/pkg/platform/audit/store/postgres"
	"verigate/pkg/platform/audit/publisher"
	"verigate/pkg/platform/circuit"
	txcontext "verigate/pkg/platform/tx"
)

// app holds everything main needs to route, run background work and shut down.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	storage string

	db       *sql.DB
	redis    *redis.Client
	producer *kafka.Producer
	audit    *publisher.Publisher

	jwt          *jwt.Service
	httpMetrics  *metrics.HTTP
	verification *vhandler.Handler
	roles        *roleshandler.Handler
	refresher    *worker.Refresher
}

type verificationStores struct {
	documents vservice.DocumentStore
	profiles  vservice.ProfileStore
	infos     vservice.PersonalInfoStore
	audit     audit.Store
	tx        txcontext.Runner
}

func build(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: log, storage: "memory"}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.db = db
	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	a.redis = rc

	stores := verificationStores{
		documents: document.New(),
		profiles:  profile.New(),
		infos:     personalinfo.New(),
		audit:     auditmemory.NewInMemoryStore(),
		tx:        txcontext.NewShardedRunner(),
	}
	if db != nil {
		if err := postgres.Migrate(ctx, db); err != nil {
			a.close(ctx)
			return nil, err
		}
		stores = verificationStores{
			documents: document.NewPostgres(db),
			profiles:  profile.NewPostgres(db),
			infos:     personalinfo.NewPostgres(db),
			audit:     auditpostgres.New(db),
			tx:        txcontext.NewPostgresRunner(db),
		}
		a.storage = "postgres"
	}

	publisherOpts := []publisher.Option{
		publisher.WithLogger(log),
		publisher.WithAsyncBuffer(cfg.Verification.AuditBuffer),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			a.close(ctx)
			return nil, err
		}
		a.producer = producer
		if err := producer.EnsureTopic(ctx, cfg.Kafka.Partitions); err != nil {
			log.Warn("could not ensure audit topic", "topic", cfg.Kafka.AuditTopic, "error", err)
		}
		guarded := kafka.NewGuardedSink(producer, circuit.New("kafka-audit"), log)
		publisherOpts = append(publisherOpts, publisher.WithSink(guarded))
	}
	a.audit = publisher.NewPublisher(stores.audit, publisherOpts...)

	hasher, err := audit.NewHasher([]byte(cfg.Verification.AuditHashKey))
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("audit hasher: %w", err)
	}

	var cache evaluator.Cache = evaluator.NewMemoryCache()
	var sessions rolesservice.SessionStore = session.New()
	if rc != nil {
		cache = evaluator.NewRedisCache(rc.Client, cfg.Verification.CacheTTL)
		sessions = session.NewRedis(rc.Client, cfg.Roles.SessionTTL)
	}

	verification := vservice.New(stores.documents, stores.profiles, stores.infos,
		vservice.WithLogger(log),
		vservice.WithMetrics(vmetrics.New()),
		vservice.WithAuditPublisher(a.audit),
		vservice.WithHasher(hasher),
		vservice.WithCache(cache),
		vservice.WithTx(stores.tx),
	)
	authorizer := rolesservice.New(verification, sessions,
		rolesservice.WithLogger(log),
		rolesservice.WithMetrics(rolesmetrics.New()),
		rolesservice.WithAuditPublisher(a.audit),
	)

	a.jwt = jwt.NewService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
	a.httpMetrics = metrics.New()
	a.verification = vhandler.New(verification, log)
	a.roles = roleshandler.New(authorizer, log)
	a.refresher = worker.NewRefresher(verification, log)
	return a, nil
}

func (a *app) startWorkers() error {
	if !a.cfg.Verification.RefresherEnabled {
		return nil
	}
	return a.refresher.Start(a.cfg.Verification.RefresherSpec)
}

// close releases resources in reverse order of acquisition. Safe on a
// partially built app.
func (a *app) close(ctx context.Context) {
	if a.refresher != nil {
		a.refresher.Stop(ctx)
	}
	if a.audit != nil {
		a.audit.Close()
	}
	if a.producer != nil {
		a.producer.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("closing redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("closing postgres", "error", err)
		}
	}
}
