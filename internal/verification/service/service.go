// Package service orchestrates the verification lifecycle: registration,
// evidence upload, evaluation, submission and reviewer decisions.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"verigate/internal/verification/evaluator"
	vmetrics "verigate/internal/verification/metrics"
	"verigate/internal/verification/models"
	id "verigate/pkg/domain"
	"verigate/pkg/platform/audit"
	txcontext "verigate/pkg/platform/tx"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks DocumentStore,ProfileStore,PersonalInfoStore,AuditPublisher

type DocumentStore interface {
	ListByUser(ctx context.Context, userID id.UserID) ([]models.Document, error)
	FindByID(ctx context.Context, docID id.DocumentID) (*models.Document, error)
	Upload(ctx context.Context, doc *models.Document) (*models.Document, error)
	Decide(ctx context.Context, docID id.DocumentID, decision models.Decision, reason, reviewer string, now time.Time) (*models.Document, error)
	ListPending(ctx context.Context, limit int) ([]models.Document, error)
}

type ProfileStore interface {
	Create(ctx context.Context, p *models.RoleProfile) error
	Find(ctx context.Context, userID id.UserID, role models.Role) (*models.RoleProfile, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.RoleProfile, error)
	Execute(ctx context.Context, userID id.UserID, role models.Role, validate func(*models.RoleProfile) error, mutate func(*models.RoleProfile)) (*models.RoleProfile, error)
}

type PersonalInfoStore interface {
	Get(ctx context.Context, userID id.UserID) (*models.PersonalInfo, error)
	Save(ctx context.Context, info *models.PersonalInfo) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns the verification state of every (user, role).
type Service struct {
	documents DocumentStore
	profiles  ProfileStore
	infos     PersonalInfoStore
	cache     evaluator.Cache
	tx        txcontext.Runner
	logger    *slog.Logger
	metrics   *vmetrics.Metrics
	audit     *auditEmitter
	tracer    trace.Tracer
	refreshes singleflight.Group
}

type serviceConfig struct {
	logger         *slog.Logger
	metrics        *vmetrics.Metrics
	auditPublisher AuditPublisher
	hasher         *audit.Hasher
	cache          evaluator.Cache
	tx             txcontext.Runner
	tracer         trace.Tracer
}

type Option func(*serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) { c.logger = logger }
}

func WithMetrics(m *vmetrics.Metrics) Option {
	return func(c *serviceConfig) { c.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(c *serviceConfig) { c.auditPublisher = p }
}

// WithHasher enables keyed hashing of document numbers in audit events.
// Without it document numbers are left out of the trail.
func WithHasher(h *audit.Hasher) Option {
	return func(c *serviceConfig) { c.hasher = h }
}

func WithCache(cache evaluator.Cache) Option {
	return func(c *serviceConfig) { c.cache = cache }
}

func WithTx(tx txcontext.Runner) Option {
	return func(c *serviceConfig) { c.tx = tx }
}

func WithTracer(t trace.Tracer) Option {
	return func(c *serviceConfig) { c.tracer = t }
}

func New(documents DocumentStore, profiles ProfileStore, infos PersonalInfoStore, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.cache == nil {
		cfg.cache = evaluator.NewMemoryCache()
	}
	if cfg.tx == nil {
		cfg.tx = txcontext.NewShardedRunner()
	}
	if cfg.tracer == nil {
		cfg.tracer = otel.Tracer("verigate/verification")
	}
	return &Service{
		documents: documents,
		profiles:  profiles,
		infos:     infos,
		cache:     cfg.cache,
		tx:        cfg.tx,
		logger:    cfg.logger,
		metrics:   cfg.metrics,
		audit:     newAuditEmitter(cfg.logger, cfg.auditPublisher, cfg.hasher),
		tracer:    cfg.tracer,
	}
}

// runForUser runs fn in a transaction serialized with every other mutation
// of userID's verification state.
func (s *Service) runForUser(ctx context.Context, userID id.UserID, fn func(txCtx context.Context) error) error {
	return s.tx.RunInTx(txcontext.WithShardKey(ctx, userID.String()), fn)
}
