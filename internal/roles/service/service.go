// Package service is the role authorizer: it decides whether a session may
// act as a role, always from a freshly computed evaluation.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"verigate/internal/roles/metrics"
	"verigate/internal/roles/models"
	vmodels "verigate/internal/verification/models"
	id "verigate/pkg/domain"
	dErrors "verigate/pkg/domain-errors"
	"verigate/pkg/platform/audit"
	"verigate/pkg/platform/middleware/device"
	"verigate/pkg/platform/sentinel"
	"verigate/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Verifier,SessionStore,AuditPublisher

// Verifier computes evaluations without consulting the cache.
type Verifier interface {
	FreshEvaluation(ctx context.Context, userID id.UserID, role vmodels.Role) (*vmodels.Evaluation, error)
	ListRegistered(ctx context.Context, userID id.UserID) ([]*vmodels.Evaluation, error)
}

type SessionStore interface {
	Get(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	Create(ctx context.Context, sess *models.Session) error
	SwitchCurrentRole(ctx context.Context, sessionID id.SessionID, expectedVersion uint64, role vmodels.Role, deviceName string, now time.Time) (*models.Session, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// switchAttempts bounds retries when another request moved the session
// between our read and our compare-and-swap.
const switchAttempts = 3

type Authorizer struct {
	verifier  Verifier
	sessions  SessionStore
	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher AuditPublisher
	tracer    trace.Tracer
}

type Option func(*Authorizer)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Authorizer) { a.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Authorizer) { a.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(a *Authorizer) { a.publisher = p }
}

func WithTracer(t trace.Tracer) Option {
	return func(a *Authorizer) { a.tracer = t }
}

func New(verifier Verifier, sessions SessionStore, opts ...Option) *Authorizer {
	a := &Authorizer{verifier: verifier, sessions: sessions}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.tracer == nil {
		a.tracer = otel.Tracer("verigate/roles")
	}
	return a
}

// AvailableRoles lists the user's registered roles with freshly evaluated
// status. Only verified roles are switchable.
func (a *Authorizer) AvailableRoles(ctx context.Context, userID id.UserID) ([]models.AvailableRole, error) {
	evals, err := a.verifier.ListRegistered(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.AvailableRole, 0, len(evals))
	for _, eval := range evals {
		out = append(out, models.AvailableFrom(eval))
	}
	return out, nil
}

// CurrentRole returns the session's active role, or "" before the first
// switch.
func (a *Authorizer) CurrentRole(ctx context.Context, sessionID id.SessionID, userID id.UserID) (vmodels.Role, error) {
	sess, err := a.sessions.Get(ctx, sessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", translate(err, "failed to load session")
	}
	if !sess.BelongsTo(userID) {
		return "", sessionMismatch()
	}
	return sess.CurrentRole, nil
}

// SwitchRole makes target the session's current role. The target must be
// verified according to a fresh evaluation; a refusal leaves the session
// untouched. Once this returns successfully every later CurrentRole observes
// target.
func (a *Authorizer) SwitchRole(ctx context.Context, sessionID id.SessionID, userID id.UserID, target vmodels.Role) (*models.Session, error) {
	ctx, span := a.tracer.Start(ctx, "roles.SwitchRole")
	defer span.End()
	span.SetAttributes(attribute.String("role", string(target)))

	sess, outcome, err := a.switchRole(ctx, sessionID, userID, target)
	a.metrics.IncrementSwitch(string(target), outcome)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return nil, err
	}
	return sess, nil
}

func (a *Authorizer) switchRole(ctx context.Context, sessionID id.SessionID, userID id.UserID, target vmodels.Role) (*models.Session, string, error) {
	if !target.IsValid() {
		return nil, "invalid", vmodels.UnknownRoleError(string(target))
	}

	eval, err := a.verifier.FreshEvaluation(ctx, userID, target)
	if dErrors.HasReason(err, vmodels.ReasonNotRegistered) {
		return nil, "denied", a.deny(ctx, userID, target, notRegistered(target))
	}
	if err != nil {
		return nil, "error", err
	}
	if eval.Status != vmodels.StatusVerified {
		return nil, "denied", a.deny(ctx, userID, target, notVerified(target, eval.Status))
	}

	now := requestcontext.Now(ctx)
	deviceName := device.DeviceName(ctx)
	for attempt := 0; attempt < switchAttempts; attempt++ {
		sess, err := a.loadOrOpen(ctx, sessionID, userID, deviceName, now)
		if err != nil {
			return nil, "error", err
		}
		if sess.CurrentRole == target {
			return sess, "noop", nil
		}
		from := sess.CurrentRole
		updated, err := a.sessions.SwitchCurrentRole(ctx, sessionID, sess.Version, target, deviceName, now)
		if errors.Is(err, sentinel.ErrStaleWrite) {
			a.logger.DebugContext(ctx, "session moved during switch, retrying",
				"session_id", sessionID.String(),
				"attempt", attempt+1,
			)
			continue
		}
		if err != nil {
			return nil, "error", translate(err, "failed to switch role")
		}
		a.emitSwitched(ctx, updated, from)
		return updated, "switched", nil
	}
	return nil, "conflict", dErrors.New(dErrors.CodeConflict, "session changed concurrently, retry the switch").
		WithReason(ReasonConcurrentSwitch)
}

// loadOrOpen returns the stored session, creating it on first use. Sessions
// are minted by the token issuer so the first role request opens ours.
func (a *Authorizer) loadOrOpen(ctx context.Context, sessionID id.SessionID, userID id.UserID, deviceName string, now time.Time) (*models.Session, error) {
	sess, err := a.sessions.Get(ctx, sessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		fresh, cerr := models.NewSession(sessionID, userID, deviceName, now)
		if cerr != nil {
			return nil, dErrors.Wrap(cerr, dErrors.CodeValidation, "invalid session")
		}
		cerr = a.sessions.Create(ctx, fresh)
		if errors.Is(cerr, sentinel.ErrConflict) {
			// Opened concurrently; read the winner.
			sess, err = a.sessions.Get(ctx, sessionID)
		} else if cerr != nil {
			return nil, translate(cerr, "failed to open session")
		} else {
			sess, err = fresh, nil
		}
	}
	if err != nil {
		return nil, translate(err, "failed to load session")
	}
	if !sess.BelongsTo(userID) {
		return nil, sessionMismatch()
	}
	return sess, nil
}

func (a *Authorizer) deny(ctx context.Context, userID id.UserID, target vmodels.Role, denial *dErrors.Error) error {
	a.metrics.IncrementDenial(string(target), denial.Reason)
	a.emit(ctx, audit.EventRoleSwitchDenied, audit.Event{
		UserID:   userID,
		Subject:  string(target),
		Decision: "denied",
		Reason:   denial.Reason,
	})
	return denial
}

func (a *Authorizer) emitSwitched(ctx context.Context, sess *models.Session, from vmodels.Role) {
	a.emit(ctx, audit.EventRoleSwitched, audit.Event{
		UserID:   sess.UserID,
		Subject:  string(sess.CurrentRole),
		Decision: "switched",
		Reason:   string(from) + "->" + string(sess.CurrentRole),
	})
}

// emit records an audit event. The switch outcome is already decided, so a
// publisher failure is logged rather than returned.
func (a *Authorizer) emit(ctx context.Context, action audit.AuditEvent, event audit.Event) {
	event.Action = string(action)
	event.RequestID = requestcontext.RequestID(ctx)
	a.logger.InfoContext(ctx, string(action),
		"log_type", "audit",
		"user_id", event.UserID.String(),
		"subject", event.Subject,
		"reason", event.Reason,
		"request_id", event.RequestID,
	)
	if a.publisher == nil {
		return
	}
	if err := a.publisher.Emit(ctx, event); err != nil {
		a.logger.ErrorContext(ctx, "failed to record role audit event",
			"action", string(action),
			"user_id", event.UserID.String(),
			"error", err,
		)
	}
}
