package service

import (
	"context"
	"log/slog"

	"verigate/internal/verification/models"
	id "verigate/pkg/domain"
	dErrors "verigate/pkg/domain-errors"
	"verigate/pkg/platform/audit"
	"verigate/pkg/requestcontext"
)

// auditEmitter writes the audit trail of verification actions. Every event is
// also logged with log_type=audit.
type auditEmitter struct {
	logger    *slog.Logger
	publisher AuditPublisher
	hasher    *audit.Hasher
}

func newAuditEmitter(logger *slog.Logger, publisher AuditPublisher, hasher *audit.Hasher) *auditEmitter {
	return &auditEmitter{logger: logger, publisher: publisher, hasher: hasher}
}

func (e *auditEmitter) emit(ctx context.Context, action audit.AuditEvent, event audit.Event) error {
	event.Action = string(action)
	event.RequestID = requestcontext.RequestID(ctx)

	e.logger.InfoContext(ctx, string(action),
		"log_type", "audit",
		"user_id", event.UserID.String(),
		"subject", event.Subject,
		"decision", event.Decision,
		"actor_id", event.ActorID,
		"request_id", event.RequestID,
	)
	if e.publisher == nil {
		return nil
	}
	if err := e.publisher.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to record audit event")
	}
	return nil
}

func (e *auditEmitter) hashNumber(number string) string {
	if e.hasher == nil || number == "" {
		return ""
	}
	return e.hasher.Hash(number)
}

func (e *auditEmitter) emitRoleRegistered(ctx context.Context, p *models.RoleProfile) error {
	return e.emit(ctx, audit.EventRoleRegistered, audit.Event{
		UserID:  p.UserID,
		Subject: string(p.Role),
	})
}

func (e *auditEmitter) emitPersonalInfoUpdated(ctx context.Context, userID id.UserID) error {
	return e.emit(ctx, audit.EventPersonalInfoUpdated, audit.Event{UserID: userID, Subject: "personal_info"})
}

func (e *auditEmitter) emitDocumentUploaded(ctx context.Context, doc *models.Document) error {
	return e.emit(ctx, audit.EventDocumentUploaded, audit.Event{
		UserID:             doc.OwnerID,
		Subject:            doc.ID.String(),
		Decision:           string(doc.Type),
		DocumentNumberHash: e.hashNumber(doc.DocumentNumber),
	})
}

func (e *auditEmitter) emitDecision(ctx context.Context, doc *models.Document) error {
	action := audit.EventDocumentApproved
	if doc.Status == models.DocumentRejected {
		action = audit.EventDocumentRejected
	}
	return e.emit(ctx, action, audit.Event{
		UserID:             doc.OwnerID,
		Subject:            doc.ID.String(),
		Decision:           string(doc.Status),
		Reason:             doc.RejectionReason,
		ActorID:            doc.ReviewedBy,
		DocumentNumberHash: e.hashNumber(doc.DocumentNumber),
	})
}

func (e *auditEmitter) emitSubmitted(ctx context.Context, p *models.RoleProfile) error {
	return e.emit(ctx, audit.EventProfileSubmitted, audit.Event{
		UserID:   p.UserID,
		Subject:  string(p.Role),
		Decision: string(p.Status),
	})
}

func (e *auditEmitter) emitTransition(ctx context.Context, p *models.RoleProfile, from models.ProfileStatus) error {
	return e.emit(ctx, audit.EventProfileTransitioned, audit.Event{
		UserID:   p.UserID,
		Subject:  string(p.Role),
		Decision: string(p.Status),
		Reason:   string(from) + "->" + string(p.Status),
	})
}
