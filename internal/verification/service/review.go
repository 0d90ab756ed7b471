package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"verigate/internal/verification/catalog"
	"verigate/internal/verification/models"
	id "verigate/pkg/domain"
	dErrors "verigate/pkg/domain-errors"
	"verigate/pkg/platform/sentinel"
	"verigate/pkg/requestcontext"
)

const defaultPendingLimit = 100

// Approve marks a pending document approved.
func (s *Service) Approve(ctx context.Context, reviewerID id.ReviewerID, docID id.DocumentID) (*models.Document, error) {
	return s.decide(ctx, reviewerID, docID, models.DecisionApprove, "")
}

// Reject marks a pending document rejected. The reason is checked before
// anything is read or written.
func (s *Service) Reject(ctx context.Context, reviewerID id.ReviewerID, docID id.DocumentID, reason string) (*models.Document, error) {
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) < models.MinRejectionReasonLen {
		return nil, dErrors.New(dErrors.CodeValidation, "rejection reason is too short").
			WithReason(models.ReasonReasonTooShort).
			WithDetail("min_length", strconv.Itoa(models.MinRejectionReasonLen))
	}
	return s.decide(ctx, reviewerID, docID, models.DecisionReject, reason)
}

func (s *Service) decide(ctx context.Context, reviewerID id.ReviewerID, docID id.DocumentID, decision models.Decision, reason string) (*models.Document, error) {
	ctx, span := s.tracer.Start(ctx, "verification.Decide")
	defer span.End()
	span.SetAttributes(
		attribute.String("document.id", docID.String()),
		attribute.String("decision", string(decision)),
	)

	decided, err := s.applyDecision(ctx, reviewerID, docID, decision, reason)
	s.metrics.IncrementDecision(string(decision), outcome(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome(err))
		return nil, err
	}

	// The decision is committed; profile state follows from it even if the
	// caller goes away. A failed sync is left to the stale refresher.
	syncCtx := context.WithoutCancel(ctx)
	roles := catalog.RolesRequiring(decided.Type)
	syncErr := s.runForUser(syncCtx, decided.OwnerID, func(txCtx context.Context) error {
		return s.syncProfiles(txCtx, decided.OwnerID, requiring(decided.Type), false)
	})
	s.invalidate(syncCtx, decided.OwnerID, roles)
	if syncErr != nil {
		s.logger.ErrorContext(ctx, "profile sync after decision failed",
			"document_id", docID.String(),
			"user_id", decided.OwnerID.String(),
			"error", syncErr,
		)
		s.markStale(syncCtx, decided.OwnerID, roles)
	}
	return decided, nil
}

func (s *Service) applyDecision(ctx context.Context, reviewerID id.ReviewerID, docID id.DocumentID, decision models.Decision, reason string) (*models.Document, error) {
	doc, err := s.documents.FindByID(ctx, docID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
	}
	if err != nil {
		return nil, translate(err, "failed to load document")
	}

	now := requestcontext.Now(ctx)
	var decided *models.Document
	err = s.runForUser(ctx, doc.OwnerID, func(txCtx context.Context) error {
		d, err := s.documents.Decide(txCtx, docID, decision, reason, reviewerID.String(), now)
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			conflict := dErrors.New(dErrors.CodeConflict, "document already reviewed").
				WithReason(models.ReasonAlreadyReviewed)
			if d != nil {
				conflict = conflict.WithDetail("status", string(d.Status))
			}
			return conflict
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		if err != nil {
			return translate(err, "failed to record decision")
		}
		decided = d
		return s.audit.emitDecision(txCtx, d)
	})
	if err != nil {
		return nil, err
	}
	return decided, nil
}

// ListPending returns the reviewer queue, oldest first.
func (s *Service) ListPending(ctx context.Context, limit int) ([]models.Document, error) {
	if limit <= 0 || limit > defaultPendingLimit {
		limit = defaultPendingLimit
	}
	docs, err := s.documents.ListPending(ctx, limit)
	if err != nil {
		return nil, translate(err, "failed to list pending documents")
	}
	return docs, nil
}
