package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"verigate/internal/verification/catalog"
	"verigate/internal/verification/models"
	id "verigate/pkg/domain"
	dErrors "verigate/pkg/domain-errors"
	"verigate/pkg/platform/sentinel"
	"verigate/pkg/requestcontext"
)

// UploadInput describes one document submission. EvidenceRefs are opaque
// references issued by the upstream uploader.
type UploadInput struct {
	Type           models.DocumentType
	EvidenceRefs   []string
	DocumentNumber string
}

// UploadDocument records a new pending document. Uploading a type whose
// latest record is approved is refused; replacing a rejected record reopens
// every profile that requires the type.
func (s *Service) UploadDocument(ctx context.Context, userID id.UserID, in UploadInput) (*models.Document, error) {
	ctx, span := s.tracer.Start(ctx, "verification.UploadDocument")
	defer span.End()
	span.SetAttributes(attribute.String("document.type", string(in.Type)))

	doc, err := models.NewDocument(id.NewDocumentID(), userID, in.Type, in.EvidenceRefs, in.DocumentNumber, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	err = s.runForUser(ctx, userID, func(txCtx context.Context) error {
		replaced, err := s.documents.Upload(txCtx, doc)
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "an approved document of this type already exists").
				WithReason(models.ReasonAlreadyApproved).
				WithDetail("type", string(doc.Type))
		}
		if err != nil {
			return translate(err, "failed to store document")
		}
		reopen := replaced != nil && replaced.Status == models.DocumentRejected
		if err := s.syncProfiles(txCtx, userID, requiring(doc.Type), reopen); err != nil {
			return translate(err, "failed to update profiles")
		}
		return s.audit.emitDocumentUploaded(txCtx, doc)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome(err))
		return nil, err
	}

	s.invalidate(ctx, userID, catalog.RolesRequiring(doc.Type))
	s.metrics.IncrementUploaded(string(doc.Type))
	return doc, nil
}

// ListDocuments returns every document the user submitted, including
// superseded ones.
func (s *Service) ListDocuments(ctx context.Context, userID id.UserID) ([]models.Document, error) {
	docs, err := s.documents.ListByUser(ctx, userID)
	if err != nil {
		return nil, translate(err, "failed to list documents")
	}
	return docs, nil
}
