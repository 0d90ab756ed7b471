package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"verigate/internal/verification/models"
	id "verigate/pkg/domain"
	"verigate/pkg/platform/sentinel"
	"verigate/pkg/requestcontext"
)

// CanSubmit reports whether a profile with this evaluation may be submitted
// for review: every step complete and nothing in review yet.
func CanSubmit(eval *models.Evaluation) bool {
	return eval.CanSubmit()
}

// Submit sends the profile for review. The precondition is checked against
// a fresh evaluation while the profile is locked, so two concurrent
// submissions cannot both pass.
func (s *Service) Submit(ctx context.Context, userID id.UserID, role models.Role) (*models.RoleProfile, error) {
	ctx, span := s.tracer.Start(ctx, "verification.Submit")
	defer span.End()
	span.SetAttributes(attribute.String("role", string(role)))

	if !role.IsValid() {
		return nil, models.UnknownRoleError(string(role))
	}
	now := requestcontext.Now(ctx)

	var submitted *models.RoleProfile
	err := s.runForUser(ctx, userID, func(txCtx context.Context) error {
		var eval *models.Evaluation
		p, err := s.profiles.Execute(txCtx, userID, role,
			func(p *models.RoleProfile) error {
				in, err := s.loadInputs(txCtx, userID)
				if err != nil {
					return err
				}
				e, err := s.evaluate(txCtx, p, in)
				if err != nil {
					return err
				}
				if err := p.CanSubmit(e); err != nil {
					return err
				}
				eval = e
				return nil
			},
			func(p *models.RoleProfile) {
				p.ApplySubmission(now)
				p.CompletionPercentage = eval.CompletionPercentage
				p.VerificationLevel = eval.Level
			},
		)
		if errors.Is(err, sentinel.ErrNotFound) {
			return notRegistered(role)
		}
		if err != nil {
			return translate(err, "failed to submit profile")
		}
		submitted = p
		return s.audit.emitSubmitted(txCtx, p)
	})
	s.metrics.IncrementSubmission(string(role), outcome(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome(err))
		return nil, err
	}

	s.invalidate(ctx, userID, []models.Role{role})
	return submitted, nil
}
