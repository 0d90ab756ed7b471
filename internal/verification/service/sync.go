package service

import (
	"context"
	"slices"

	"verigate/internal/verification/catalog"
	"verigate/internal/verification/evaluator"
	"verigate/internal/verification/models"
	id "verigate/pkg/domain"
	dErrors "verigate/pkg/domain-errors"
	"verigate/pkg/requestcontext"
)

func requiring(t models.DocumentType) func(models.Role) bool {
	roles := catalog.RolesRequiring(t)
	return func(r models.Role) bool { return slices.Contains(roles, r) }
}

func onlyRole(role models.Role) func(models.Role) bool {
	return func(r models.Role) bool { return r == role }
}

func anyRole(models.Role) bool { return true }

// syncProfiles re-evaluates and persists every registered profile of userID
// selected by affects. With reopen set, a recorded submission is cleared
// first, which is how replacing a rejected document reopens a profile.
func (s *Service) syncProfiles(ctx context.Context, userID id.UserID, affects func(models.Role) bool, reopen bool) error {
	profiles, err := s.profiles.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	var in *inputs
	for _, p := range profiles {
		if !affects(p.Role) {
			continue
		}
		if in == nil {
			if in, err = s.loadInputs(ctx, userID); err != nil {
				return err
			}
		}
		if err := s.syncProfile(ctx, p.UserID, p.Role, in, reopen); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) syncProfile(ctx context.Context, userID id.UserID, role models.Role, in *inputs, reopen bool) error {
	now := requestcontext.Now(ctx)
	var (
		eval *models.Evaluation
		from models.ProfileStatus
	)
	updated, err := s.profiles.Execute(ctx, userID, role,
		func(p *models.RoleProfile) error {
			candidate := p.Clone()
			if reopen && candidate.SubmittedAt != nil {
				candidate.ApplyReplacement(now)
			}
			e, err := s.evaluate(ctx, candidate, in)
			if err != nil {
				return err
			}
			if !p.Status.CanTransitionTo(e.Status) {
				return dErrors.New(dErrors.CodeInvariantViolation, "profile status transition not allowed").
					WithDetail("from", string(p.Status)).
					WithDetail("to", string(e.Status))
			}
			eval, from = e, p.Status
			return nil
		},
		func(p *models.RoleProfile) {
			if reopen && p.SubmittedAt != nil {
				p.ApplyReplacement(now)
			}
			_ = p.ApplyEvaluation(eval, now)
		},
	)
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		s.logger.WarnContext(ctx, "profile left unchanged",
			"user_id", userID.String(),
			"role", string(role),
			"from", dErrors.Detail(err, "from"),
			"to", dErrors.Detail(err, "to"),
		)
		return nil
	}
	if err != nil {
		return err
	}
	if updated.Status != from {
		return s.audit.emitTransition(ctx, updated, from)
	}
	return nil
}

// invalidate bumps the cached generation of each (userID, role). A failed
// invalidation leaves the entry to expire through the cache TTL.
func (s *Service) invalidate(ctx context.Context, userID id.UserID, roles []models.Role) {
	for _, r := range roles {
		key := evaluator.Key{UserID: userID, Role: r}
		if err := s.cache.Invalidate(ctx, key); err != nil {
			s.logger.ErrorContext(ctx, "failed to invalidate evaluation", "key", key.String(), "error", err)
		}
	}
}

func (s *Service) markStale(ctx context.Context, userID id.UserID, roles []models.Role) {
	for _, r := range roles {
		key := evaluator.Key{UserID: userID, Role: r}
		if err := s.cache.MarkStale(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "failed to mark evaluation stale", "key", key.String(), "error", err)
		}
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if de, ok := dErrors.As(err); ok {
		if de.Reason != "" {
			return de.Reason
		}
		return string(de.Code)
	}
	return "error"
}
