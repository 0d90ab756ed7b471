package service

import (
	"context"
	"errors"
	"time"

	"verigate/internal/verification/evaluator"
	"verigate/internal/verification/models"
	id "verigate/pkg/domain"
	dErrors "verigate/pkg/domain-errors"
	"verigate/pkg/platform/sentinel"
)

// storeAttempts bounds retries when an invalidation races a refresh.
const storeAttempts = 2

// Evaluation returns the evaluation of (userID, role) for display. A current
// cached value is served as is; otherwise it is refreshed. When the refresh
// fails the last known value is returned flagged Stale, and with nothing
// cached the call fails with CodeUnavailable.
func (s *Service) Evaluation(ctx context.Context, userID id.UserID, role models.Role) (*models.Evaluation, error) {
	if !role.IsValid() {
		return nil, models.UnknownRoleError(string(role))
	}
	key := evaluator.Key{UserID: userID, Role: role}

	entry, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "evaluation cache read failed", "key", key.String(), "error", err)
		entry = evaluator.Entry{}
	}
	if entry.Current() {
		s.metrics.IncrementCache("hit")
		return entry.Evaluation.Clone(), nil
	}

	eval, err := s.refresh(ctx, key)
	if err == nil {
		s.metrics.IncrementCache("refreshed")
		return eval, nil
	}
	if dErrors.HasReason(err, models.ReasonNotRegistered) {
		return nil, err
	}

	if entry.Evaluation != nil {
		s.logger.WarnContext(ctx, "serving stale evaluation", "key", key.String(), "error", err)
		s.markStale(ctx, userID, []models.Role{role})
		s.metrics.IncrementCache("stale")
		stale := entry.Evaluation.Clone()
		stale.Stale = true
		return stale, nil
	}
	s.metrics.IncrementCache("unavailable")
	return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "verification state is temporarily unavailable")
}

// refresh coalesces concurrent refreshes of one key.
func (s *Service) refresh(ctx context.Context, key evaluator.Key) (*models.Evaluation, error) {
	v, err, _ := s.refreshes.Do(key.String(), func() (any, error) {
		return s.refreshOnce(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Evaluation).Clone(), nil
}

// refreshOnce reads the generation before fetching evidence, so a write that
// invalidates the key mid-fetch makes the Store fail instead of caching a
// response computed from older evidence.
func (s *Service) refreshOnce(ctx context.Context, key evaluator.Key) (*models.Evaluation, error) {
	defer s.metrics.ObserveEvaluation(time.Now())

	var eval *models.Evaluation
	for range storeAttempts {
		entry, cacheErr := s.cache.Get(ctx, key)

		profile, err := s.profiles.Find(ctx, key.UserID, key.Role)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, notRegistered(key.Role)
		}
		if err != nil {
			return nil, translate(err, "failed to load profile")
		}
		in, err := s.loadInputs(ctx, key.UserID)
		if err != nil {
			return nil, translate(err, "failed to load evidence")
		}
		if eval, err = s.evaluate(ctx, profile, in); err != nil {
			return nil, translate(err, "failed to evaluate profile")
		}

		if cacheErr != nil {
			return eval, nil
		}
		err = s.cache.Store(ctx, key, eval, entry.Generation)
		if err == nil {
			return eval, nil
		}
		if !errors.Is(err, sentinel.ErrStaleWrite) {
			s.logger.WarnContext(ctx, "evaluation cache write failed", "key", key.String(), "error", err)
			return eval, nil
		}
	}
	return eval, nil
}

// FreshEvaluation evaluates (userID, role) from a freshly fetched snapshot,
// bypassing the cache. Gates use this.
func (s *Service) FreshEvaluation(ctx context.Context, userID id.UserID, role models.Role) (*models.Evaluation, error) {
	if !role.IsValid() {
		return nil, models.UnknownRoleError(string(role))
	}
	profile, err := s.profiles.Find(ctx, userID, role)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, notRegistered(role)
	}
	if err != nil {
		return nil, translate(err, "failed to load profile")
	}
	in, err := s.loadInputs(ctx, userID)
	if err != nil {
		return nil, translate(err, "failed to load evidence")
	}
	eval, err := s.evaluate(ctx, profile, in)
	if err != nil {
		return nil, translate(err, "failed to evaluate profile")
	}
	return eval, nil
}

// ListRegistered freshly evaluates every role the user registered.
func (s *Service) ListRegistered(ctx context.Context, userID id.UserID) ([]*models.Evaluation, error) {
	profiles, err := s.profiles.ListByUser(ctx, userID)
	if err != nil {
		return nil, translate(err, "failed to list profiles")
	}
	if len(profiles) == 0 {
		return []*models.Evaluation{}, nil
	}
	in, err := s.loadInputs(ctx, userID)
	if err != nil {
		return nil, translate(err, "failed to load evidence")
	}
	out := make([]*models.Evaluation, 0, len(profiles))
	for _, p := range profiles {
		eval, err := s.evaluate(ctx, p, in)
		if err != nil {
			return nil, translate(err, "failed to evaluate profile")
		}
		out = append(out, eval)
	}
	return out, nil
}

// RefreshStale retries up to limit evaluations that were served stale. Each
// one also brings the persisted profile back in line with its evidence.
func (s *Service) RefreshStale(ctx context.Context, limit int) (refreshed int, err error) {
	keys, err := s.cache.StaleKeys(ctx, limit)
	if err != nil {
		return 0, translate(err, "failed to list stale evaluations")
	}
	for _, key := range keys {
		if ctx.Err() != nil {
			return refreshed, ctx.Err()
		}
		syncErr := s.runForUser(ctx, key.UserID, func(txCtx context.Context) error {
			return s.syncProfiles(txCtx, key.UserID, onlyRole(key.Role), false)
		})
		if syncErr != nil {
			s.logger.WarnContext(ctx, "stale profile sync failed", "key", key.String(), "error", syncErr)
			s.metrics.IncrementStaleRefresh("failed")
			continue
		}
		if _, err := s.refresh(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "stale evaluation refresh failed", "key", key.String(), "error", err)
			s.metrics.IncrementStaleRefresh("failed")
			continue
		}
		s.metrics.IncrementStaleRefresh("ok")
		refreshed++
	}
	return refreshed, nil
}
