package service

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"verigate/internal/verification/evaluator"
	"verigate/internal/verification/models"
	id "verigate/pkg/domain"
	"verigate/pkg/platform/sentinel"
	txcontext "verigate/pkg/platform/tx"
	"verigate/pkg/requestcontext"
)

// inputs is everything an evaluation reads for one user.
type inputs struct {
	info     *models.PersonalInfo
	snapshot *models.Snapshot
}

// loadInputs fetches personal info and the document snapshot. Outside a
// transaction the two reads run concurrently; a transaction owns a single
// connection, so inside one they run in turn.
func (s *Service) loadInputs(ctx context.Context, userID id.UserID) (*inputs, error) {
	var (
		info *models.PersonalInfo
		docs []models.Document
	)
	loadInfo := func(ctx context.Context) error {
		got, err := s.infos.Get(ctx, userID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		info = got
		return err
	}
	loadDocs := func(ctx context.Context) error {
		got, err := s.documents.ListByUser(ctx, userID)
		docs = got
		return err
	}

	if _, inTx := txcontext.From(ctx); inTx {
		if err := loadInfo(ctx); err != nil {
			return nil, err
		}
		if err := loadDocs(ctx); err != nil {
			return nil, err
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return loadInfo(gctx) })
		g.Go(func() error { return loadDocs(gctx) })
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	return &inputs{
		info:     info,
		snapshot: &models.Snapshot{Documents: docs, FetchedAt: requestcontext.Now(ctx)},
	}, nil
}

// evaluate derives the evaluation of profile from in.
func (s *Service) evaluate(ctx context.Context, profile *models.RoleProfile, in *inputs) (*models.Evaluation, error) {
	eval, err := evaluator.Evaluate(profile.Role, in.info, in.snapshot, profile.SubmittedAt)
	if err != nil {
		return nil, err
	}
	eval.UserID = profile.UserID
	eval.EvaluatedAt = requestcontext.Now(ctx)
	return eval, nil
}
