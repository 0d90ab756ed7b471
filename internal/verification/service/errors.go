package service

import (
	"context"
	"errors"

	"verigate/internal/verification/evaluator"
	"verigate/internal/verification/models"
	dErrors "verigate/pkg/domain-errors"
	"verigate/pkg/platform/sentinel"
)

func notRegistered(role models.Role) error {
	return dErrors.New(dErrors.CodeNotFound, "role is not registered").
		WithReason(models.ReasonNotRegistered).
		WithDetail("role", string(role)).
		WithDetail("route", models.RouteRegister)
}

// translate maps store facts onto the domain taxonomy. Domain errors pass
// through untouched.
func translate(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg)
	case errors.Is(err, sentinel.ErrUnavailable), errors.Is(err, evaluator.ErrSnapshotUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
