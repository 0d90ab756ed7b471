package service

import (
	"context"
	"errors"

	vmodels "verigate/internal/verification/models"
	dErrors "verigate/pkg/domain-errors"
	"verigate/pkg/platform/sentinel"
)

const (
	ReasonConcurrentSwitch = "concurrent_switch"
	ReasonSessionMismatch  = "session_mismatch"
)

func notRegistered(role vmodels.Role) *dErrors.Error {
	return dErrors.New(dErrors.CodeForbidden, "role is not registered").
		WithReason(vmodels.ReasonNotRegistered).
		WithDetail("role", string(role)).
		WithDetail("route", vmodels.RouteRegister)
}

func notVerified(role vmodels.Role, status vmodels.ProfileStatus) *dErrors.Error {
	return dErrors.New(dErrors.CodeForbidden, "role is not verified").
		WithReason(vmodels.ReasonNotVerified).
		WithDetail("role", string(role)).
		WithDetail("status", string(status)).
		WithDetail("route", status.RemediationRoute())
}

func sessionMismatch() error {
	return dErrors.New(dErrors.CodeForbidden, "session belongs to another user").
		WithReason(ReasonSessionMismatch)
}

func translate(err error, msg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
