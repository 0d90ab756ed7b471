package service

import (
	"context"
	"errors"
	"strings"

	"verigate/internal/verification/catalog"
	"verigate/internal/verification/evaluator"
	"verigate/internal/verification/models"
	id "verigate/pkg/domain"
	dErrors "verigate/pkg/domain-errors"
	"verigate/pkg/platform/sentinel"
	"verigate/pkg/requestcontext"
)

// RegisterRole creates the user's profile for role and derives its initial
// state from evidence already on file.
func (s *Service) RegisterRole(ctx context.Context, userID id.UserID, role models.Role) (*models.RoleProfile, error) {
	if !role.IsValid() {
		return nil, models.UnknownRoleError(string(role))
	}
	profile, err := models.NewRoleProfile(userID, role, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, err.Error())
	}

	var registered *models.RoleProfile
	err = s.runForUser(ctx, userID, func(txCtx context.Context) error {
		if err := s.profiles.Create(txCtx, profile); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "role already registered").
					WithReason(models.ReasonAlreadyRegistered).
					WithDetail("role", string(role))
			}
			return translate(err, "failed to register role")
		}
		if err := s.syncProfiles(txCtx, userID, onlyRole(role), false); err != nil {
			return translate(err, "failed to evaluate profile")
		}
		if err := s.audit.emitRoleRegistered(txCtx, profile); err != nil {
			return err
		}
		found, err := s.profiles.Find(txCtx, userID, role)
		if err != nil {
			return translate(err, "failed to load profile")
		}
		registered = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID, []models.Role{role})
	return registered, nil
}

// Profiles returns the persisted profiles of every role the user registered.
func (s *Service) Profiles(ctx context.Context, userID id.UserID) ([]*models.RoleProfile, error) {
	profiles, err := s.profiles.ListByUser(ctx, userID)
	if err != nil {
		return nil, translate(err, "failed to list profiles")
	}
	for _, p := range profiles {
		key := evaluator.Key{UserID: userID, Role: p.Role}
		entry, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.WarnContext(ctx, "evaluation cache read failed", "key", key.String(), "error", err)
			continue
		}
		p.Stale = entry.Stale
	}
	return profiles, nil
}

type PersonalInfoInput struct {
	FullName           string
	DateOfBirth        string
	PhoneNumber        string
	ResidentialAddress string
}

// SavePersonalInfo replaces the user's personal info. All fields are
// required, so a saved record always completes the personal info step.
func (s *Service) SavePersonalInfo(ctx context.Context, userID id.UserID, in PersonalInfoInput) (*models.PersonalInfo, error) {
	info := &models.PersonalInfo{
		UserID:             userID,
		FullName:           strings.TrimSpace(in.FullName),
		DateOfBirth:        strings.TrimSpace(in.DateOfBirth),
		PhoneNumber:        strings.TrimSpace(in.PhoneNumber),
		ResidentialAddress: strings.TrimSpace(in.ResidentialAddress),
		UpdatedAt:          requestcontext.Now(ctx),
	}
	if !info.IsComplete() {
		return nil, dErrors.New(dErrors.CodeValidation, "all personal info fields are required")
	}

	err := s.runForUser(ctx, userID, func(txCtx context.Context) error {
		if err := s.infos.Save(txCtx, info); err != nil {
			return translate(err, "failed to save personal info")
		}
		if err := s.syncProfiles(txCtx, userID, anyRole, false); err != nil {
			return translate(err, "failed to update profiles")
		}
		return s.audit.emitPersonalInfoUpdated(txCtx, userID)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID, catalog.Roles())
	return info, nil
}
