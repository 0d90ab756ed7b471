// Package models holds the role-session record. A session's current role is
// only ever one the user holds a verified profile for.
package models

import (
	"time"

	vmodels "verigate/internal/verification/models"
	id "verigate/pkg/domain"
	dErrors "verigate/pkg/domain-errors"
)

// Session is the authorizer-owned context of one login session.
//
// Invariants:
//   - CurrentRole is empty until the first successful switch
//   - Version increases by exactly one per applied switch
type Session struct {
	ID                id.SessionID `json:"id"`
	UserID            id.UserID    `json:"user_id"`
	CurrentRole       vmodels.Role `json:"current_role,omitempty"`
	Version           uint64       `json:"version"`
	DeviceDisplayName string       `json:"device_display_name,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

func NewSession(sessionID id.SessionID, userID id.UserID, deviceName string, now time.Time) (*Session, error) {
	if sessionID.IsNil() || userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "session and user ids are required")
	}
	return &Session{
		ID:                sessionID,
		UserID:            userID,
		DeviceDisplayName: deviceName,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// BelongsTo reports whether the session was opened by userID.
func (s *Session) BelongsTo(userID id.UserID) bool {
	return s.UserID == userID
}

// ApplySwitch moves the session to role. The caller has already checked the
// target is verified and differs from CurrentRole.
func (s *Session) ApplySwitch(role vmodels.Role, deviceName string, now time.Time) {
	s.CurrentRole = role
	s.Version++
	s.UpdatedAt = now
	if deviceName != "" {
		s.DeviceDisplayName = deviceName
	}
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

// AvailableRole is one registered role as offered to a role switcher.
type AvailableRole struct {
	Role                 vmodels.Role              `json:"role"`
	Status               vmodels.ProfileStatus     `json:"status"`
	VerificationLevel    vmodels.VerificationLevel `json:"verification_level"`
	CompletionPercentage int                       `json:"completion_percentage"`
	Switchable           bool                      `json:"switchable"`
	// Route is where to send the user when the role is not switchable.
	Route string `json:"route,omitempty"`
}

// AvailableFrom builds the switcher entry for a fresh evaluation.
func AvailableFrom(eval *vmodels.Evaluation) AvailableRole {
	r := AvailableRole{
		Role:                 eval.Role,
		Status:               eval.Status,
		VerificationLevel:    eval.Level,
		CompletionPercentage: eval.CompletionPercentage,
		Switchable:           eval.Status == vmodels.StatusVerified,
	}
	if !r.Switchable {
		r.Route = eval.Status.RemediationRoute()
	}
	return r
}
