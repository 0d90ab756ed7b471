package models

import (
	"strconv"
	"time"

	id "verigate/pkg/domain"
	dErrors "verigate/pkg/domain-errors"
)

type ProfileStatus string

const (
	StatusUnregistered ProfileStatus = "unregistered"
	StatusIncomplete   ProfileStatus = "incomplete"
	StatusPending      ProfileStatus = "pending"
	StatusVerified     ProfileStatus = "verified"
	StatusRejected     ProfileStatus = "rejected"
)

var profileTransitions = map[ProfileStatus][]ProfileStatus{
	StatusUnregistered: {StatusIncomplete},
	StatusIncomplete:   {StatusPending, StatusVerified, StatusRejected},
	StatusPending:      {StatusVerified, StatusRejected},
	StatusRejected:     {StatusIncomplete},
}

// CanTransitionTo reports whether moving to next is allowed. Staying put is
// always allowed; verified is terminal.
func (s ProfileStatus) CanTransitionTo(next ProfileStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range profileTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RemediationRoute tells a caller where to send a user whose profile is in s.
func (s ProfileStatus) RemediationRoute() string {
	switch s {
	case StatusPending:
		return RouteAwaitReview
	case StatusRejected:
		return RouteResubmit
	case StatusUnregistered:
		return RouteRegister
	default:
		return RouteCompleteProfile
	}
}

type VerificationLevel string

const (
	LevelNone  VerificationLevel = "none"
	LevelBasic VerificationLevel = "basic"
	LevelFull  VerificationLevel = "full"
)

// RoleProfile is a user's registration and verification record for one role.
//
// Invariants:
//   - (UserID, Role) is unique
//   - Status only moves along CanTransitionTo
//   - SubmittedAt is set once per submission and cleared only when a rejected
//     document is replaced
type RoleProfile struct {
	UserID               id.UserID         `json:"user_id"`
	Role                 Role              `json:"role"`
	Status               ProfileStatus     `json:"status"`
	CompletionPercentage int               `json:"completion_percentage"`
	VerificationLevel    VerificationLevel `json:"verification_level"`
	SubmittedAt          *time.Time        `json:"submitted_at,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`

	// Stale is set on read while a re-evaluation of this profile awaits a
	// retry. It is never persisted.
	Stale bool `json:"-"`
}

// NewRoleProfile registers interest in a role; the profile starts incomplete.
func NewRoleProfile(userID id.UserID, role Role, now time.Time) (*RoleProfile, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user id is required")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid role")
	}
	if !StatusUnregistered.CanTransitionTo(StatusIncomplete) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registration transition not allowed")
	}
	return &RoleProfile{
		UserID:            userID,
		Role:              role,
		Status:            StatusIncomplete,
		VerificationLevel: LevelNone,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// CanSubmit checks a fresh evaluation of this profile against the submission
// precondition and explains a refusal with the matching domain error.
func (p *RoleProfile) CanSubmit(eval *Evaluation) error {
	switch eval.Status {
	case StatusPending, StatusVerified:
		return dErrors.New(dErrors.CodeConflict, "profile already submitted").
			WithReason(ReasonAlreadySubmitted).
			WithDetail("status", string(eval.Status))
	case StatusRejected:
		return dErrors.New(dErrors.CodeConflict, "rejected documents must be replaced before resubmitting").
			WithReason(ReasonReplacementRequired)
	}
	if !eval.CanSubmit() {
		return dErrors.New(dErrors.CodeValidation, "profile is not complete").
			WithReason(ReasonIncompleteProfile).
			WithDetail("completion_percentage", strconv.Itoa(eval.CompletionPercentage))
	}
	return nil
}

// ApplySubmission records the submission. Must follow a nil CanSubmit.
func (p *RoleProfile) ApplySubmission(now time.Time) {
	submittedAt := now
	p.SubmittedAt = &submittedAt
	p.Status = StatusPending
	p.UpdatedAt = now
}

// ApplyEvaluation copies derived state onto the profile. It refuses
// transitions the lifecycle does not allow and leaves p untouched then.
func (p *RoleProfile) ApplyEvaluation(eval *Evaluation, now time.Time) error {
	if !p.Status.CanTransitionTo(eval.Status) {
		return dErrors.New(dErrors.CodeInvariantViolation, "profile status transition not allowed").
			WithDetail("from", string(p.Status)).
			WithDetail("to", string(eval.Status))
	}
	changed := p.Status != eval.Status ||
		p.CompletionPercentage != eval.CompletionPercentage ||
		p.VerificationLevel != eval.Level
	p.Status = eval.Status
	p.CompletionPercentage = eval.CompletionPercentage
	p.VerificationLevel = eval.Level
	if changed {
		p.UpdatedAt = now
	}
	return nil
}

// ApplyReplacement reopens a profile after a rejected document was replaced.
func (p *RoleProfile) ApplyReplacement(now time.Time) {
	p.SubmittedAt = nil
	p.UpdatedAt = now
}

func (p *RoleProfile) Clone() *RoleProfile {
	cp := *p
	if p.SubmittedAt != nil {
		t := *p.SubmittedAt
		cp.SubmittedAt = &t
	}
	return &cp
}
