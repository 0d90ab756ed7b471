package models

import (
	"strings"
	"time"

	id "verigate/pkg/domain"
)

type StepKind string

const (
	StepPersonalInfo StepKind = "personal_info"
	StepDocument     StepKind = "document"
)

// Step is one required input for a role.
type Step struct {
	ID           string       `json:"step_id"`
	Kind         StepKind     `json:"kind"`
	DocumentType DocumentType `json:"document_type,omitempty"`
}

// PersonalInfo holds the user-entered fields every role requires. The step
// completes on presence alone; it is not reviewed.
type PersonalInfo struct {
	UserID             id.UserID `json:"user_id"`
	FullName           string    `json:"full_name"`
	DateOfBirth        string    `json:"date_of_birth"`
	PhoneNumber        string    `json:"phone_number"`
	ResidentialAddress string    `json:"residential_address"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// IsComplete reports whether every required field is non-blank.
func (p *PersonalInfo) IsComplete() bool {
	if p == nil {
		return false
	}
	for _, v := range []string{p.FullName, p.DateOfBirth, p.PhoneNumber, p.ResidentialAddress} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// Snapshot is a successfully fetched view of a user's documents. A nil
// *Snapshot means the fetch failed, which is not the same as no documents.
type Snapshot struct {
	Documents []Document
	FetchedAt time.Time
}

// StepResult is the evaluated state of one step.
type StepResult struct {
	StepID       string         `json:"step_id"`
	Kind         StepKind       `json:"kind"`
	DocumentType DocumentType   `json:"document_type,omitempty"`
	Completed    bool           `json:"completed"`
	Approved     bool           `json:"approved"`
	Status       DocumentStatus `json:"document_status,omitempty"`
	DocumentID   *id.DocumentID `json:"document_id,omitempty"`
}

// Evaluation is the derived verification state of one (user, role).
type Evaluation struct {
	UserID               id.UserID         `json:"user_id"`
	Role                 Role              `json:"role"`
	Steps                []StepResult      `json:"steps"`
	CompletionPercentage int               `json:"completion_percentage"`
	Level                VerificationLevel `json:"verification_level"`
	Status               ProfileStatus     `json:"status"`
	EvaluatedAt          time.Time         `json:"evaluated_at"`
	// Stale marks a last-known-good evaluation served because a refresh failed.
	Stale bool `json:"stale"`
}

// CanSubmit is true iff every step is complete and nothing is in review yet.
func (e *Evaluation) CanSubmit() bool {
	return e != nil && e.CompletionPercentage == 100 && e.Status == StatusIncomplete
}

// Requires reports whether the evaluated role needs documents of type t.
func (e *Evaluation) Requires(t DocumentType) bool {
	for _, s := range e.Steps {
		if s.Kind == StepDocument && s.DocumentType == t {
			return true
		}
	}
	return false
}

func (e *Evaluation) Clone() *Evaluation {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Steps = append([]StepResult(nil), e.Steps...)
	return &cp
}
