package handler

import (
	"time"

	"verigate/internal/verification/models"
)

type RequirementsResponse struct {
	Role  string        `json:"role"`
	Steps []models.Step `json:"steps"`
}

type ProfileResponse struct {
	Role                 string     `json:"role"`
	Status               string     `json:"status"`
	CompletionPercentage int        `json:"completion_percentage"`
	VerificationLevel    string     `json:"verification_level"`
	SubmittedAt          *time.Time `json:"submitted_at,omitempty"`
	UpdatedAt            time.Time  `json:"updated_at"`
	Stale                bool       `json:"stale"`
}

type ProfileListResponse struct {
	Roles []ProfileResponse `json:"roles"`
}

func FromProfile(p *models.RoleProfile) ProfileResponse {
	return ProfileResponse{
		Role:                 string(p.Role),
		Status:               string(p.Status),
		CompletionPercentage: p.CompletionPercentage,
		VerificationLevel:    string(p.VerificationLevel),
		SubmittedAt:          p.SubmittedAt,
		UpdatedAt:            p.UpdatedAt,
		Stale:                p.Stale,
	}
}

func FromProfiles(ps []*models.RoleProfile) []ProfileResponse {
	out := make([]ProfileResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, FromProfile(p))
	}
	return out
}

// EvaluationResponse reports derived state. Stale is true when the value is
// the last known one because a refresh failed.
type EvaluationResponse struct {
	Role                 string              `json:"role"`
	Status               string              `json:"status"`
	CompletionPercentage int                 `json:"completion_percentage"`
	VerificationLevel    string              `json:"verification_level"`
	CanSubmit            bool                `json:"can_submit"`
	Stale                bool                `json:"stale"`
	Steps                []models.StepResult `json:"steps"`
	EvaluatedAt          time.Time           `json:"evaluated_at"`
}

func FromEvaluation(e *models.Evaluation) EvaluationResponse {
	return EvaluationResponse{
		Role:                 string(e.Role),
		Status:               string(e.Status),
		CompletionPercentage: e.CompletionPercentage,
		VerificationLevel:    string(e.Level),
		CanSubmit:            e.CanSubmit(),
		Stale:                e.Stale,
		Steps:                e.Steps,
		EvaluatedAt:          e.EvaluatedAt,
	}
}

type DocumentResponse struct {
	ID              string     `json:"id"`
	OwnerID         string     `json:"owner_id"`
	Type            string     `json:"type"`
	Status          string     `json:"status"`
	DocumentNumber  string     `json:"document_number,omitempty"`
	EvidenceRefs    []string   `json:"evidence_refs"`
	SubmittedAt     time.Time  `json:"submitted_at"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

type DocumentListResponse struct {
	Documents []DocumentResponse `json:"documents"`
}

func FromDocument(d *models.Document) DocumentResponse {
	return DocumentResponse{
		ID:              d.ID.String(),
		OwnerID:         d.OwnerID.String(),
		Type:            string(d.Type),
		Status:          string(d.Status),
		DocumentNumber:  d.DocumentNumber,
		EvidenceRefs:    d.EvidenceRefs,
		SubmittedAt:     d.SubmittedAt,
		ReviewedAt:      d.ReviewedAt,
		RejectionReason: d.RejectionReason,
	}
}

func FromDocuments(docs []models.Document) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, FromDocument(&docs[i]))
	}
	return out
}
