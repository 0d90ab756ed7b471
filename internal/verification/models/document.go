package models

import (
	"strings"
	"time"

	id "verigate/pkg/domain"
	dErrors "verigate/pkg/domain-errors"
)

type DocumentType string

const (
	DocumentIdentity            DocumentType = "identity"
	DocumentAddress             DocumentType = "address"
	DocumentBusiness            DocumentType = "business"
	DocumentDriverLicense       DocumentType = "driver_license"
	DocumentVehicleRegistration DocumentType = "vehicle_registration"
)

func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentIdentity, DocumentAddress, DocumentBusiness, DocumentDriverLicense, DocumentVehicleRegistration:
		return true
	}
	return false
}

func (t DocumentType) String() string { return string(t) }

// ParseDocumentType normalizes and validates a document type.
func ParseDocumentType(raw string) (DocumentType, error) {
	t := DocumentType(strings.ToLower(strings.TrimSpace(raw)))
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "unknown document type").
			WithReason(ReasonUnknownDocumentType).
			WithDetail("type", raw)
	}
	return t, nil
}

type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "pending"
	DocumentApproved DocumentStatus = "approved"
	DocumentRejected DocumentStatus = "rejected"
)

func (s DocumentStatus) IsTerminal() bool {
	return s == DocumentApproved || s == DocumentRejected
}

// Decision is a reviewer outcome.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// MinRejectionReasonLen is the shortest rejection reason a reviewer may give.
const MinRejectionReasonLen = 3

// Document is one submitted piece of evidence.
//
// Invariants:
//   - A terminal decision (approved or rejected) is never changed; corrections
//     are new records and the old one stays for audit.
//   - ReviewedAt and ReviewedBy are set exactly when Status is terminal.
//   - RejectionReason is set only when Status is rejected.
type Document struct {
	ID              id.DocumentID  `json:"id"`
	OwnerID         id.UserID      `json:"owner_id"`
	Type            DocumentType   `json:"type"`
	Status          DocumentStatus `json:"status"`
	DocumentNumber  string         `json:"document_number,omitempty"`
	EvidenceRefs    []string       `json:"evidence_refs"`
	SubmittedAt     time.Time      `json:"submitted_at"`
	ReviewedAt      *time.Time     `json:"reviewed_at,omitempty"`
	ReviewedBy      string         `json:"reviewed_by,omitempty"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
}

// NewDocument builds a pending document.
func NewDocument(docID id.DocumentID, owner id.UserID, docType DocumentType, evidenceRefs []string, documentNumber string, now time.Time) (*Document, error) {
	if docID.IsNil() || owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "document and owner ids are required")
	}
	if !docType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid document type")
	}
	if len(evidenceRefs) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "at least one evidence reference is required")
	}
	return &Document{
		ID:             docID,
		OwnerID:        owner,
		Type:           docType,
		Status:         DocumentPending,
		DocumentNumber: strings.TrimSpace(documentNumber),
		EvidenceRefs:   append([]string(nil), evidenceRefs...),
		SubmittedAt:    now,
	}, nil
}

// CanDecide reports whether a reviewer decision may still be applied.
func (d *Document) CanDecide() bool {
	return d.Status == DocumentPending
}

// ApplyDecision records a reviewer decision. Callers check CanDecide first.
func (d *Document) ApplyDecision(decision Decision, reason, reviewer string, now time.Time) {
	reviewedAt := now
	d.ReviewedAt = &reviewedAt
	d.ReviewedBy = reviewer
	switch decision {
	case DecisionApprove:
		d.Status = DocumentApproved
	case DecisionReject:
		d.Status = DocumentRejected
		d.RejectionReason = reason
	}
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (d *Document) Clone() *Document {
	cp := *d
	cp.EvidenceRefs = append([]string(nil), d.EvidenceRefs...)
	if d.ReviewedAt != nil {
		t := *d.ReviewedAt
		cp.ReviewedAt = &t
	}
	return &cp
}

// newer orders documents by SubmittedAt, breaking ties by ID. Document ids
// are time-ordered, so of two uploads in the same instant the later one wins.
func newer(a, b *Document) bool {
	if !a.SubmittedAt.Equal(b.SubmittedAt) {
		return a.SubmittedAt.After(b.SubmittedAt)
	}
	return a.ID.String() > b.ID.String()
}

// LatestByType returns the most recent document per type.
func LatestByType(docs []Document) map[DocumentType]*Document {
	latest := make(map[DocumentType]*Document, len(docs))
	for i := range docs {
		d := &docs[i]
		if cur, ok := latest[d.Type]; !ok || newer(d, cur) {
			latest[d.Type] = d
		}
	}
	return latest
}
