package audit

import (
	"context"
	"time"

	id "verigate/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose so stores
// and sinks can apply different delivery guarantees.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance: reviewer
	// decisions, submissions and registrations. Persistence is fail-closed.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers authorization denials worth alerting on.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. It stays
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	Subject   string
	Action    string
	Decision  string
	Reason    string
	RequestID string
	// ActorID is the reviewer when someone other than the user acted.
	ActorID string
	// DocumentNumberHash is a keyed hash of the document number so the trail
	// can be correlated without storing the raw number.
	DocumentNumberHash string
}

type AuditEvent string

const (
	EventRoleRegistered      AuditEvent = "role_registered"
	EventPersonalInfoUpdated AuditEvent = "personal_info_updated"
	EventDocumentUploaded    AuditEvent = "document_uploaded"
	EventDocumentApproved    AuditEvent = "document_approved"
	EventDocumentRejected    AuditEvent = "document_rejected"
	EventProfileSubmitted    AuditEvent = "profile_submitted"
	EventProfileTransitioned AuditEvent = "profile_transitioned"
	EventRoleSwitched        AuditEvent = "role_switched"
	EventRoleSwitchDenied    AuditEvent = "role_switch_denied"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventRoleRegistered:      CategoryCompliance,
	EventDocumentApproved:    CategoryCompliance,
	EventDocumentRejected:    CategoryCompliance,
	EventProfileSubmitted:    CategoryCompliance,
	EventProfileTransitioned: CategoryCompliance,

	EventRoleSwitchDenied: CategorySecurity,

	EventPersonalInfoUpdated: CategoryOperations,
	EventDocumentUploaded:    CategoryOperations,
	EventRoleSwitched:        CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}

// Sink receives a copy of every persisted event for downstream consumers.
type Sink interface {
	Publish(ctx context.Context, key string, value []byte) error
}
