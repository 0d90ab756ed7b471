// Package domain holds primitive value types shared across modules.
//
// IDs are distinct named types over uuid.UUID so a DocumentID can never be
// passed where a UserID is expected. Parse* functions are the trust boundary:
// they reject empty, malformed and nil UUIDs with CodeInvalidInput.
package domain

import (
	"github.com/google/uuid"

	dErrors "verigate/pkg/domain-errors"
)

type (
	UserID     uuid.UUID
	SessionID  uuid.UUID
	DocumentID uuid.UUID
	ReviewerID uuid.UUID
)

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	return u, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s, "session id")
	return SessionID(u), err
}

func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s, "document id")
	return DocumentID(u), err
}

func ParseReviewerID(s string) (ReviewerID, error) {
	u, err := parseUUID(s, "reviewer id")
	return ReviewerID(u), err
}

func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id SessionID) String() string  { return uuid.UUID(id).String() }
func (id DocumentID) String() string { return uuid.UUID(id).String() }
func (id ReviewerID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ReviewerID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed IDs appear as canonical strings in JSON payloads.
func (id UserID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id SessionID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id DocumentID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id ReviewerID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// NewDocumentID mints a time-ordered (version 7) document id. Ids minted by
// one process sort in creation order, which breaks SubmittedAt ties.
func NewDocumentID() DocumentID { return DocumentID(uuid.Must(uuid.NewV7())) }

// NewSessionID mints a random session id.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

func unmarshalUUID(text []byte) (uuid.UUID, error) {
	if len(text) == 0 {
		return uuid.Nil, nil
	}
	return uuid.ParseBytes(text)
}

// UnmarshalText accepts the canonical form; storage round-trips may carry nil IDs.
func (id *UserID) UnmarshalText(text []byte) error {
	u, err := unmarshalUUID(text)
	*id = UserID(u)
	return err
}

func (id *SessionID) UnmarshalText(text []byte) error {
	u, err := unmarshalUUID(text)
	*id = SessionID(u)
	return err
}

func (id *DocumentID) UnmarshalText(text []byte) error {
	u, err := unmarshalUUID(text)
	*id = DocumentID(u)
	return err
}

func (id *ReviewerID) UnmarshalText(text []byte) error {
	u, err := unmarshalUUID(text)
	*id = ReviewerID(u)
	return err
}
