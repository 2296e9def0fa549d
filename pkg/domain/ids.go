// Package domain holds identifier primitives shared across modules.
//
// IDs are distinct named types over uuid.UUID so a LeadID can never be passed
// where an ApplicationID is expected. Parse* functions are the trust boundary
// for IDs arriving in URLs and tokens.
package domain

import (
	"github.com/google/uuid"

	dErrors "loanbroker/pkg/domain-errors"
)

type (
	UserID        uuid.UUID
	LeadID        uuid.UUID
	ApplicationID uuid.UUID
)

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be nil")
	}
	return u, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

func ParseLeadID(s string) (LeadID, error) {
	u, err := parseUUID(s, "lead id")
	return LeadID(u), err
}

func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := parseUUID(s, "application id")
	return ApplicationID(u), err
}

func NewUserID() UserID               { return UserID(uuid.New()) }
func NewLeadID() LeadID               { return LeadID(uuid.New()) }
func NewApplicationID() ApplicationID { return ApplicationID(uuid.New()) }

func (id UserID) String() string        { return uuid.UUID(id).String() }
func (id LeadID) String() string        { return uuid.UUID(id).String() }
func (id ApplicationID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id LeadID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ApplicationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id LeadID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id ApplicationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id *LeadID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id *ApplicationID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
