package domain

import (
	"github.com/google/uuid"

	dErrors "enrolldesk/pkg/domain-errors"
)

// ApplicationID identifies an admission application. The distinct type keeps
// application IDs from being confused with other UUIDs at compile time.
type ApplicationID uuid.UUID

// NewApplicationID generates a fresh application ID.
func NewApplicationID() ApplicationID {
	return ApplicationID(uuid.New())
}

// ParseApplicationID constructs an ApplicationID from external input.
//
// Errors: returns CodeInvalidInput when the value is empty, malformed, or the
// nil UUID; no other errors are expected.
func ParseApplicationID(s string) (ApplicationID, error) {
	if s == "" {
		return ApplicationID{}, dErrors.New(dErrors.CodeInvalidInput, "application id cannot be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return ApplicationID{}, dErrors.New(dErrors.CodeInvalidInput, "application id must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return ApplicationID{}, dErrors.New(dErrors.CodeInvalidInput, "application id cannot be the nil UUID")
	}
	return ApplicationID(parsed), nil
}

func (id ApplicationID) String() string {
	return uuid.UUID(id).String()
}

// MarshalText encodes the ID as its canonical UUID string so JSON clients can
// round-trip it through URL paths.
func (id ApplicationID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

// UnmarshalText accepts any UUID string form that ParseApplicationID accepts.
func (id *ApplicationID) UnmarshalText(data []byte) error {
	parsed, err := ParseApplicationID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// IsNil reports whether the ID is the zero value.
func (id ApplicationID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}
