package types

import (
	"time"

	"github.com/google/uuid"
)

// EventID represents a UUID event identifier.
// String alias enables type safety while maintaining JSON string serialization.
type EventID string

// RuleID represents a UUIDv7 rule identifier.
type RuleID string

// GrantID represents a UUIDv7 grant identifier.
type GrantID string

// SubjectID represents a subject identifier assigned at onboarding.
type SubjectID string

// NewRuleID generates a UUIDv7 rule identifier.
// Time-ordered IDs preserve creation order when rules are listed from SQL.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewRuleID() RuleID {
	return RuleID(uuid.Must(uuid.NewV7()).String())
}

// NewGrantID generates a UUIDv7 grant identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewGrantID() GrantID {
	return GrantID(uuid.Must(uuid.NewV7()).String())
}

// ParseRuleID validates and converts a string to RuleID.
// Rejects malformed UUIDs to prevent invalid IDs from entering the system.
func ParseRuleID(s string) (RuleID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return RuleID(s), nil
}

// ParseSubjectID validates and converts a string to SubjectID.
func ParseSubjectID(s string) (SubjectID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return SubjectID(s), nil
}

// GrantIDTime extracts the timestamp embedded in a UUIDv7 grant ID.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func GrantIDTime(id GrantID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
