package model

import (
	"time"
)

// Status is the review state shared by assignments and interests.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Role of a registered account.
type Role string

const (
	RoleIndividual  Role = "individual"
	RoleAssociation Role = "association"
	RoleFacility    Role = "facility"
	RoleAdmin       Role = "admin"
)

// Matchable reports whether the role takes part in matching and may express interest.
func (r Role) Matchable() bool {
	return r == RoleIndividual || r == RoleAssociation
}

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

// SystemClock is the production clock, in UTC with microsecond precision so
// values round-trip through every supported database unchanged.
func SystemClock() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
