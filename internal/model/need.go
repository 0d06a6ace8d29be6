package model

import (
	"time"
)

type ProgramType string

const (
	ProgramTraining ProgramType = "Training"
	ProgramServices ProgramType = "Services"
)

func (p ProgramType) Valid() bool {
	return p == ProgramTraining || p == ProgramServices
}

// NeedEditWindow is how long after creation the owning facility may edit or
// delete a need.
const NeedEditWindow = 24 * time.Hour

type Need struct {
	ID          int64       `db:"id" json:"id"`
	FacilityID  int64       `db:"facility_id" json:"facility_id"`
	Description string      `db:"description" json:"description"`
	Quantity    int         `db:"quantity" json:"quantity"`
	ProgramType ProgramType `db:"program_type" json:"program_type"`
	Tags        string      `db:"tags" json:"-"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

func (n *Need) TagSet() TagSet {
	return ParseTags(n.Tags)
}

// LocksAt is the instant from which the need can no longer be changed.
func (n *Need) LocksAt() time.Time {
	return n.CreatedAt.Add(NeedEditWindow)
}

// Locked reports whether the edit window has elapsed at now. The boundary
// itself is locked.
func (n *Need) Locked(now time.Time) bool {
	return !now.Before(n.LocksAt())
}

// NeedFilters narrows need listings. Zero values are ignored.
type NeedFilters struct {
	FacilityID  int64
	ProgramType ProgramType
	Search      string
}

// NeedWithFacility is a need joined with its facility's name for listings.
type NeedWithFacility struct {
	Need
	FacilityName string `db:"facility_name" json:"facility_name"`
}
