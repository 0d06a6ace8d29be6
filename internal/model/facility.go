package model

import (
	"time"
)

type Facility struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	State     string    `db:"state" json:"state"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// FacilityNeedTags is the matcher's view of a facility: one raw tag string per
// need it owns. A nil entry marks a malformed need row.
type FacilityNeedTags struct {
	FacilityID int64
	Tags       []*string
}
