package model

import (
	"time"
)

type TrainingStatus string

const (
	TrainingScheduled TrainingStatus = "Scheduled"
	TrainingOngoing   TrainingStatus = "Ongoing"
	TrainingDone      TrainingStatus = "Done"
)

func (s TrainingStatus) Valid() bool {
	switch s {
	case TrainingScheduled, TrainingOngoing, TrainingDone:
		return true
	}
	return false
}

// Interest is a professional's request to engage with one need. A
// professional may hold many at once.
type Interest struct {
	ID             int64           `db:"id" json:"id"`
	ProfessionalID int64           `db:"professional_id" json:"professional_id"`
	NeedID         int64           `db:"need_id" json:"need_id"`
	Status         Status          `db:"status" json:"status"`
	TrainingTitle  *string         `db:"training_title" json:"training_title,omitempty"`
	TrainingStatus *TrainingStatus `db:"training_status" json:"training_status,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	DecidedAt      *time.Time      `db:"decided_at" json:"decided_at,omitempty"`
}

// InterestView joins an interest with the names shown on approval and
// engagement screens.
type InterestView struct {
	Interest
	ProfessionalName string      `db:"professional_name" json:"professional_name"`
	FacilityID       int64       `db:"facility_id" json:"facility_id"`
	FacilityName     string      `db:"facility_name" json:"facility_name"`
	NeedDescription  string      `db:"need_description" json:"need_description"`
	ProgramType      ProgramType `db:"program_type" json:"program_type"`
}

// InterestFilters narrows interest listings. Zero values are ignored.
type InterestFilters struct {
	Status         Status
	ProfessionalID int64
	ProgramType    ProgramType
}
