package event

import (
	"time"

	"github.com/nidahp/portal-api/internal/model"
)

type NeedPayload struct {
	NeedID      int64             `json:"need_id"`
	FacilityID  int64             `json:"facility_id"`
	ProgramType model.ProgramType `json:"program_type,omitempty"`
	At          time.Time         `json:"at"`
}

type MatchingPayload struct {
	Proposed             int       `json:"proposed"`
	Inserted             int       `json:"inserted"`
	Overwritten          int       `json:"overwritten"`
	Failed               int       `json:"failed"`
	SkippedProfessionals int       `json:"skipped_professionals"`
	SkippedFacilities    int       `json:"skipped_facilities"`
	At                   time.Time `json:"at"`
}

type AssignmentPayload struct {
	ProfessionalID int64        `json:"professional_id"`
	FacilityID     int64        `json:"facility_id"`
	Status         model.Status `json:"status"`
	At             time.Time    `json:"at"`
}

type InterestPayload struct {
	InterestID     int64        `json:"interest_id"`
	ProfessionalID int64        `json:"professional_id"`
	NeedID         int64        `json:"need_id"`
	Status         model.Status `json:"status"`
	At             time.Time    `json:"at"`
}
