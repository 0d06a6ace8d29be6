package model

import (
	"time"
)

// Assignment is the single system-proposed pairing held for a professional.
type Assignment struct {
	ProfessionalID int64      `db:"professional_id" json:"professional_id"`
	FacilityID     int64      `db:"facility_id" json:"facility_id"`
	Score          int        `db:"score" json:"score"`
	ProposedAt     time.Time  `db:"proposed_at" json:"proposed_at"`
	Status         Status     `db:"status" json:"status"`
	DecidedAt      *time.Time `db:"decided_at" json:"decided_at,omitempty"`
}

// AssignmentView adds display names for approval listings.
type AssignmentView struct {
	Assignment
	ProfessionalName string `db:"professional_name" json:"professional_name"`
	FacilityName     string `db:"facility_name" json:"facility_name"`
}

// ProposedAssignment is one matcher output.
type ProposedAssignment struct {
	ProfessionalID int64 `json:"professional_id"`
	FacilityID     int64 `json:"facility_id"`
	Score          int   `json:"score"`
}

type CommandKind string

const (
	CommandInsert    CommandKind = "insert"
	CommandOverwrite CommandKind = "overwrite"
)

// AssignmentCommand states what applying a proposal does to the store:
// Insert creates the professional's row, Overwrite replaces facility, score
// and timestamp of the existing row and resets it to Pending. Prior proposals
// are not retained.
type AssignmentCommand struct {
	Kind     CommandKind
	Proposal ProposedAssignment
	At       time.Time
}

// PlanAssignment picks the command for a proposal given the current row, if any.
func PlanAssignment(existing *Assignment, p ProposedAssignment, at time.Time) AssignmentCommand {
	kind := CommandInsert
	if existing != nil {
		kind = CommandOverwrite
	}
	return AssignmentCommand{Kind: kind, Proposal: p, At: at}
}

// Row is the assignment as it stands after the command ran.
func (c AssignmentCommand) Row() Assignment {
	return Assignment{
		ProfessionalID: c.Proposal.ProfessionalID,
		FacilityID:     c.Proposal.FacilityID,
		Score:          c.Proposal.Score,
		ProposedAt:     c.At,
		Status:         StatusPending,
	}
}
