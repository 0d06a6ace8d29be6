package model

import (
	"time"
)

// Professional is a registered diaspora health professional or association.
// Skills is the raw comma-joined column; NULL marks a malformed record.
type Professional struct {
	ID        int64     `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Role      Role      `db:"role" json:"role"`
	Skills    *string   `db:"skills" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SkillSet parses the stored skills. ok is false when the column is NULL.
func (p *Professional) SkillSet() (TagSet, bool) {
	if p.Skills == nil {
		return nil, false
	}
	return ParseTags(*p.Skills), true
}
