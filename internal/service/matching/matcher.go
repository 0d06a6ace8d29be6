package matching

import (
	"sort"

	"github.com/nidahp/portal-api/internal/model"
)

// Result is the output of one matching pass.
type Result struct {
	Proposals            []model.ProposedAssignment `json:"proposals"`
	SkippedProfessionals int                        `json:"skipped_professionals"`
	SkippedFacilities    int                        `json:"skipped_facilities"`
}

type facilityTags struct {
	id   int64
	tags model.TagSet
}

// Compute proposes, for every individual or association professional, the
// facility whose aggregated need tags share the most tokens with the
// professional's skills. Facilities are scanned in ascending id and only a
// strictly greater score replaces the current best, so ties go to the lowest
// id. Professionals with no overlap anywhere get no proposal. Records with a
// NULL skill or tag column are skipped and counted.
func Compute(professionals []*model.Professional, facilities []*model.FacilityNeedTags) Result {
	var res Result

	candidates := make([]facilityTags, 0, len(facilities))
	for _, f := range facilities {
		if f == nil {
			res.SkippedFacilities++
			continue
		}
		tags, ok := aggregate(f.Tags)
		if !ok {
			res.SkippedFacilities++
			continue
		}
		candidates = append(candidates, facilityTags{id: f.FacilityID, tags: tags})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].id < candidates[j].id })

	pros := make([]*model.Professional, 0, len(professionals))
	for _, p := range professionals {
		if p == nil {
			res.SkippedProfessionals++
			continue
		}
		if p.Role.Matchable() {
			pros = append(pros, p)
		}
	}
	sort.Slice(pros, func(i, j int) bool { return pros[i].ID < pros[j].ID })

	for _, p := range pros {
		skills, ok := p.SkillSet()
		if !ok {
			res.SkippedProfessionals++
			continue
		}

		var best facilityTags
		bestScore := 0
		for _, c := range candidates {
			if score := skills.Overlap(c.tags); score > bestScore {
				best, bestScore = c, score
			}
		}
		if bestScore == 0 {
			continue
		}

		res.Proposals = append(res.Proposals, model.ProposedAssignment{
			ProfessionalID: p.ID,
			FacilityID:     best.id,
			Score:          bestScore,
		})
	}

	return res
}

// aggregate unions the parsed tag strings of a facility's needs. ok is false
// if any entry is NULL.
func aggregate(raw []*string) (model.TagSet, bool) {
	set := make(model.TagSet)
	for _, s := range raw {
		if s == nil {
			return nil, false
		}
		set.Merge(model.ParseTags(*s))
	}
	return set, true
}
