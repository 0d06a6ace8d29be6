package model

import (
	"sort"
	"strings"
)

// TagSet is a set of trimmed skill or need tokens. The comma-joined string
// form only exists at the storage boundary.
type TagSet map[string]struct{}

// ParseTags splits a comma-delimited string into a set. Empty tokens are dropped.
func ParseTags(s string) TagSet {
	set := make(TagSet)
	for _, tok := range strings.Split(s, ",") {
		set.Add(tok)
	}
	return set
}

// NewTagSet builds a set from already split values.
func NewTagSet(values ...string) TagSet {
	set := make(TagSet, len(values))
	for _, v := range values {
		set.Add(v)
	}
	return set
}

func (t TagSet) Add(tok string) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return
	}
	t[tok] = struct{}{}
}

func (t TagSet) Has(tok string) bool {
	_, ok := t[tok]
	return ok
}

// Merge adds every token of other into t.
func (t TagSet) Merge(other TagSet) {
	for tok := range other {
		t[tok] = struct{}{}
	}
}

// Overlap returns |t ∩ other|.
func (t TagSet) Overlap(other TagSet) int {
	small, large := t, other
	if len(small) > len(large) {
		small, large = large, small
	}
	n := 0
	for tok := range small {
		if large.Has(tok) {
			n++
		}
	}
	return n
}

// Sorted returns the tokens in ascending order.
func (t TagSet) Sorted() []string {
	out := make([]string, 0, len(t))
	for tok := range t {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// String encodes the set in its comma-joined storage form.
func (t TagSet) String() string {
	return strings.Join(t.Sorted(), ",")
}
