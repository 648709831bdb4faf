package core

import (
	"cmp"
	"slices"
)

// Integrate returns the distinct active records ranked by priority (descending),
// then UpdatedAt (descending). When several records share an ID the first one
// encountered wins. Records with equal keys keep their encounter order.
func Integrate(records []Record) []Record {
	seen := make(map[string]struct{}, len(records))
	integrated := make([]Record, 0, len(records))

	for _, r := range records {
		if !r.IsActive() {
			continue
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		integrated = append(integrated, r.Clone())
	}

	slices.SortStableFunc(integrated, compareRank)
	return integrated
}

// compareRank orders higher priority first, then more recently updated first.
func compareRank(a, b Record) int {
	if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
		return c
	}
	return b.UpdatedAt.Compare(a.UpdatedAt)
}
