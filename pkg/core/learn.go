package core

import (
	"slices"
	"time"
)

// Learn computes the records the target device learns from its peers.
//
// Peers are visited in the order of devices, their active records in the order
// of records. A record is learned when the target holds no record with the same
// ID yet (whatever its status); the copy is owned by target, refreshed to now
// (never earlier than its CreatedAt) and tagged LearnedTag. The input slice is
// never modified: the caller appends the returned records to its collection.
//
// Only the target's own records count as held. Copies of a record on other
// devices do not stop the target from learning it, so after a round every
// device holds every active ID.
func Learn(devices []Device, records []Record, target string, now time.Time) []Record {
	held := make(map[string]struct{})
	for _, r := range records {
		if r.OriginDevice == target {
			held[r.ID] = struct{}{}
		}
	}

	var learned []Record
	for _, d := range devices {
		if d.ID == target {
			continue
		}
		for _, r := range records {
			if r.OriginDevice != d.ID || !r.IsActive() {
				continue
			}
			if _, ok := held[r.ID]; ok {
				continue
			}
			held[r.ID] = struct{}{}
			learned = append(learned, learnedCopy(r, target, now))
		}
	}
	return learned
}

func learnedCopy(src Record, target string, now time.Time) Record {
	tags := make([]string, 0, len(src.Tags)+1)
	tags = append(tags, src.Tags...)
	tags = append(tags, LearnedTag)

	updated := now
	if updated.Before(src.CreatedAt) {
		updated = src.CreatedAt
	}

	return Record{
		ID:           src.ID,
		Title:        src.Title,
		Content:      src.Content,
		Category:     src.Category,
		OriginDevice: target,
		CreatedAt:    src.CreatedAt,
		UpdatedAt:    updated,
		Tags:         slices.Clip(tags),
		Priority:     src.Priority,
		Status:       StatusActive,
	}
}
