// Package report renders a Markdown summary of devices, integrated knowledge
// and recent sync history.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/kbsync/pkg/core"
)

// HistoryLimit is how many of the latest history entries a report lists.
const HistoryLimit = 10

// TimeLayout formats timestamps in reports.
const TimeLayout = "2006-01-02 15:04:05"

// Source is the read side of core.Store a report needs.
type Source interface {
	Devices() []core.Device
	DeviceStatus(id string) (core.DeviceStatus, bool)
	Integrate() []core.Record
	History() []core.SyncEvent
}

var _ Source = (*core.Store)(nil)

// CategoryCount is the number of integrated records of a category.
type CategoryCount struct {
	Category core.Category
	Count    int
}

// CountCategories counts records per category, in first-encounter order.
func CountCategories(records []core.Record) []CategoryCount {
	var out []CategoryCount
	index := make(map[core.Category]int)
	for _, r := range records {
		i, ok := index[r.Category]
		if !ok {
			i = len(out)
			index[r.Category] = i
			out = append(out, CategoryCount{Category: r.Category})
		}
		out[i].Count++
	}
	return out
}

// Generate renders the report as of now.
func Generate(src Source, now time.Time) string {
	var b strings.Builder

	b.WriteString("# Multi-device sync report\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", now.Format(TimeLayout))

	b.WriteString("## Devices\n")
	for _, d := range src.Devices() {
		status, ok := src.DeviceStatus(d.ID)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "### %s\n", displayName(d))
		fmt.Fprintf(&b, "- Platform: %s\n", d.Platform)
		fmt.Fprintf(&b, "- Account: %s\n", d.Account)
		fmt.Fprintf(&b, "- Role: %s\n", d.Role)
		fmt.Fprintf(&b, "- Knowledge: %d\n", status.KnowledgeCount)
		fmt.Fprintf(&b, "- Status: %s\n", status.State)
		if status.Latest != nil {
			fmt.Fprintf(&b, "- Last sync: %s\n", status.Latest.Timestamp.Format(TimeLayout))
		}
		b.WriteString("\n")
	}

	integrated := src.Integrate()
	b.WriteString("## Integrated knowledge\n")
	fmt.Fprintf(&b, "- Total: %d\n", len(integrated))
	b.WriteString("- By category:\n")
	for _, c := range CountCategories(integrated) {
		fmt.Fprintf(&b, "  - %s: %d\n", c.Category, c.Count)
	}
	b.WriteString("\n")

	b.WriteString("## Sync history\n")
	history := src.History()
	if len(history) > HistoryLimit {
		history = history[len(history)-HistoryLimit:]
	}
	for _, ev := range history {
		fmt.Fprintf(&b, "- %s: %s %s - %s", ev.DeviceID, ev.Timestamp.Format(TimeLayout), ev.Direction, ev.Outcome)
		if ev.Err != "" {
			fmt.Fprintf(&b, " (%s)", ev.Err)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func displayName(d core.Device) string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}
