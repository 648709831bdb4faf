package core_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/aretw0/kbsync/pkg/core"
)

func TestIntegrate(t *testing.T) {
	archived := rec("a1", "main-pc", 5, t0)
	archived.Status = core.StatusArchived
	draft := rec("d1", "main-pc", 5, t0)
	draft.Status = core.StatusDraft

	tests := []struct {
		name  string
		input []core.Record
		want  []string
	}{
		{
			name:  "empty collection",
			input: nil,
			want:  []string{},
		},
		{
			name: "priority descending",
			input: []core.Record{
				rec("low", "main-pc", 1, t0),
				rec("high", "main-pc", 5, t0),
				rec("mid", "sub-pc", 3, t0),
			},
			want: []string{"high@main-pc", "mid@sub-pc", "low@main-pc"},
		},
		{
			name: "updated_at descending within a priority",
			input: []core.Record{
				rec("old", "main-pc", 3, t0),
				rec("new", "main-pc", 3, t0.Add(time.Hour)),
			},
			want: []string{"new@main-pc", "old@main-pc"},
		},
		{
			name: "equal keys keep encounter order",
			input: []core.Record{
				rec("b", "main-pc", 3, t0),
				rec("a", "sub-pc", 3, t0),
				rec("c", "main-pc", 3, t0),
			},
			want: []string{"b@main-pc", "a@sub-pc", "c@main-pc"},
		},
		{
			name: "first occurrence of an id wins",
			input: []core.Record{
				rec("dup", "main-pc", 2, t0),
				rec("dup", "sub-pc", 5, t0.Add(time.Hour)),
			},
			want: []string{"dup@main-pc"},
		},
		{
			name: "inactive records are skipped before dedup",
			input: []core.Record{
				archived,
				draft,
				rec("a1", "sub-pc", 1, t0),
			},
			want: []string{"a1@sub-pc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := core.Integrate(tt.input)
			if diff := cmp.Diff(tt.want, ids(got)); diff != "" {
				t.Errorf("Integrate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIntegrate_Idempotent(t *testing.T) {
	input := []core.Record{
		rec("x", "main-pc", 2, t0),
		rec("y", "sub-pc", 2, t0),
		rec("z", "main-pc", 4, t0.Add(time.Minute)),
		rec("x", "sub-pc", 5, t0),
	}

	first := core.Integrate(input)
	second := core.Integrate(input)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Integrate() not idempotent (-first +second):\n%s", diff)
	}
}

func TestIntegrate_OrderingProperty(t *testing.T) {
	var input []core.Record
	for i := 0; i < 40; i++ {
		r := rec(string(rune('a'+i%26))+string(rune('a'+i/26)), "main-pc", 1+(i*7)%5, t0.Add(time.Duration((i*13)%9)*time.Minute))
		input = append(input, r)
	}

	got := core.Integrate(input)
	for i := 1; i < len(got); i++ {
		a, b := got[i-1], got[i]
		ok := a.Priority > b.Priority || (a.Priority == b.Priority && !a.UpdatedAt.Before(b.UpdatedAt))
		assert.Truef(t, ok, "%s (p%d %s) precedes %s (p%d %s)", a.ID, a.Priority, a.UpdatedAt, b.ID, b.Priority, b.UpdatedAt)
	}
}

func TestIntegrate_DoesNotAliasInput(t *testing.T) {
	input := []core.Record{rec("r1", "main-pc", 3, t0)}

	got := core.Integrate(input)
	got[0].Tags[0] = "mutated"

	assert.Equal(t, "seed", input[0].Tags[0])
}
