package pipeline

import (
	"slices"
	"strings"
)

// Reason names why an entity, play or defender left the dataset.
type Reason string

// Drop reasons.
const (
	DropNoBall           Reason = "no_ball"
	DropMultipleBalls    Reason = "multiple_balls"
	DropInvalidDirection Reason = "invalid_direction"
	DropNoRoster         Reason = "no_roster_entry"
	DropNoOffensiveLine  Reason = "no_offensive_line"
	DropNoQuarterback    Reason = "no_quarterback"
	DropNoPlayContext    Reason = "no_play_context"
	DropNotADown         Reason = "not_a_down"
	DropIncompletePlay   Reason = "incomplete_play"
	DropNoOutcome        Reason = "no_outcome"
	DropOtherPosition    Reason = "other_position"
)

// DropReport counts drops by reason. Entity-level reasons count frames,
// play-level reasons count plays, defender-level reasons count defenders.
type DropReport map[Reason]int

// Add records n drops for r.
func (d DropReport) Add(r Reason, n int) {
	if n > 0 {
		d[r] += n
	}
}

// Total is the sum over all reasons.
func (d DropReport) Total() int {
	t := 0
	for _, n := range d {
		t += n
	}
	return t
}

// Reasons returns the recorded reasons in name order.
func (d DropReport) Reasons() []Reason {
	out := make([]Reason, 0, len(d))
	for r := range d {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Reason) int { return strings.Compare(string(a), string(b)) })
	return out
}
