// Package roles resolves the ball, the quarterback and defensive positions of a play.
package roles

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/okian/sackline/internal/domain/model"
)

// Sentinel errors.
var (
	ErrUnknownPosition = errors.New("unknown defensive position")
	ErrNoBall          = errors.New("no ball at snap")
	ErrMultipleBalls   = errors.New("more than one ball at snap")
)

// Position is a modelled defensive position.
type Position string

// Supported defensive positions. Anything else collapses to Other.
const (
	CB    Position = "CB"
	DE    Position = "DE"
	DT    Position = "DT"
	FS    Position = "FS"
	ILB   Position = "ILB"
	MLB   Position = "MLB"
	NT    Position = "NT"
	OLB   Position = "OLB"
	SS    Position = "SS"
	Other Position = "Other"
)

// Quarterback and offensive-line roster positions.
const (
	QB     = "QB"
	Tackle = "T"
	Guard  = "G"
	Center = "C"
)

var supported = []Position{CB, DE, DT, FS, ILB, MLB, NT, OLB, SS}

// Supported returns the modelled positions in ascending order.
func Supported() []Position {
	out := make([]Position, len(supported))
	copy(out, supported)
	return out
}

// Valid reports whether p is a modelled position.
func (p Position) Valid() bool {
	for _, s := range supported {
		if p == s {
			return true
		}
	}
	return false
}

// ParsePosition accepts only modelled positions (case-insensitive).
func ParsePosition(s string) (Position, error) {
	p := Position(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPosition, s)
	}
	return p, nil
}

// Collapse maps a roster position to a modelled position or Other.
func Collapse(s string) Position {
	p, err := ParsePosition(s)
	if err != nil {
		return Other
	}
	return p
}

// IsOffensiveLine reports whether a roster position is a tackle, guard or center.
func IsOffensiveLine(pos string) bool {
	switch pos {
	case Tackle, Guard, Center:
		return true
	}
	return false
}

// Ball returns the single ball frame among a play's snap frames.
func Ball(frames []model.TrackedFrame) (model.TrackedFrame, error) {
	var (
		ball  model.TrackedFrame
		found int
	)
	for _, f := range frames {
		if f.IsBall() {
			ball = f
			found++
		}
	}
	switch found {
	case 0:
		return model.TrackedFrame{}, ErrNoBall
	case 1:
		return ball, nil
	default:
		return model.TrackedFrame{}, fmt.Errorf("%w: %d", ErrMultipleBalls, found)
	}
}

// Quarterback picks the play's quarterback. With several entities tagged QB
// the one laterally closest to the ball wins; equal distances fall back to
// the lowest player id. ok is false when no entity is tagged QB.
func Quarterback(entities []model.SnapState, ballY float64) (qb model.SnapState, ok bool) {
	best := math.Inf(1)
	for _, e := range entities {
		if e.Position != QB {
			continue
		}
		d := math.Abs(e.Y - ballY)
		if !ok || d < best || (d == best && e.NflID < qb.NflID) {
			qb, best, ok = e, d, true
		}
	}
	return qb, ok
}

// Defenders returns the entities not on the quarterback's team.
func Defenders(entities []model.SnapState, qb model.SnapState) []model.SnapState {
	out := make([]model.SnapState, 0, len(entities)/2)
	for _, e := range entities {
		if e.Team != qb.Team && e.Team != model.TeamFootball {
			out = append(out, e)
		}
	}
	return out
}
