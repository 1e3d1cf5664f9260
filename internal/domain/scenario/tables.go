package scenario

import (
	"fmt"
	"strings"
)

// BallSpot is the lateral spot of the ball.
type BallSpot string

// Ball spots.
const (
	LeftHash  BallSpot = "Left Hash"
	Middle    BallSpot = "Middle"
	RightHash BallSpot = "Right Hash"
)

var ballY = map[BallSpot]float64{
	LeftHash:  23.6,
	Middle:    27.0,
	RightHash: 29.7,
}

// ParseBallSpot accepts "Left Hash", "Middle", "Right Hash" and the short forms "Left" and "Right".
func ParseBallSpot(s string) (BallSpot, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left hash", "left":
		return LeftHash, nil
	case "middle":
		return Middle, nil
	case "right hash", "right":
		return RightHash, nil
	}
	return "", fmt.Errorf("%w: ball spot %q", ErrInvalidScenario, s)
}

// BallSpots lists the ball spots in field order.
func BallSpots() []BallSpot { return []BallSpot{LeftHash, Middle, RightHash} }

// Y returns the absolute lateral coordinate of the spot.
func (b BallSpot) Y() float64 { return ballY[b] }

// Formation is an offensive formation as it appears in the training data.
type Formation string

// Offensive formations.
const (
	Empty      Formation = "EMPTY"
	IForm      Formation = "I_FORM"
	Jumbo      Formation = "JUMBO"
	Pistol     Formation = "PISTOL"
	Shotgun    Formation = "SHOTGUN"
	Singleback Formation = "SINGLEBACK"
	Wildcat    Formation = "WILDCAT"
)

// Formations lists the offensive formations.
func Formations() []Formation {
	return []Formation{Empty, IForm, Jumbo, Pistol, Shotgun, Singleback, Wildcat}
}

var formationLabels = map[string]Formation{
	"empty":       Empty,
	"i formation": IForm,
	"i_form":      IForm,
	"jumbo":       Jumbo,
	"pistol":      Pistol,
	"shotgun":     Shotgun,
	"singleback":  Singleback,
	"wildcat":     Wildcat,
}

// ParseFormation accepts data codes (SHOTGUN, I_FORM) and display labels (Shotgun, I Formation).
func ParseFormation(s string) (Formation, error) {
	f, ok := formationLabels[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: offense formation %q", ErrInvalidScenario, s)
	}
	return f, nil
}

// QBAlignment is the canonical quarterback spot for a formation: depth behind
// the ball and lateral offset.
type QBAlignment struct {
	Depth  float64
	Offset float64
}

// Side is the side of the ball a technique is played on.
type Side string

// Sides. Left offsets are positive.
const (
	SideLeft  Side = "L"
	SideRight Side = "R"
)

// ParseSide accepts L or R.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideLeft:
		return SideLeft, nil
	case SideRight:
		return SideRight, nil
	}
	return "", fmt.Errorf("%w: side %q", ErrInvalidScenario, s)
}

// FallbackTechnique is used for technique labels missing from the table.
const FallbackTechnique = "Wide"

// Tables holds the fixed lookups used to reconstruct features. A Tables value
// is built once and shared read-only.
type Tables struct {
	qb         map[Formation]QBAlignment
	techniques map[string]float64
}

// DefaultTables returns the formation and technique tables.
func DefaultTables() Tables {
	return Tables{
		qb: map[Formation]QBAlignment{
			Shotgun:    {Depth: 5},
			Empty:      {Depth: 5},
			Pistol:     {Depth: 5},
			Wildcat:    {Depth: 5},
			IForm:      {Depth: 1.5},
			Jumbo:      {Depth: 1.5},
			Singleback: {Depth: 1.5},
		},
		techniques: map[string]float64{
			"0":    0,
			"1":    0.4,
			"2i":   0.8,
			"2":    1.0,
			"3":    1.2,
			"4i":   2.2,
			"4":    2.5,
			"5":    2.9,
			"6":    3.8,
			"7/9":  4.6,
			"Slot": 10,
			"Wide": 20,
		},
	}
}

// QB returns the canonical quarterback alignment of f.
func (t Tables) QB(f Formation) (QBAlignment, bool) {
	a, ok := t.qb[f]
	return a, ok
}

// LateralOffset converts a technique and side into rel_y. Unknown techniques
// use FallbackTechnique.
func (t Tables) LateralOffset(technique string, side Side) float64 {
	mag, ok := t.techniques[strings.TrimSpace(technique)]
	if !ok {
		mag = t.techniques[FallbackTechnique]
	}
	if side == SideRight {
		return -mag
	}
	return mag
}

// Techniques lists the known technique labels.
func (t Tables) Techniques() []string {
	return []string{"0", "1", "2i", "2", "3", "4i", "4", "5", "6", "7/9", "Slot", "Wide"}
}
