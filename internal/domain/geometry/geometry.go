// Package geometry derives offensive-line, quarterback and distance features.
// Values are used as measured: nothing is clipped or smoothed.
package geometry

import (
	"math"

	"github.com/okian/sackline/internal/domain/model"
	"github.com/okian/sackline/internal/domain/roles"
)

// OffensiveLine is the lateral span of the tackles, guards and center.
type OffensiveLine struct {
	Min   float64
	Max   float64
	Width float64
}

// Quarterback is the resolved quarterback's geometry on a play.
type Quarterback struct {
	X, Y         float64 // absolute
	RelX, RelY   float64
	DistFromBall float64
}

// OffensiveLineOf computes the line span from a play's snap entities.
// ok is false when no T, G or C is present; callers must drop the play.
func OffensiveLineOf(entities []model.SnapState) (line OffensiveLine, ok bool) {
	for _, e := range entities {
		if !roles.IsOffensiveLine(e.Position) {
			continue
		}
		if !ok {
			line.Min, line.Max, ok = e.RelY, e.RelY, true
			continue
		}
		line.Min = math.Min(line.Min, e.RelY)
		line.Max = math.Max(line.Max, e.RelY)
	}
	line.Width = line.Max - line.Min
	return line, ok
}

// QuarterbackOf builds quarterback geometry relative to the ball.
func QuarterbackOf(qb model.SnapState, ballX, ballY float64) Quarterback {
	return Quarterback{
		X:            qb.X,
		Y:            qb.Y,
		RelX:         qb.RelX,
		RelY:         qb.RelY,
		DistFromBall: Distance(qb.X, qb.Y, ballX, ballY),
	}
}

// DistanceFromQB is the defender's straight-line distance to the quarterback.
func DistanceFromQB(defender model.SnapState, qb Quarterback) float64 {
	return Distance(defender.X, defender.Y, qb.X, qb.Y)
}

// Distance is the Euclidean distance between two points.
func Distance(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x1-x2, y1-y2)
}
