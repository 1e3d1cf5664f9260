// Package field converts absolute tracking coordinates into the
// offense-relative frame shared by training and serving.
package field

import (
	"errors"
	"fmt"
	"strings"
)

// Field dimensions in yards.
const (
	Length = 120.0
	Width  = 53.33
)

// ErrInvalidDirection is returned for play directions other than left or right.
var ErrInvalidDirection = errors.New("invalid play direction")

// Direction is the recorded direction of play.
type Direction string

const (
	// Right is the forward convention: the offense moves toward increasing x.
	Right Direction = "right"
	// Left is the reversed convention; both axes are mirrored.
	Left Direction = "left"
)

// ParseDirection accepts "left" or "right", case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case Right, Left:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}

// Normalize returns the entity's position relative to the ball in a frame
// where rel_x is depth beyond the line of scrimmage and the lateral sign does
// not depend on the recorded direction.
func Normalize(dir Direction, x, y, ballX, ballY float64) (relX, relY float64) {
	if dir == Left {
		return (Length - x) - (Length - ballX), (Width - y) - (Width - ballY)
	}
	return x - ballX, y - ballY
}
