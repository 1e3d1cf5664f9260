// Package model contains domain models passed between layers.
package model

// TeamFootball is the team value tracking data uses for the ball.
const TeamFootball = "football"

// EventBallSnap marks the tracking frame taken at the snap.
const EventBallSnap = "ball_snap"

// PlayKey identifies a play within a game.
type PlayKey struct {
	GameID int64
	PlayID int64
}

// TrackedFrame is one tracking row: the ball (NflID 0) or a player at one event of a play.
type TrackedFrame struct {
	GameID        int64
	PlayID        int64
	NflID         int64 // 0 for the ball
	FrameID       int
	Event         string
	Team          string
	PlayDirection string
	X, Y          float64
	S, A          float64 // speed, acceleration
	Dir, O        float64 // direction, orientation
}

// Key returns the frame's play key.
func (f TrackedFrame) Key() PlayKey { return PlayKey{GameID: f.GameID, PlayID: f.PlayID} }

// IsBall reports whether the frame tracks the football.
func (f TrackedFrame) IsBall() bool { return f.Team == TeamFootball }

// Player maps a tracked entity to its official roster position.
type Player struct {
	NflID            int64
	OfficialPosition string
	DisplayName      string
}

// Play holds the situational fields of a play. Pointer fields are nil when the
// source value is missing.
type Play struct {
	GameID                 int64
	PlayID                 int64
	Down                   int // 0 is "not a down"
	YardsToGo              *float64
	AbsoluteYardlineNumber *float64
	OffenseFormation       string
	PersonnelO             string
	PersonnelD             string
	DefendersInBox         *float64
}

// Key returns the play key.
func (p Play) Key() PlayKey { return PlayKey{GameID: p.GameID, PlayID: p.PlayID} }

// Outcome is one per-player scouting row. Sack is nil when the source leaves it blank.
type Outcome struct {
	GameID int64
	PlayID int64
	NflID  int64
	Sack   *float64
}

// SnapState is an entity at the snap, normalized to the offense-relative frame.
type SnapState struct {
	GameID   int64
	PlayID   int64
	NflID    int64
	Team     string
	Position string // official roster position, uncollapsed
	X, Y     float64
	RelX     float64 // depth from the line of scrimmage
	RelY     float64 // lateral offset from the ball
	S, A     float64
}

// DefenderFeatureRow is the modelling unit: one defender on one play.
type DefenderFeatureRow struct {
	GameID int64
	PlayID int64
	NflID  int64

	Down                   int
	YardsToGo              float64
	AbsoluteYardlineNumber float64
	DefendersInBox         float64
	OffenseFormation       string

	NumRB, NumTE, NumWR float64
	NumDL, NumLB, NumDB float64

	Position string
	RelX     float64
	RelY     float64
	S, A     float64
	BallX    float64
	BallY    float64

	OlineMin   float64
	OlineMax   float64
	OlineWidth float64

	QBDistFromBall float64
	QBRelX         float64
	QBRelY         float64
	DistFromQB     float64

	Sack int // label, 0 or 1
}

// Dataset holds every table the assembler joins.
type Dataset struct {
	Snaps    []TrackedFrame
	Players  []Player
	Plays    []Play
	Outcomes []Outcome
}
