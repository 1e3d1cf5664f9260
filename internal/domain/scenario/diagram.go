package scenario

// Marker sides.
const (
	Offense = "O"
	Defense = "D"
)

// offenseMarkerSize is the fixed marker size of offensive players.
const offenseMarkerSize = 0.4

// Marker is one player on the schematic. X is lateral (rel_y), Y is depth (rel_x).
type Marker struct {
	Label    string  `json:"label"`
	Position string  `json:"position,omitempty"`
	Side     string  `json:"side"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Size     float64 `json:"size"`
}

// Diagram is a scatter of offensive and defensive alignments with axis ranges.
type Diagram struct {
	Markers []Marker   `json:"markers"`
	XRange  [2]float64 `json:"x_range"`
	YRange  [2]float64 `json:"y_range"`
}

// NewDiagram lays out the fixed offensive template for the batch's formation
// and the defenders sized by their sack probability in percent.
func NewDiagram(b *Batch, percents []float64) Diagram {
	qbDepth := b.QB.Depth
	d := Diagram{
		XRange: [2]float64{-MaxLateral + 0.01, MaxLateral - 0.01},
		YRange: [2]float64{-10, 20},
	}
	template := []Marker{
		{Label: "C", Y: 0, X: 0},
		{Label: "LG", Y: 0, X: -1},
		{Label: "LT", Y: 0, X: -2},
		{Label: "RG", Y: 0, X: 1},
		{Label: "RT", Y: 0, X: 2},
		{Label: "TE-R", Y: -0.75, X: 3},
		{Label: "QB", Y: -qbDepth, X: b.QB.Offset},
		{Label: "RB-L", Y: -5, X: -1},
		{Label: "OR-WR", Y: 0, X: 20},
		{Label: "OL-WR", Y: 0, X: -20},
		{Label: "SL-WR", Y: -1, X: -10},
	}
	for _, m := range template {
		m.Side = Offense
		m.Size = offenseMarkerSize
		d.Markers = append(d.Markers, m)
	}
	for i, def := range b.Defenders {
		var size float64
		if i < len(percents) {
			size = percents[i]
		}
		d.Markers = append(d.Markers, Marker{
			Label:    def.Label,
			Position: string(def.Position),
			Side:     Defense,
			X:        def.RelY,
			Y:        def.RelX,
			Size:     size,
		})
	}
	return d
}
