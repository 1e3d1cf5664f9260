package loadtest

import (
	"context"
	"math/rand/v2"

	"github.com/okian/sackline/internal/domain/personnel"
	"github.com/okian/sackline/internal/domain/roles"
	"github.com/okian/sackline/internal/domain/scenario"
	"github.com/okian/sackline/pkg/logger"
)

var defenseFormations = []string{"4-2-5", "4-3-4", "3-3-5", "3-4-4", "2-4-5", "4-1-6", "3-2-6"}

// Generator produces valid random scenarios from the fixed vocabularies.
type Generator struct {
	rng        *rand.Rand
	spots      []scenario.BallSpot
	formations []scenario.Formation
	offense    []string
	techniques []string
	positions  []roles.Position
}

// NewGenerator returns a deterministic generator for seed.
func NewGenerator(seed uint64) *Generator {
	return &Generator{
		rng:        rand.New(rand.NewPCG(seed, seed^0x5ac4)),
		spots:      scenario.BallSpots(),
		formations: scenario.Formations(),
		offense:    personnel.OffenseCodes(),
		techniques: scenario.DefaultTables().Techniques(),
		positions:  roles.Supported(),
	}
}

func pick[T any](rng *rand.Rand, xs []T) T { return xs[rng.IntN(len(xs))] }

// Scenario returns one scenario with 1..11 defenders. Roughly half the
// defenders are placed by technique and the rest by rel_y.
func (g *Generator) Scenario() scenario.Scenario {
	sc := scenario.Scenario{
		Down:             1 + g.rng.IntN(4),
		OffensePersonnel: pick(g.rng, g.offense),
		DefenseFormation: pick(g.rng, defenseFormations),
		BallSpot:         string(pick(g.rng, g.spots)),
		OffenseFormation: string(pick(g.rng, g.formations)),
		YardsToGo:        float64(1 + g.rng.IntN(20)),
		Yardline:         float64(10 + g.rng.IntN(101)),
		DefendersInBox:   float64(4 + g.rng.IntN(5)),
	}
	n := 1 + g.rng.IntN(scenario.MaxDefenders)
	for range n {
		d := scenario.Defender{
			Position: string(pick(g.rng, g.positions)),
			RelX:     float64(g.rng.IntN(150)) / 10,
		}
		if g.rng.IntN(2) == 0 {
			d.Technique = pick(g.rng, g.techniques)
			d.Side = string(pick(g.rng, []scenario.Side{scenario.SideLeft, scenario.SideRight}))
		} else {
			y := float64(g.rng.IntN(400)-200) / 10
			d.RelY = &y
		}
		sc.Defenders = append(sc.Defenders, d)
	}
	return sc
}

// generateScenarios builds config.Requests scenarios.
func generateScenarios(ctx context.Context, config *Config, stats *Stats) []scenario.Scenario {
	g := NewGenerator(config.Seed)
	out := make([]scenario.Scenario, config.Requests)
	for i := range out {
		out[i] = g.Scenario()
	}
	stats.Generated = len(out)
	logger.Get().Info(ctx, "scenarios generated", logger.Int("count", len(out)))
	return out
}
