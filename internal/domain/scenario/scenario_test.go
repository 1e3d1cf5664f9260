package scenario_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/sackline/internal/domain/model"
	"github.com/okian/sackline/internal/domain/roles"
	"github.com/okian/sackline/internal/domain/scenario"
	"github.com/okian/sackline/internal/domain/schema"
	. "github.com/smartystreets/goconvey/convey"
)

func ptr(v float64) *float64 { return &v }

func fullSchema() *schema.Schema {
	s, err := schema.New([]schema.Block{
		{Field: schema.FieldDown, Categories: []string{"1", "2", "3", "4"}},
		{Field: schema.FieldPosition, Categories: []string{"CB", "DE", "DT", "FS", "ILB", "MLB", "NT", "OLB", "SS"}},
		{Field: schema.FieldOffenseFormation, Categories: []string{"EMPTY", "I_FORM", "JUMBO", "PISTOL", "SHOTGUN", "SINGLEBACK", "WILDCAT"}},
	}, schema.Defaults{
		OlineMin: -2.61, OlineMax: 3.0, OlineWidth: 5.61,
		Kinematics: map[string]schema.Kinematics{"DE": {S: 0.96, A: 0.9}},
	})
	if err != nil {
		panic(err)
	}
	return s
}

func baseScenario() scenario.Scenario {
	return scenario.Scenario{
		Down:             3,
		OffensePersonnel: "11",
		DefenseFormation: "4-2-5",
		BallSpot:         "Middle",
		OffenseFormation: "Shotgun",
		YardsToGo:        2,
		Yardline:         59,
		DefendersInBox:   6,
		Defenders: []scenario.Defender{
			{Position: "DE", RelX: 2.0, RelY: ptr(3.0)},
		},
	}
}

func TestTables(t *testing.T) {
	Convey("Given the default tables", t, func() {
		tables := scenario.DefaultTables()

		Convey("Then techniques map to signed lateral offsets", func() {
			So(tables.LateralOffset("3", scenario.SideRight), ShouldAlmostEqual, -1.2)
			So(tables.LateralOffset("Wide", scenario.SideLeft), ShouldEqual, 20)
			So(tables.LateralOffset("2i", scenario.SideLeft), ShouldAlmostEqual, 0.8)
			So(tables.LateralOffset("7/9", scenario.SideRight), ShouldAlmostEqual, -4.6)
		})

		Convey("Then an unknown technique falls back to wide", func() {
			So(tables.LateralOffset("11-tech", scenario.SideLeft), ShouldEqual, 20)
			So(tables.LateralOffset("", scenario.SideRight), ShouldEqual, -20)
		})

		Convey("Then every formation has a quarterback alignment", func() {
			for _, f := range []scenario.Formation{scenario.Empty, scenario.IForm, scenario.Jumbo, scenario.Pistol, scenario.Shotgun, scenario.Singleback, scenario.Wildcat} {
				a, ok := tables.QB(f)
				So(ok, ShouldBeTrue)
				So(a.Offset, ShouldEqual, 0)
			}
			sg, _ := tables.QB(scenario.Shotgun)
			ic, _ := tables.QB(scenario.IForm)
			So(sg.Depth, ShouldEqual, 5)
			So(ic.Depth, ShouldEqual, 1.5)
		})

		Convey("Then every listed technique is known", func() {
			for _, tech := range tables.Techniques() {
				if tech == scenario.FallbackTechnique {
					continue
				}
				So(tables.LateralOffset(tech, scenario.SideLeft), ShouldBeLessThan, 20)
			}
		})
	})
}

func TestParsers(t *testing.T) {
	Convey("Given closed enums", t, func() {
		Convey("Then ball spots accept long and short labels", func() {
			for in, want := range map[string]float64{"Left Hash": 23.6, "left": 23.6, "Middle": 27, "Right Hash": 29.7, "RIGHT": 29.7} {
				spot, err := scenario.ParseBallSpot(in)
				So(err, ShouldBeNil)
				So(spot.Y(), ShouldEqual, want)
			}
			_, err := scenario.ParseBallSpot("Numbers")
			So(errors.Is(err, scenario.ErrInvalidScenario), ShouldBeTrue)
		})

		Convey("Then formations accept data codes and labels", func() {
			f, err := scenario.ParseFormation("I Formation")
			So(err, ShouldBeNil)
			So(f, ShouldEqual, scenario.IForm)
			f, _ = scenario.ParseFormation("SINGLEBACK")
			So(f, ShouldEqual, scenario.Singleback)
			_, err = scenario.ParseFormation("Wishbone")
			So(errors.Is(err, scenario.ErrInvalidScenario), ShouldBeTrue)
		})

		Convey("Then sides are L or R", func() {
			s, err := scenario.ParseSide("r")
			So(err, ShouldBeNil)
			So(s, ShouldEqual, scenario.SideRight)
			_, err = scenario.ParseSide("middle")
			So(errors.Is(err, scenario.ErrInvalidScenario), ShouldBeTrue)
		})
	})
}

func TestBuild(t *testing.T) {
	Convey("Given a reconstructor over a stored schema", t, func() {
		s := fullSchema()
		r := scenario.NewReconstructor(s)

		Convey("When a shotgun defender is at depth 2 and lateral 3", func() {
			b, err := r.Build(baseScenario())
			So(err, ShouldBeNil)
			row := b.Row(0)

			Convey("Then the distance uses the canonical quarterback depth", func() {
				So(b.Defenders[0].DistFromQB, ShouldAlmostEqual, math.Sqrt(49+9), 1e-9)
				So(b.Defenders[0].DistFromQB, ShouldAlmostEqual, 7.62, 0.01)
				So(row[s.ColumnIndex("dist_from_qb")], ShouldAlmostEqual, 7.6158, 1e-3)
			})

			Convey("Then quarterback geometry comes from the formation", func() {
				So(row[s.ColumnIndex("qb_rel_x")], ShouldEqual, -5)
				So(row[s.ColumnIndex("qb_rel_y")], ShouldEqual, 0)
				So(row[s.ColumnIndex("qb_dist_from_ball")], ShouldEqual, 5)
			})

			Convey("Then situation and defaults fill the remaining columns", func() {
				So(row[s.ColumnIndex("num_rb")], ShouldEqual, 1)
				So(row[s.ColumnIndex("num_wr")], ShouldEqual, 3)
				So(row[s.ColumnIndex("num_dl")], ShouldEqual, 4)
				So(row[s.ColumnIndex("num_db")], ShouldEqual, 5)
				So(row[s.ColumnIndex("ball_x")], ShouldEqual, 59)
				So(row[s.ColumnIndex("ball_y")], ShouldEqual, 27)
				So(row[s.ColumnIndex("oline_width")], ShouldEqual, 5.61)
				So(row[s.ColumnIndex("s")], ShouldEqual, 0.96)
				So(row[s.ColumnIndex("a")], ShouldEqual, 0.9)
			})

			Convey("Then the one-hot blocks decode to the inputs", func() {
				down, _ := s.Decode(row, schema.FieldDown)
				pos, _ := s.Decode(row, schema.FieldPosition)
				form, _ := s.Decode(row, schema.FieldOffenseFormation)
				So(down, ShouldEqual, "3")
				So(pos, ShouldEqual, "DE")
				So(form, ShouldEqual, "SHOTGUN")
			})

			Convey("Then the batch matches the schema width", func() {
				rows, cols := b.Features.Dims()
				So(rows, ShouldEqual, 1)
				So(cols, ShouldEqual, s.Width())
				So(b.Defenders[0].Label, ShouldEqual, "Player 1")
			})
		})

		Convey("When an under-center formation is chosen", func() {
			sc := baseScenario()
			sc.OffenseFormation = "I_FORM"
			b, err := r.Build(sc)

			Convey("Then the quarterback is 1.5 deep", func() {
				So(err, ShouldBeNil)
				So(b.Defenders[0].DistFromQB, ShouldAlmostEqual, math.Hypot(3.5, 3), 1e-9)
			})
		})

		Convey("When a defender is given by technique", func() {
			sc := baseScenario()
			sc.Defenders = []scenario.Defender{{Position: "DT", RelX: 1, Technique: "3", Side: "R"}}
			b, err := r.Build(sc)

			Convey("Then rel_y comes from the technique table", func() {
				So(err, ShouldBeNil)
				So(b.Defenders[0].RelY, ShouldAlmostEqual, -1.2)
				So(b.Defenders[0].Position, ShouldEqual, roles.DT)
			})
		})

		Convey("When speed and acceleration are overridden", func() {
			sc := baseScenario()
			sc.Defenders[0].Speed = ptr(4.2)
			sc.Defenders[0].Acceleration = ptr(1.1)
			b, _ := r.Build(sc)

			Convey("Then the overrides are encoded", func() {
				So(b.Row(0)[s.ColumnIndex("s")], ShouldEqual, 4.2)
				So(b.Row(0)[s.ColumnIndex("a")], ShouldEqual, 1.1)
			})
		})

		Convey("When eleven defenders are entered", func() {
			sc := baseScenario()
			sc.Defenders = nil
			for i := 0; i < 11; i++ {
				sc.Defenders = append(sc.Defenders, scenario.Defender{Position: "CB", RelX: float64(i), RelY: ptr(float64(i) - 5)})
			}
			b, err := r.Build(sc)

			Convey("Then rows keep input order", func() {
				So(err, ShouldBeNil)
				So(b.Len(), ShouldEqual, 11)
				for i := 0; i < 11; i++ {
					So(b.Row(i)[s.ColumnIndex("rel_x")], ShouldEqual, float64(i))
				}
			})
		})

		Convey("When the scenario breaks a boundary rule", func() {
			cases := []struct {
				name   string
				mutate func(*scenario.Scenario)
			}{
				{"down 0", func(sc *scenario.Scenario) { sc.Down = 0 }},
				{"down 5", func(sc *scenario.Scenario) { sc.Down = 5 }},
				{"unknown personnel", func(sc *scenario.Scenario) { sc.OffensePersonnel = "44" }},
				{"bad defensive formation", func(sc *scenario.Scenario) { sc.DefenseFormation = "nickel" }},
				{"bad ball spot", func(sc *scenario.Scenario) { sc.BallSpot = "Numbers" }},
				{"bad formation", func(sc *scenario.Scenario) { sc.OffenseFormation = "Wishbone" }},
				{"zero yards to go", func(sc *scenario.Scenario) { sc.YardsToGo = 0 }},
				{"no defenders", func(sc *scenario.Scenario) { sc.Defenders = nil }},
				{"twelve defenders", func(sc *scenario.Scenario) {
					sc.Defenders = make([]scenario.Defender, 12)
				}},
				{"unknown position", func(sc *scenario.Scenario) { sc.Defenders[0].Position = "DB" }},
				{"negative depth", func(sc *scenario.Scenario) { sc.Defenders[0].RelX = -1 }},
				{"too deep", func(sc *scenario.Scenario) { sc.Defenders[0].RelX = 46 }},
				{"too wide", func(sc *scenario.Scenario) { sc.Defenders[0].RelY = ptr(30) }},
				{"both lateral inputs", func(sc *scenario.Scenario) { sc.Defenders[0].Technique = "3"; sc.Defenders[0].Side = "L" }},
				{"no lateral input", func(sc *scenario.Scenario) { sc.Defenders[0].RelY = nil }},
				{"technique without side", func(sc *scenario.Scenario) {
					sc.Defenders[0].RelY = nil
					sc.Defenders[0].Technique = "3"
				}},
			}
			for _, tc := range cases {
				Convey("Then "+tc.name+" is rejected", func() {
					sc := baseScenario()
					tc.mutate(&sc)
					_, err := r.Build(sc)
					So(errors.Is(err, scenario.ErrInvalidScenario), ShouldBeTrue)
				})
			}
		})

		Convey("When the schema never saw a category", func() {
			narrow, _ := schema.Derive([]model.DefenderFeatureRow{{Down: 3, Position: "DE", OffenseFormation: "SHOTGUN"}})
			nr := scenario.NewReconstructor(narrow)
			sc := baseScenario()
			sc.OffenseFormation = "Wildcat"
			_, err := nr.Build(sc)

			Convey("Then the request fails loudly", func() {
				So(errors.Is(err, scenario.ErrInvalidScenario), ShouldBeTrue)
				So(errors.Is(err, schema.ErrUnknownCategory), ShouldBeTrue)
			})
		})
	})
}

func TestDiagram(t *testing.T) {
	Convey("Given a built pistol batch", t, func() {
		r := scenario.NewReconstructor(fullSchema())
		sc := baseScenario()
		sc.OffenseFormation = "Pistol"
		sc.Defenders = append(sc.Defenders, scenario.Defender{Label: "Edge", Position: "OLB", RelX: 1, RelY: ptr(-6)})
		b, err := r.Build(sc)
		So(err, ShouldBeNil)

		Convey("When the diagram is drawn", func() {
			d := scenario.NewDiagram(b, []float64{12.5, 3.25})

			Convey("Then it has eleven offensive and all defensive markers", func() {
				So(d.Markers, ShouldHaveLength, 13)
				var qb, edge scenario.Marker
				for _, m := range d.Markers {
					switch m.Label {
					case "QB":
						qb = m
					case "Edge":
						edge = m
					}
				}
				So(qb.Y, ShouldEqual, -5)
				So(qb.Side, ShouldEqual, scenario.Offense)
				So(edge.Side, ShouldEqual, scenario.Defense)
				So(edge.X, ShouldEqual, -6)
				So(edge.Y, ShouldEqual, 1)
				So(edge.Size, ShouldEqual, 3.25)
				So(d.YRange, ShouldResemble, [2]float64{-10, 20})
			})
		})
	})
}
