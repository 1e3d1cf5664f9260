package geometry_test

import (
	"math"
	"testing"

	"github.com/okian/sackline/internal/domain/geometry"
	"github.com/okian/sackline/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestOffensiveLineOf(t *testing.T) {
	Convey("Given snap entities", t, func() {
		Convey("When tackles, guards and a center are present", func() {
			line, ok := geometry.OffensiveLineOf([]model.SnapState{
				{Position: "T", RelY: -3.1},
				{Position: "G", RelY: -1.4},
				{Position: "C", RelY: 0},
				{Position: "G", RelY: 1.5},
				{Position: "T", RelY: 2.9},
				{Position: "WR", RelY: 20},
				{Position: "QB", RelY: -8},
			})

			Convey("Then width is max minus min over the line only", func() {
				So(ok, ShouldBeTrue)
				So(line.Min, ShouldAlmostEqual, -3.1)
				So(line.Max, ShouldAlmostEqual, 2.9)
				So(line.Width, ShouldAlmostEqual, 6.0)
			})
		})

		Convey("When a single lineman is present", func() {
			line, ok := geometry.OffensiveLineOf([]model.SnapState{{Position: "C", RelY: 0.4}})

			Convey("Then the width is zero but defined", func() {
				So(ok, ShouldBeTrue)
				So(line.Width, ShouldEqual, 0)
				So(line.Min, ShouldEqual, line.Max)
			})
		})

		Convey("When no lineman is present", func() {
			_, ok := geometry.OffensiveLineOf([]model.SnapState{{Position: "QB"}})

			Convey("Then the geometry is undefined", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("Then width is never negative for arbitrary spans", func() {
			for _, ys := range [][]float64{{5, -5}, {-1, -2, -3}, {7}} {
				var es []model.SnapState
				for _, y := range ys {
					es = append(es, model.SnapState{Position: "G", RelY: y})
				}
				line, _ := geometry.OffensiveLineOf(es)
				So(line.Width, ShouldBeGreaterThanOrEqualTo, 0)
				So(line.Max, ShouldBeGreaterThanOrEqualTo, line.Min)
			}
		})
	})
}

func TestQuarterbackGeometry(t *testing.T) {
	Convey("Given a quarterback 5 yards behind a ball at (40, 27)", t, func() {
		qb := geometry.QuarterbackOf(model.SnapState{X: 35, Y: 27, RelX: -5, RelY: 0}, 40, 27)

		Convey("Then distance from ball uses absolute coordinates", func() {
			So(qb.DistFromBall, ShouldAlmostEqual, 5)
			So(qb.RelX, ShouldEqual, -5)
		})

		Convey("When a defender lines up at (42, 30)", func() {
			d := geometry.DistanceFromQB(model.SnapState{X: 42, Y: 30}, qb)

			Convey("Then the distance is Euclidean", func() {
				So(d, ShouldAlmostEqual, math.Sqrt(49+9))
			})
		})

		Convey("Then extreme values are not clipped", func() {
			So(geometry.Distance(0, 0, 300, 400), ShouldEqual, 500)
		})
	})
}
