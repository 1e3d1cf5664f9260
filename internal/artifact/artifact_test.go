package artifact_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/sackline/internal/artifact"
	"github.com/okian/sackline/internal/domain/model"
	"github.com/okian/sackline/internal/domain/schema"
	"github.com/okian/sackline/internal/domain/scoring"
)

func fixture() (*schema.Schema, *scoring.Ensemble) {
	s, err := schema.New([]schema.Block{
		{Field: schema.FieldDown, Categories: []string{"1", "2"}},
		{Field: schema.FieldPosition, Categories: []string{"CB", "DE"}},
		{Field: schema.FieldOffenseFormation, Categories: []string{"SHOTGUN"}},
	}, schema.FallbackDefaults())
	if err != nil {
		panic(err)
	}
	e := &scoring.Ensemble{
		Width:     s.Width(),
		BaseScore: -1,
		Trees: []scoring.Tree{{
			Feature:     []int{0, scoring.Leaf, scoring.Leaf},
			Threshold:   []float64{5, 0, 0},
			Left:        []int{1, 0, 0},
			Right:       []int{2, 0, 0},
			DefaultLeft: []bool{true, false, false},
			Value:       []float64{0, 0.5, -0.5},
			Gain:        []float64{1.5, 0, 0},
		}},
	}
	return s, e
}

func schemaRow() model.DefenderFeatureRow {
	return model.DefenderFeatureRow{YardsToGo: 3, Down: 2, Position: "DE", OffenseFormation: "SHOTGUN"}
}

func TestArtifact(t *testing.T) {
	Convey("Given a schema and a compatible model", t, func() {
		s, e := fixture()
		created := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

		Convey("New stamps the schema version", func() {
			a, err := artifact.New(s, e, artifact.Evaluation{TestRows: 3}, created)
			So(err, ShouldBeNil)
			So(a.Version, ShouldEqual, s.Version)
			So(a.CreatedAt, ShouldEqual, created)
		})

		Convey("It survives a write and read", func() {
			a, err := artifact.New(s, e, artifact.Evaluation{}, created)
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(a.Write(&buf), ShouldBeNil)

			back, err := artifact.Read(&buf)
			So(err, ShouldBeNil)
			So(back.Version, ShouldEqual, a.Version)
			So(back.Schema.Columns(), ShouldResemble, s.Columns())
			x := s.Encode(schemaRow())
			So(back.Model.Predict(x), ShouldEqual, e.Predict(x))
		})

		Convey("A model of a different width is rejected", func() {
			e.Width = s.Width() + 1
			_, err := artifact.New(s, e, artifact.Evaluation{}, created)
			So(errors.Is(err, artifact.ErrIncompatible), ShouldBeTrue)
		})

		Convey("A tampered schema is rejected on read", func() {
			a, err := artifact.New(s, e, artifact.Evaluation{}, created)
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(a.Write(&buf), ShouldBeNil)
			tampered := strings.Replace(buf.String(), `"SHOTGUN"`, `"EMPTY"`, 1)

			_, err = artifact.Read(strings.NewReader(tampered))
			So(errors.Is(err, schema.ErrSchemaMismatch), ShouldBeTrue)
		})

		Convey("A mismatched version is rejected", func() {
			a, err := artifact.New(s, e, artifact.Evaluation{}, created)
			So(err, ShouldBeNil)
			a.Version = "other"
			So(errors.Is(a.Validate(), artifact.ErrIncompatible), ShouldBeTrue)
		})

		Convey("Garbage is malformed", func() {
			_, err := artifact.Read(strings.NewReader("{"))
			So(errors.Is(err, artifact.ErrMalformed), ShouldBeTrue)

			_, err = artifact.Read(strings.NewReader("{}"))
			So(errors.Is(err, artifact.ErrMalformed), ShouldBeTrue)
		})
	})
}
