package artifactstore_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/sackline/internal/adapters/artifactstore"
	"github.com/okian/sackline/internal/artifact"
	"github.com/okian/sackline/internal/domain/schema"
	"github.com/okian/sackline/internal/domain/scoring"
	"github.com/okian/sackline/pkg/logger"
)

type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	b, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = b
	return &s3.PutObjectOutput{}, nil
}

func newArtifact() *artifact.Artifact {
	s, err := schema.New([]schema.Block{
		{Field: schema.FieldDown, Categories: []string{"1"}},
		{Field: schema.FieldPosition, Categories: []string{"DE"}},
		{Field: schema.FieldOffenseFormation, Categories: []string{"SHOTGUN"}},
	}, schema.FallbackDefaults())
	if err != nil {
		panic(err)
	}
	e := &scoring.Ensemble{Width: s.Width(), Trees: []scoring.Tree{{
		Feature: []int{scoring.Leaf}, Threshold: []float64{0}, Left: []int{0}, Right: []int{0},
		DefaultLeft: []bool{false}, Value: []float64{0.25}, Gain: []float64{0},
	}}}
	a, err := artifact.New(s, e, artifact.Evaluation{}, time.Unix(0, 0))
	if err != nil {
		panic(err)
	}
	return a
}

func TestParse(t *testing.T) {
	Convey("Parse", t, func() {
		cases := []struct {
			uri  string
			want artifactstore.Location
		}{
			{"artifacts/model.json", artifactstore.Location{Backend: artifactstore.BackendFile, Key: "artifacts/model.json"}},
			{"s3://models/sack/v1.json", artifactstore.Location{Backend: artifactstore.BackendS3, Bucket: "models", Key: "sack/v1.json"}},
		}
		for _, c := range cases {
			got, err := artifactstore.Parse(c.uri)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, c.want)
		}

		for _, bad := range []string{"", "s3://", "s3://bucket", "s3://bucket/"} {
			_, err := artifactstore.Parse(bad)
			So(errors.Is(err, artifactstore.ErrInvalidURI), ShouldBeTrue)
		}
	})
}

func TestStore(t *testing.T) {
	Convey("Given a store", t, func() {
		ctx := context.Background()
		fake := &fakeS3{objects: map[string][]byte{}}
		var logs bytes.Buffer
		store := artifactstore.New(
			artifactstore.WithS3Client(fake),
			artifactstore.WithLogger(logger.New(&logs, slog.LevelInfo)),
		)
		a := newArtifact()

		Convey("It saves and loads from a local path", func() {
			path := filepath.Join(t.TempDir(), "nested", "model.json")
			So(store.Save(ctx, path, a), ShouldBeNil)

			back, err := store.Load(ctx, path)
			So(err, ShouldBeNil)
			So(back.Version, ShouldEqual, a.Version)
			So(back.Model.Trees, ShouldResemble, a.Model.Trees)
			So(logs.String(), ShouldContainSubstring, "saved artifact")
			So(logs.String(), ShouldContainSubstring, "loaded artifact")
		})

		Convey("It saves and loads from S3", func() {
			So(store.Save(ctx, "s3://models/sack.json", a), ShouldBeNil)
			So(fake.objects, ShouldContainKey, "models/sack.json")

			back, err := store.Load(ctx, "s3://models/sack.json")
			So(err, ShouldBeNil)
			So(back.Version, ShouldEqual, a.Version)
		})

		Convey("Missing artifacts are not found", func() {
			_, err := store.Load(ctx, filepath.Join(t.TempDir(), "absent.json"))
			So(errors.Is(err, artifactstore.ErrNotFound), ShouldBeTrue)

			_, err = store.Load(ctx, "s3://models/absent.json")
			So(errors.Is(err, artifactstore.ErrNotFound), ShouldBeTrue)
		})

		Convey("Invalid artifacts are not saved", func() {
			a.Version = "bogus"
			So(errors.Is(store.Save(ctx, "s3://models/bad.json", a), artifact.ErrIncompatible), ShouldBeTrue)
			So(fake.objects, ShouldBeEmpty)
		})
	})
}

// Nothing in this package initializes the global logger.
func TestStoreWithoutGlobalLogger(t *testing.T) {
	Convey("A store built without a logger", t, func() {
		var store *artifactstore.Store
		So(func() { store = artifactstore.New(artifactstore.WithS3Client(&fakeS3{objects: map[string][]byte{}})) }, ShouldNotPanic)

		Convey("It reports failures without logging", func() {
			ctx := context.Background()
			_, err := store.Load(ctx, filepath.Join(t.TempDir(), "absent.json"))
			So(errors.Is(err, artifactstore.ErrNotFound), ShouldBeTrue)

			bad := newArtifact()
			bad.Version = "bogus"
			So(errors.Is(store.Save(ctx, "s3://models/bad.json", bad), artifact.ErrIncompatible), ShouldBeTrue)
		})
	})
}
