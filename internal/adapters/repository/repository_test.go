package repository_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/sackline/internal/adapters/repository"
	"github.com/okian/sackline/pkg/logger"
)

var epoch = time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)

func record(i int) repository.Record {
	return repository.Record{
		ID:            fmt.Sprintf("id-%02d", i),
		CreatedAt:     epoch.Add(time.Duration(i) * time.Second),
		SchemaVersion: "abc123",
		Scenario:      []byte(fmt.Sprintf(`{"down":%d}`, 1+i%4)),
		Result:        []byte(`{"players":[]}`),
	}
}

func TestStores(t *testing.T) {
	stores := []struct {
		name string
		open func(t *testing.T) repository.Store
	}{
		{"memory", func(*testing.T) repository.Store { return repository.NewMemoryStore() }},
		{"sqlite in memory", func(t *testing.T) repository.Store {
			s, err := repository.OpenSQLite(context.Background(), ":memory:")
			if err != nil {
				t.Fatal(err)
			}
			return s
		}},
		{"sqlite file", func(t *testing.T) repository.Store {
			s, err := repository.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "history.db"))
			if err != nil {
				t.Fatal(err)
			}
			return s
		}},
	}

	for _, st := range stores {
		Convey("Given a "+st.name+" store", t, func() {
			ctx := context.Background()
			store := st.open(t)
			Reset(func() { _ = store.Close() })

			for _, i := range []int{3, 1, 2} {
				So(store.Save(ctx, record(i)), ShouldBeNil)
			}

			Convey("Count reflects saved records", func() {
				So(store.Count(ctx), ShouldEqual, 3)
			})

			Convey("Get returns a saved record unchanged", func() {
				got, err := store.Get(ctx, "id-02")
				So(err, ShouldBeNil)
				So(got.CreatedAt.Equal(record(2).CreatedAt), ShouldBeTrue)
				So(string(got.Scenario), ShouldEqual, `{"down":3}`)
				So(got.SchemaVersion, ShouldEqual, "abc123")
			})

			Convey("Get of an unknown id is not found", func() {
				_, err := store.Get(ctx, "missing")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("Recent returns newest first and honours the limit", func() {
				got, err := store.Recent(ctx, 2)
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 2)
				So(got[0].ID, ShouldEqual, "id-03")
				So(got[1].ID, ShouldEqual, "id-02")

				all, err := store.Recent(ctx, 50)
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 3)
			})

			Convey("Equal timestamps order by id", func() {
				a, b := record(9), record(9)
				a.ID, b.ID = "z", "a"
				So(store.Save(ctx, a), ShouldBeNil)
				So(store.Save(ctx, b), ShouldBeNil)
				got, err := store.Recent(ctx, 2)
				So(err, ShouldBeNil)
				So(got[0].ID, ShouldEqual, "a")
				So(got[1].ID, ShouldEqual, "z")
			})

			Convey("Invalid limits are rejected", func() {
				_, err := store.Recent(ctx, 0)
				So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
			})

			Convey("Duplicate ids are rejected", func() {
				err := store.Save(ctx, record(1))
				So(errors.Is(err, repository.ErrDuplicateID), ShouldBeTrue)
				So(store.Count(ctx), ShouldEqual, 3)
			})
		})
	}
}

func TestMemoryStoreCapacity(t *testing.T) {
	Convey("Given a memory store of capacity 2", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore(repository.WithCapacity(2))
		for i := range 4 {
			So(store.Save(ctx, record(i)), ShouldBeNil)
		}

		Convey("The oldest records are evicted", func() {
			So(store.Count(ctx), ShouldEqual, 2)
			_, err := store.Get(ctx, "id-00")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			got, err := store.Get(ctx, "id-03")
			So(err, ShouldBeNil)
			So(got.ID, ShouldEqual, "id-03")
		})
	})
}

func TestSQLiteStorePersists(t *testing.T) {
	Convey("A file-backed store survives reopening", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "history.db")

		s, err := repository.OpenSQLite(ctx, path)
		So(err, ShouldBeNil)
		So(s.Save(ctx, record(1)), ShouldBeNil)
		So(s.Close(), ShouldBeNil)

		s, err = repository.OpenSQLite(ctx, path)
		So(err, ShouldBeNil)
		defer s.Close()
		So(s.Count(ctx), ShouldEqual, 1)
	})
}

// Nothing in this package initializes the global logger.
func TestStoresWithoutGlobalLogger(t *testing.T) {
	Convey("Stores open and serve without a global logger", t, func() {
		ctx := context.Background()
		So(func() { _ = repository.NewMemoryStore() }, ShouldNotPanic)

		s, err := repository.OpenSQLite(ctx, ":memory:")
		So(err, ShouldBeNil)
		defer s.Close()
		So(s.Save(ctx, record(1)), ShouldBeNil)
		So(errors.Is(s.Save(ctx, record(1)), repository.ErrDuplicateID), ShouldBeTrue)
	})

	Convey("Write failures go to the given logger", t, func() {
		ctx := context.Background()
		var logs bytes.Buffer
		s, err := repository.OpenSQLite(ctx, ":memory:", repository.WithLogger(logger.New(&logs, slog.LevelInfo)))
		So(err, ShouldBeNil)
		So(s.Close(), ShouldBeNil)

		err = s.Save(ctx, record(1))
		So(err, ShouldNotBeNil)
		So(errors.Is(err, repository.ErrDuplicateID), ShouldBeFalse)
		So(logs.String(), ShouldContainSubstring, "history write failed")
	})
}
