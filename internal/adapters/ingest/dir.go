package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/okian/sackline/internal/domain/model"
	"github.com/okian/sackline/pkg/logger"
)

// Default table file names inside a data directory.
const (
	PlayersFile  = "players.csv"
	PlaysFile    = "plays.csv"
	ScoutingFile = "pffScoutingData.csv"
	weekPattern  = "week%d.csv"
)

// ParseWeeks parses "3", "1-8" or "1,3,5-6" into an ascending week list.
func ParseWeeks(s string) ([]int, error) {
	seen := map[int]bool{}
	var weeks []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")
		a, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil || a < 1 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidWeeks, s)
		}
		b := a
		if isRange {
			if b, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil || b < a {
				return nil, fmt.Errorf("%w: %q", ErrInvalidWeeks, s)
			}
		}
		for w := a; w <= b; w++ {
			if !seen[w] {
				seen[w] = true
				weeks = append(weeks, w)
			}
		}
	}
	slices.Sort(weeks)
	return weeks, nil
}

// LoadDir reads the tables of dir for the given tracking weeks.
func LoadDir(ctx context.Context, dir string, weeks []int) (*model.Dataset, error) {
	log := logger.Named("ingest")
	ds := &model.Dataset{}

	for _, w := range weeks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := fmt.Sprintf(weekPattern, w)
		err := readFile(filepath.Join(dir, name), func(r io.Reader) error {
			frames, err := ReadSnapFrames(name, r)
			if err != nil {
				return err
			}
			ds.Snaps = append(ds.Snaps, frames...)
			log.Info(ctx, "tracking week loaded", logger.Int("week", w), logger.Int("snap_frames", len(frames)))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	var err error
	if err = readFile(filepath.Join(dir, PlayersFile), func(r io.Reader) error {
		ds.Players, err = ReadPlayers(PlayersFile, r)
		return err
	}); err != nil {
		return nil, err
	}
	if err = readFile(filepath.Join(dir, PlaysFile), func(r io.Reader) error {
		ds.Plays, err = ReadPlays(PlaysFile, r)
		return err
	}); err != nil {
		return nil, err
	}
	if err = readFile(filepath.Join(dir, ScoutingFile), func(r io.Reader) error {
		ds.Outcomes, err = ReadOutcomes(ScoutingFile, r)
		return err
	}); err != nil {
		return nil, err
	}

	log.Info(ctx, "tables loaded",
		logger.Int("players", len(ds.Players)),
		logger.Int("plays", len(ds.Plays)),
		logger.Int("outcomes", len(ds.Outcomes)),
	)
	return ds, nil
}

func readFile(path string, fn func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return fn(f)
}
