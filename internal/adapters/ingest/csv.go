// Package ingest reads the tracking, play, roster and scouting CSV tables.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// table is a header-indexed CSV stream.
type table struct {
	name string
	r    *csv.Reader
	hdr  map[string]int
	line int
}

func newTable(name string, r io.Reader, required ...string) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}
	t := &table{name: name, r: cr, hdr: make(map[string]int, len(head)), line: 1}
	for i, h := range head {
		t.hdr[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, c := range required {
		if _, ok := t.hdr[c]; !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrMissingColumn, name, c)
		}
	}
	return t, nil
}

// next returns the next record or io.EOF.
func (t *table) next() ([]string, error) {
	rec, err := t.r.Read()
	t.line++
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%s line %d: %w", t.name, t.line, err)
	}
	return rec, nil
}

func (t *table) get(rec []string, col string) string {
	i, ok := t.hdr[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func missing(s string) bool { return s == "" || s == "NA" || s == "NaN" }

func (t *table) malformed(col, val string) error {
	return fmt.Errorf("%w: %s line %d: %s=%q", ErrMalformedRow, t.name, t.line, col, val)
}

// id parses a required integer key.
func (t *table) id(rec []string, col string) (int64, error) {
	s := t.get(rec, col)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, t.malformed(col, s)
	}
	return v, nil
}

// optID parses an integer key that may be NA; missing yields 0.
func (t *table) optID(rec []string, col string) (int64, error) {
	s := t.get(rec, col)
	if missing(s) {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, t.malformed(col, s)
	}
	return int64(v), nil
}

// float parses a required number.
func (t *table) float(rec []string, col string) (float64, error) {
	s := t.get(rec, col)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, t.malformed(col, s)
	}
	return v, nil
}

// optFloat parses a number that may be missing; unparsable values count as missing.
func (t *table) optFloat(rec []string, col string) *float64 {
	s := t.get(rec, col)
	if missing(s) {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// str returns a string column, empty for NA.
func (t *table) str(rec []string, col string) string {
	s := t.get(rec, col)
	if missing(s) {
		return ""
	}
	return s
}
