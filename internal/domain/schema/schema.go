// Package schema defines the encoded feature layout shared by training and serving.
//
// The layout is derived once from the training split and stored with the model.
// Serving applies the stored layout verbatim; it is never re-derived from input.
package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/okian/sackline/internal/domain/model"
)

// Categorical fields, in block order.
const (
	FieldDown             = "down"
	FieldPosition         = "officialPosition"
	FieldOffenseFormation = "offenseFormation"
)

var blockFields = []string{FieldDown, FieldPosition, FieldOffenseFormation}

// ContinuousColumns is the fixed order of continuous features.
var ContinuousColumns = []string{
	"yardsToGo", "absoluteYardlineNumber", "defendersInBox",
	"num_rb", "num_te", "num_wr", "num_dl", "num_lb", "num_db",
	"rel_x", "rel_y", "s", "a", "ball_x", "ball_y",
	"oline_min", "oline_max", "oline_width",
	"qb_dist_from_ball", "qb_rel_x", "qb_rel_y", "dist_from_qb",
}

func continuous(r model.DefenderFeatureRow) []float64 {
	return []float64{
		r.YardsToGo, r.AbsoluteYardlineNumber, r.DefendersInBox,
		r.NumRB, r.NumTE, r.NumWR, r.NumDL, r.NumLB, r.NumDB,
		r.RelX, r.RelY, r.S, r.A, r.BallX, r.BallY,
		r.OlineMin, r.OlineMax, r.OlineWidth,
		r.QBDistFromBall, r.QBRelX, r.QBRelY, r.DistFromQB,
	}
}

func category(r model.DefenderFeatureRow, field string) string {
	switch field {
	case FieldDown:
		return strconv.Itoa(r.Down)
	case FieldPosition:
		return r.Position
	case FieldOffenseFormation:
		return r.OffenseFormation
	}
	return ""
}

// Block is one one-hot group.
type Block struct {
	Field      string   `json:"field"`
	Categories []string `json:"categories"`
}

// Schema is the ordered column layout plus serving defaults.
type Schema struct {
	Version    string   `json:"version"`
	Continuous []string `json:"continuous"`
	Blocks     []Block  `json:"blocks"`
	Defaults   Defaults `json:"defaults"`

	offsets map[string]int            // block field -> first column
	lookup  map[string]map[string]int // block field -> category -> index in block
}

// New builds a schema from explicit blocks. Categories are kept in the given order.
func New(blocks []Block, defaults Defaults) (*Schema, error) {
	s := &Schema{
		Continuous: slices.Clone(ContinuousColumns),
		Blocks:     make([]Block, len(blocks)),
		Defaults:   defaults,
	}
	for i, b := range blocks {
		s.Blocks[i] = Block{Field: b.Field, Categories: slices.Clone(b.Categories)}
	}
	if err := s.index(); err != nil {
		return nil, err
	}
	s.Version = versionOf(s.Columns())
	return s, nil
}

// Derive builds the schema from training rows: categories are the observed
// values of each block, sorted ascending.
func Derive(rows []model.DefenderFeatureRow) (*Schema, error) {
	blocks := make([]Block, len(blockFields))
	for i, f := range blockFields {
		seen := map[string]struct{}{}
		for _, r := range rows {
			seen[category(r, f)] = struct{}{}
		}
		cats := make([]string, 0, len(seen))
		for c := range seen {
			cats = append(cats, c)
		}
		slices.Sort(cats)
		blocks[i] = Block{Field: f, Categories: cats}
	}
	return New(blocks, DeriveDefaults(rows))
}

// UnmarshalJSON decodes a stored schema and rebuilds its lookup tables.
func (s *Schema) UnmarshalJSON(b []byte) error {
	type stored Schema
	var raw stored
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = Schema(raw)
	return s.index()
}

func (s *Schema) index() error {
	s.offsets = make(map[string]int, len(s.Blocks))
	s.lookup = make(map[string]map[string]int, len(s.Blocks))
	off := len(s.Continuous)
	for _, b := range s.Blocks {
		if !slices.Contains(blockFields, b.Field) {
			return fmt.Errorf("%w: %q", ErrUnknownField, b.Field)
		}
		if _, dup := s.offsets[b.Field]; dup {
			return fmt.Errorf("%w: duplicate block %q", ErrSchemaMismatch, b.Field)
		}
		s.offsets[b.Field] = off
		idx := make(map[string]int, len(b.Categories))
		for i, c := range b.Categories {
			if _, dup := idx[c]; dup {
				return fmt.Errorf("%w: duplicate category %q in %q", ErrSchemaMismatch, c, b.Field)
			}
			idx[c] = i
		}
		s.lookup[b.Field] = idx
		off += len(b.Categories)
	}
	return nil
}

// Check verifies that a stored schema matches this build's continuous layout
// and that its version is the hash of its columns.
func (s *Schema) Check() error {
	if !slices.Equal(s.Continuous, ContinuousColumns) {
		return fmt.Errorf("%w: continuous columns differ", ErrSchemaMismatch)
	}
	if s.offsets == nil {
		if err := s.index(); err != nil {
			return err
		}
	}
	if v := versionOf(s.Columns()); v != s.Version {
		return fmt.Errorf("%w: version %s does not match columns (%s)", ErrSchemaMismatch, s.Version, v)
	}
	return nil
}

func versionOf(columns []string) string {
	sum := sha256.Sum256([]byte(strings.Join(columns, "\n")))
	return hex.EncodeToString(sum[:8])
}

// Columns returns the full ordered column list.
func (s *Schema) Columns() []string {
	cols := slices.Clone(s.Continuous)
	for _, b := range s.Blocks {
		for _, c := range b.Categories {
			cols = append(cols, b.Field+"_"+c)
		}
	}
	return cols
}

// Width is the number of encoded columns.
func (s *Schema) Width() int {
	w := len(s.Continuous)
	for _, b := range s.Blocks {
		w += len(b.Categories)
	}
	return w
}

// Categories returns a copy of the known categories of field.
func (s *Schema) Categories(field string) []string {
	for _, b := range s.Blocks {
		if b.Field == field {
			return slices.Clone(b.Categories)
		}
	}
	return nil
}

// Encode returns the encoded vector of row. An unknown category leaves its
// block all zero; column positions never move.
func (s *Schema) Encode(row model.DefenderFeatureRow) []float64 {
	v := make([]float64, s.Width())
	s.EncodeInto(v, row)
	return v
}

// EncodeInto writes the encoded row into dst, which must have length Width().
func (s *Schema) EncodeInto(dst []float64, row model.DefenderFeatureRow) {
	clear(dst)
	copy(dst, continuous(row))
	for _, b := range s.Blocks {
		if i, ok := s.lookup[b.Field][category(row, b.Field)]; ok {
			dst[s.offsets[b.Field]+i] = 1
		}
	}
}

// Validate rejects rows whose categorical values are outside the schema.
func (s *Schema) Validate(row model.DefenderFeatureRow) error {
	for _, b := range s.Blocks {
		v := category(row, b.Field)
		if _, ok := s.lookup[b.Field][v]; !ok {
			return fmt.Errorf("%w: %s=%q (known: %s)", ErrUnknownCategory, b.Field, v, strings.Join(b.Categories, ", "))
		}
	}
	return nil
}

// Decode recovers the category set in field's block of an encoded vector.
// ok is false for an all-zero block or a vector of the wrong width.
func (s *Schema) Decode(vec []float64, field string) (string, bool) {
	off, known := s.offsets[field]
	if !known || len(vec) != s.Width() {
		return "", false
	}
	for _, b := range s.Blocks {
		if b.Field != field {
			continue
		}
		for i, c := range b.Categories {
			if vec[off+i] == 1 {
				return c, true
			}
		}
	}
	return "", false
}

// ColumnIndex returns the position of a named column, or -1.
func (s *Schema) ColumnIndex(name string) int {
	return slices.Index(s.Columns(), name)
}
