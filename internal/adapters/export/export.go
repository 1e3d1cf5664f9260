// Package export writes assembled datasets as CSV or Parquet.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	parquet "github.com/parquet-go/parquet-go"

	"github.com/okian/sackline/internal/domain/model"
)

// ErrUnsupportedFormat is returned for output paths that are neither .csv nor .parquet.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Row is the on-disk layout of a DefenderFeatureRow.
type Row struct {
	GameID                 int64   `parquet:"gameId"`
	PlayID                 int64   `parquet:"playId"`
	NflID                  int64   `parquet:"nflId"`
	Down                   int32   `parquet:"down"`
	YardsToGo              float64 `parquet:"yardsToGo"`
	AbsoluteYardlineNumber float64 `parquet:"absoluteYardlineNumber"`
	DefendersInBox         float64 `parquet:"defendersInBox"`
	OffenseFormation       string  `parquet:"offenseFormation,dict"`
	NumRB                  float64 `parquet:"num_rb"`
	NumTE                  float64 `parquet:"num_te"`
	NumWR                  float64 `parquet:"num_wr"`
	NumDL                  float64 `parquet:"num_dl"`
	NumLB                  float64 `parquet:"num_lb"`
	NumDB                  float64 `parquet:"num_db"`
	OfficialPosition       string  `parquet:"officialPosition,dict"`
	RelX                   float64 `parquet:"rel_x"`
	RelY                   float64 `parquet:"rel_y"`
	S                      float64 `parquet:"s"`
	A                      float64 `parquet:"a"`
	BallX                  float64 `parquet:"ball_x"`
	BallY                  float64 `parquet:"ball_y"`
	OlineMin               float64 `parquet:"oline_min"`
	OlineMax               float64 `parquet:"oline_max"`
	OlineWidth             float64 `parquet:"oline_width"`
	QBDistFromBall         float64 `parquet:"qb_dist_from_ball"`
	QBRelX                 float64 `parquet:"qb_rel_x"`
	QBRelY                 float64 `parquet:"qb_rel_y"`
	DistFromQB             float64 `parquet:"dist_from_qb"`
	Sack                   int32   `parquet:"pff_sack"`
}

// Header is the CSV header, in Row field order.
var Header = []string{
	"gameId", "playId", "nflId", "down", "yardsToGo", "absoluteYardlineNumber", "defendersInBox",
	"offenseFormation", "num_rb", "num_te", "num_wr", "num_dl", "num_lb", "num_db",
	"officialPosition", "rel_x", "rel_y", "s", "a", "ball_x", "ball_y",
	"oline_min", "oline_max", "oline_width", "qb_dist_from_ball", "qb_rel_x", "qb_rel_y",
	"dist_from_qb", "pff_sack",
}

// FromModel converts a feature row.
func FromModel(r model.DefenderFeatureRow) Row {
	return Row{
		GameID: r.GameID, PlayID: r.PlayID, NflID: r.NflID,
		Down:                   int32(r.Down), //nolint:gosec // down is 1..4
		YardsToGo:              r.YardsToGo,
		AbsoluteYardlineNumber: r.AbsoluteYardlineNumber,
		DefendersInBox:         r.DefendersInBox,
		OffenseFormation:       r.OffenseFormation,
		NumRB:                  r.NumRB,
		NumTE:                  r.NumTE,
		NumWR:                  r.NumWR,
		NumDL:                  r.NumDL,
		NumLB:                  r.NumLB,
		NumDB:                  r.NumDB,
		OfficialPosition:       r.Position,
		RelX:                   r.RelX,
		RelY:                   r.RelY,
		S:                      r.S,
		A:                      r.A,
		BallX:                  r.BallX,
		BallY:                  r.BallY,
		OlineMin:               r.OlineMin,
		OlineMax:               r.OlineMax,
		OlineWidth:             r.OlineWidth,
		QBDistFromBall:         r.QBDistFromBall,
		QBRelX:                 r.QBRelX,
		QBRelY:                 r.QBRelY,
		DistFromQB:             r.DistFromQB,
		Sack:                   int32(r.Sack), //nolint:gosec // label is 0 or 1
	}
}

func (r Row) record() []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	i := func(v int64) string { return strconv.FormatInt(v, 10) }
	return []string{
		i(r.GameID), i(r.PlayID), i(r.NflID), i(int64(r.Down)),
		f(r.YardsToGo), f(r.AbsoluteYardlineNumber), f(r.DefendersInBox),
		r.OffenseFormation,
		f(r.NumRB), f(r.NumTE), f(r.NumWR), f(r.NumDL), f(r.NumLB), f(r.NumDB),
		r.OfficialPosition,
		f(r.RelX), f(r.RelY), f(r.S), f(r.A), f(r.BallX), f(r.BallY),
		f(r.OlineMin), f(r.OlineMax), f(r.OlineWidth),
		f(r.QBDistFromBall), f(r.QBRelX), f(r.QBRelY), f(r.DistFromQB),
		i(int64(r.Sack)),
	}
}

// WriteCSV writes rows with a header.
func WriteCSV(w io.Writer, rows []model.DefenderFeatureRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(FromModel(r).record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteParquet writes rows as a snappy-compressed Parquet file.
func WriteParquet(w io.Writer, rows []model.DefenderFeatureRow) error {
	pw := parquet.NewGenericWriter[Row](w, parquet.Compression(&parquet.Snappy))
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = FromModel(r)
	}
	if _, err := pw.Write(out); err != nil {
		_ = pw.Close()
		return err
	}
	return pw.Close()
}

// WriteFile picks the format from path's extension.
func WriteFile(path string, rows []model.DefenderFeatureRow) error {
	var write func(io.Writer, []model.DefenderFeatureRow) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		write = WriteCSV
	case ".parquet":
		write = WriteParquet
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, rows); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
