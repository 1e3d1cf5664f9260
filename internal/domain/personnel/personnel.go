// Package personnel turns personnel strings and codes into fixed role counts.
package personnel

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors for serving-side codes.
var (
	ErrUnknownOffenseCode = errors.New("unknown offensive personnel code")
	ErrInvalidFormation   = errors.New("invalid defensive formation code")
)

// Counts holds the three slots of one side in personnel order.
type Counts [3]float64

// Offense is offensive personnel.
type Offense struct {
	RB, TE, WR float64
}

// Defense is defensive personnel.
type Defense struct {
	DL, LB, DB float64
}

// Parse reads "<n> <ROLE>, <n> <ROLE>, <n> <ROLE>" by taking the leading digit
// of each ", " separated token. The third token keeps any remainder. Missing,
// empty or non-digit tokens count as zero.
func Parse(s string) Counts {
	var c Counts
	for i, tok := range strings.SplitN(s, ", ", len(c)) {
		if tok == "" || tok[0] < '0' || tok[0] > '9' {
			continue
		}
		c[i] = float64(tok[0] - '0')
	}
	return c
}

// ParseOffense parses a personnelO string (RB, TE, WR order).
func ParseOffense(s string) Offense {
	c := Parse(s)
	return Offense{RB: c[0], TE: c[1], WR: c[2]}
}

// ParseDefense parses a personnelD string (DL, LB, DB order).
func ParseDefense(s string) Defense {
	c := Parse(s)
	return Defense{DL: c[0], LB: c[1], DB: c[2]}
}

// offenseCodes maps RB-TE grouping codes to full counts. Starred codes have one fewer receiver.
var offenseCodes = map[string]Offense{
	"11":  {RB: 1, TE: 1, WR: 3},
	"12":  {RB: 1, TE: 2, WR: 2},
	"21":  {RB: 2, TE: 1, WR: 2},
	"13":  {RB: 1, TE: 3, WR: 1},
	"10":  {RB: 1, TE: 0, WR: 4},
	"22":  {RB: 2, TE: 2, WR: 1},
	"01":  {RB: 0, TE: 1, WR: 4},
	"20":  {RB: 2, TE: 0, WR: 3},
	"11*": {RB: 1, TE: 1, WR: 2},
	"02":  {RB: 0, TE: 2, WR: 3},
	"12*": {RB: 1, TE: 2, WR: 1},
}

// OffenseCodes lists the accepted offensive personnel codes.
func OffenseCodes() []string {
	return []string{"11", "12", "21", "13", "10", "22", "01", "20", "11*", "02", "12*"}
}

// OffenseFromCode resolves an offensive personnel code such as "11" or "12*".
func OffenseFromCode(code string) (Offense, error) {
	o, ok := offenseCodes[strings.TrimSpace(code)]
	if !ok {
		return Offense{}, fmt.Errorf("%w: %q", ErrUnknownOffenseCode, code)
	}
	return o, nil
}

// DefenseFromFormation parses a "DL-LB-DB" code such as "4-2-5".
func DefenseFromFormation(code string) (Defense, error) {
	parts := strings.Split(strings.TrimSpace(code), "-")
	if len(parts) != 3 {
		return Defense{}, fmt.Errorf("%w: %q", ErrInvalidFormation, code)
	}
	var n [3]float64
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > 11 {
			return Defense{}, fmt.Errorf("%w: %q", ErrInvalidFormation, code)
		}
		n[i] = float64(v)
	}
	if n[0]+n[1]+n[2] > 11 {
		return Defense{}, fmt.Errorf("%w: %q has more than 11 players", ErrInvalidFormation, code)
	}
	return Defense{DL: n[0], LB: n[1], DB: n[2]}, nil
}
