// Package export writes computed-point lists in the formats the field
// crews consume: delimited text for spreadsheet import, GeoJSON for web
// maps, and shapefiles for GIS packages. All writers treat the point list
// as read-only.
package export

import (
	"fmt"
	"io"
	"strings"

	"collimator/internal/survey"
)

// Options controls the delimited-text format. Zero values mean the
// defaults: semicolon separator, '.' decimal mark.
type Options struct {
	Sep     string
	Decimal string
}

func (o Options) withDefaults() Options {
	if o.Sep == "" {
		o.Sep = ";"
	}
	if o.Decimal == "" {
		o.Decimal = "."
	}
	return o
}

var delimitedHeader = []string{"ID", "X", "Y", "Z", "AH_obs", "AV_obs", "D_obs", "AH_corr", "AV_corr"}

// WriteDelimited writes the points as delimited text with a header row.
// Coordinates and distances carry 3 decimals, angles 4; the decimal mark
// is substituted after formatting so "," output stays spreadsheet-friendly
// in comma-decimal locales.
func WriteDelimited(w io.Writer, points []survey.ComputedPoint, opts Options) error {
	opts = opts.withDefaults()

	if _, err := fmt.Fprintln(w, strings.Join(delimitedHeader, opts.Sep)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	num := func(v float64, nd int) string {
		s := fmt.Sprintf("%.*f", nd, v)
		if opts.Decimal != "." {
			s = strings.Replace(s, ".", opts.Decimal, 1)
		}
		return s
	}

	for _, p := range points {
		row := []string{
			p.ID,
			num(p.X, 3),
			num(p.Y, 3),
			num(p.Z, 3),
			num(p.AHObs, 4),
			num(p.AVObs, 4),
			num(p.DObs, 3),
			num(p.AHCorr, 4),
			num(p.AVCorr, 4),
		}
		if _, err := fmt.Fprintln(w, strings.Join(row, opts.Sep)); err != nil {
			return fmt.Errorf("write point %s: %w", p.ID, err)
		}
	}
	return nil
}
