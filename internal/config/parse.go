package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseNum parses a numeric string, accepting both '.' and ',' as the
// decimal separator. Field crews swap between locale keyboards, so "12,5"
// and "12.5" both mean twelve and a half. Empty and non-finite values are
// rejected.
func ParseNum(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty numeric value")
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite number %q", s)
	}
	return v, nil
}

// Num is a float64 that unmarshals from either a JSON number or a
// locale-tolerant numeric string. Configs edited by hand or produced by
// spreadsheet exports frequently quote their numbers.
type Num float64

func (n *Num) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := ParseNum(s)
		if err != nil {
			return err
		}
		*n = Num(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Num(v)
	return nil
}
