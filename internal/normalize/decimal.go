package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseDecimal parses an amount written with "." or "," as the decimal separator.
// When both appear, the rightmost one is the decimal separator ("1.234,56" is 1234.56).
// A trailing minus, as printed on some discount lines ("1,50-"), negates the value.
func ParseDecimal(s string) (float64, error) {
	orig := s
	s = strings.NewReplacer(" ", "", "\u00a0", "").Replace(strings.TrimSpace(s))
	neg := false
	if strings.HasSuffix(s, "-") {
		neg = true
		s = strings.TrimSuffix(s, "-")
	}

	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case dot >= 0 && comma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.ReplaceAll(s, ",", ".")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing decimal %q: %w", orig, err)
	}
	if neg {
		v = -v
	}
	return v, nil
}

// Round2 rounds v to cents, half away from zero. The nudge absorbs binary representation error
// so 1.23*2.5 rounds to 3.08.
func Round2(v float64) float64 {
	return math.Round(v*100+math.Copysign(1e-7, v)) / 100
}
