package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a numeric form value. Form inputs arrive either as JSON numbers or as
// the raw text of an input box, so decoding accepts both. Blank, null and
// non-numeric text decode to zero, which positivity rules reject.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = ParseNumber(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// ParseNumber converts free-form text to a Number, returning zero when the text is not numeric.
func ParseNumber(s string) Number {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return Number(f)
}

// Float64 returns n as a float64.
func (n Number) Float64() float64 { return float64(n) }

// Positive reports whether n is strictly greater than zero.
func (n Number) Positive() bool { return n > 0 }

// Count is a whole-number form value such as the number of borewells. It
// decodes like Number and drops any fractional part. Values too large to
// count exactly decode to zero.
type Count int

// maxCount is the largest magnitude a float64 holds without losing integers.
const maxCount = 1 << 53

// UnmarshalJSON implements json.Unmarshaler.
func (c *Count) UnmarshalJSON(data []byte) error {
	var n Number
	if err := n.UnmarshalJSON(data); err != nil {
		return err
	}
	*c = CountOf(n)
	return nil
}

// CountOf truncates n to a Count.
func CountOf(n Number) Count {
	f := math.Trunc(n.Float64())
	if math.IsNaN(f) || f > maxCount || f < -maxCount {
		return 0
	}
	return Count(f)
}

// Int returns c as an int.
func (c Count) Int() int { return int(c) }
