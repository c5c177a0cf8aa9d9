package types

import (
	"fmt"
	"strconv"
	"strings"
)

// memoryUnits maps the accepted suffixes: decimal suffixes are powers of
// 1000, binary suffixes powers of 1024.
var memoryUnits = map[string]float64{
	"K": 1e3, "M": 1e6, "G": 1e9, "T": 1e12,
	"Ki": 1 << 10, "Mi": 1 << 20, "Gi": 1 << 30, "Ti": 1 << 40,
}

// ParseMemoryBytes converts a human memory quantity to bytes. Accepted
// forms: a raw integer byte count, or a number (fractions allowed) with a
// K/M/G/T or Ki/Mi/Gi/Ti suffix. Fractional quantities are floored after
// scaling, so "0.5Gi" is 536870912.
func ParseMemoryBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty memory value")
	}

	cut := len(s)
	for cut > 0 {
		c := s[cut-1]
		if c >= '0' && c <= '9' || c == '.' {
			break
		}
		cut--
	}
	num, suffix := s[:cut], s[cut:]

	if suffix == "" {
		n, err := strconv.ParseInt(num, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid memory value %q", s)
		}
		return n, nil
	}

	mult, ok := memoryUnits[suffix]
	if !ok {
		return 0, fmt.Errorf("unknown memory unit %q in %q", suffix, s)
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid memory value %q", s)
	}
	return int64(f * mult), nil
}
