package util

import (
	"strconv"
	"strings"
)

// ParseFloat parses a decimal string as exchanges send prices and sizes.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseFloatDefault parses s or returns def when it is empty or invalid.
func ParseFloatDefault(s string, def float64) float64 {
	if v, ok := ParseFloat(s); ok {
		return v
	}
	return def
}
