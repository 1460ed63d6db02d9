package models

import "strings"

// Side is the direction of a signal or an order.
type Side string

const (
	SideLong  Side = "BUY"
	SideShort Side = "SELL"
)

// Opposite returns the closing side.
func (s Side) Opposite() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

// ParseSide accepts BUY/SELL as well as LONG/SHORT.
func ParseSide(s string) (Side, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "LONG":
		return SideLong, true
	case "SELL", "SHORT":
		return SideShort, true
	default:
		return "", false
	}
}

// Signal is a proposed trade with protective levels derived from the entry.
type Signal struct {
	Side  Side    `json:"side"`
	Entry float64 `json:"entry"`
	Stop  float64 `json:"stop"`
	Take  float64 `json:"take"`
}
