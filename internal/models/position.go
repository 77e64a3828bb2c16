package models

import "strings"

// Direction of an open exposure.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// ParseDirection accepts LONG/SHORT in any case.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(Long):
		return Long, true
	case string(Short):
		return Short, true
	}
	return "", false
}

// Position is one open exposure of an address.
type Position struct {
	Token            string    `json:"token"`
	Direction        Direction `json:"direction"`
	Value            float64   `json:"value"` // USD notional
	Leverage         float64   `json:"leverage"`
	EntryPrice       float64   `json:"entry_price"`
	LiquidationPrice *float64  `json:"liquidation_price,omitempty"`
	Funding          float64   `json:"funding"`
}

// PosKey identifies a position for diffing. Two positions of the same token
// and direction collapse into one.
type PosKey struct {
	Token     string
	Direction Direction
}

func (p Position) Key() PosKey {
	return PosKey{Token: p.Token, Direction: p.Direction}
}

// HasLiquidation reports whether a liquidation price is known.
func (p Position) HasLiquidation() bool {
	return p.LiquidationPrice != nil
}

// Float returns a pointer to v, for optional fields.
func Float(v float64) *float64 { return &v }
