package game

// Side is a bettable side of the Dragon Tiger table.
type Side string

const (
	SideDragon Side = "dragon"
	SideTiger  Side = "tiger"
	// SideAuto is only valid as a configured preference; it is never
	// passed to PlaceBet.
	SideAuto Side = "auto"
)

// Valid reports whether s can actually be bet on.
func (s Side) Valid() bool {
	return s == SideDragon || s == SideTiger
}

// Other returns the opposing bettable side.
func (s Side) Other() Side {
	if s == SideDragon {
		return SideTiger
	}
	return SideDragon
}

// RawResult is a round result as reported by the table, before it is
// classified relative to the side we bet on.
type RawResult string

const (
	ResultDragon  RawResult = "dragon"
	ResultTiger   RawResult = "tiger"
	ResultTie     RawResult = "tie"
	ResultUnknown RawResult = "unknown"
)

// TableState is a between-rounds snapshot of the table.
type TableState struct {
	RoundID string      `json:"round_id"`
	Phase   string      `json:"phase"`
	Recent  []RawResult `json:"recent"`
}
