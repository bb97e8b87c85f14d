package force

// State is the simulation lifecycle stage
type State int

const (
	// Seeding: positions assigned, no tick run yet
	Seeding State = iota
	// Running: forces applied each tick while alpha decays
	Running
	// Settled: alpha fell below the threshold; ticks are no-ops
	Settled
	// Reheated: alpha target raised by a drag; the next tick re-enters Running
	Reheated
)

func (s State) String() string {
	switch s {
	case Seeding:
		return "seeding"
	case Running:
		return "running"
	case Settled:
		return "settled"
	case Reheated:
		return "reheated"
	}
	return "unknown"
}

// MarshalText lets states appear by name in JSON scenes and logs
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
