package domain

import "time"

// Snapshot is a persisted Order together with the state machine cursor it was
// folded with, so folding can resume without replaying the whole log.
type Snapshot struct {
	Order         Order
	MachineState  State
	EventCount    int
	LastEventTime uint64
	UpdatedAt     time.Time
}
