package domain

import (
	"time"

	"github.com/google/uuid"
)

// TimerState is the lifecycle state of a tracked work timer.
type TimerState string

const (
	TimerStopped TimerState = "stopped"
	TimerRunning TimerState = "running"
	TimerPaused  TimerState = "paused"
)

// RoundingDirection controls which way whole-interval rounding goes.
type RoundingDirection string

const (
	RoundUp      RoundingDirection = "up"
	RoundDown    RoundingDirection = "down"
	RoundNearest RoundingDirection = "nearest"
)

// RoundingSettings describes how raw tracked seconds are rounded for billing.
// Intervals are minutes. An interval <= 0 disables that rounding mode.
type RoundingSettings struct {
	Interval         int               `json:"rounding_interval"`
	Direction        RoundingDirection `json:"rounding_direction"`
	InFragments      bool              `json:"round_in_time_fragments"`
	FragmentInterval int               `json:"time_fragment_interval"`
}

// TimerID is a value object for timer identity.
type TimerID struct{ uuid.UUID }

// NewTimerID creates a new TimerID from uuid.
func NewTimerID(id uuid.UUID) TimerID { return TimerID{UUID: id} }

// String returns the canonical string form.
func (t TimerID) String() string { return t.UUID.String() }

// TimerSnapshot is the persisted state of one timer. Live display values
// (current active seconds, rounded time, earnings) are derived, never stored.
type TimerSnapshot struct {
	ID        TimerID
	AccountID AccountID
	ProjectID ProjectID
	State     TimerState

	// StartTime is the wall-clock instant the current run began; nil while
	// the timer has never been started. TempStartTime is the instant of the
	// most recent Running/Paused segment start and is the baseline for live
	// accumulation.
	StartTime     *time.Time
	TempStartTime *time.Time
	EndTime       *time.Time

	// Accumulated seconds from previous segments of this run.
	StoredActiveSeconds int64
	StoredPausedSeconds int64

	// Signed second offsets applied by manual adjustment of the effective
	// start/end instants. They never mutate the recorded clock reads.
	DeltaStartSeconds int64
	DeltaEndSeconds   int64

	Rounding RoundingSettings
	Memo     string

	UpdatedAt time.Time
}
