package timer

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/GwydionBr/life-manager-sub000/internal/domain"
	domerrors "github.com/GwydionBr/life-manager-sub000/internal/domain/errors"
)

var secondsPerHour = decimal.NewFromInt(3600)

// Clock is the state machine of a single timer. All reads of elapsed time
// are derived from wall clock plus stored state, so a restored snapshot of a
// running timer keeps ticking correctly across a process restart.
type Clock struct {
	mu sync.Mutex

	snap         domain.TimerSnapshot
	hourlyRate   decimal.Decimal
	currency     string
	tempRounding *domain.RoundingSettings
	submitting   bool
	forceEnd     bool

	now func() time.Time
}

// Finalized carries the computed values of a submitted timer. Start and end
// are the delta-adjusted effective instants; TrueEndTime is the raw
// wall-clock stop instant.
type Finalized struct {
	ActiveSeconds  int64
	PausedSeconds  int64
	RoundedSeconds int64
	StartTime      time.Time
	EndTime        time.Time
	TrueEndTime    time.Time
	Rounding       domain.RoundingSettings
	Salary         decimal.Decimal
	Memo           string
}

// NewClock creates a stopped timer for the given project.
func NewClock(accountID domain.AccountID, project *domain.Project, rounding domain.RoundingSettings) *Clock {
	c := &Clock{
		snap: domain.TimerSnapshot{
			ID:        domain.NewTimerID(uuid.New()),
			AccountID: accountID,
			ProjectID: project.ID,
			State:     domain.TimerStopped,
			Rounding:  rounding,
		},
		hourlyRate: project.HourlyRate,
		currency:   project.Currency,
		now:        time.Now,
	}
	c.snap.UpdatedAt = c.now()
	return c
}

// RestoreClock rehydrates a timer from a persisted snapshot. Elapsed time of
// a running timer derives from the persisted TempStartTime against the wall
// clock, not from a fresh start.
func RestoreClock(snap *domain.TimerSnapshot, project *domain.Project) *Clock {
	c := &Clock{snap: *snap, now: time.Now}
	if project != nil {
		c.hourlyRate = project.HourlyRate
		c.currency = project.Currency
	}
	return c
}

func (c *Clock) ID() domain.TimerID         { c.mu.Lock(); defer c.mu.Unlock(); return c.snap.ID }
func (c *Clock) ProjectID() domain.ProjectID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.ProjectID
}
func (c *Clock) AccountID() domain.AccountID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.AccountID
}
func (c *Clock) State() domain.TimerState { c.mu.Lock(); defer c.mu.Unlock(); return c.snap.State }
func (c *Clock) Currency() string         { c.mu.Lock(); defer c.mu.Unlock(); return c.currency }
func (c *Clock) HourlyRate() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hourlyRate
}

// Start transitions Stopped -> Running.
func (c *Clock) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap.State != domain.TimerStopped {
		return domerrors.ErrTimerAlreadyRunning
	}
	now := c.now()
	c.snap.StartTime = &now
	c.snap.TempStartTime = &now
	c.snap.State = domain.TimerRunning
	c.snap.UpdatedAt = now
	return nil
}

// Pause snapshots the live active seconds into the stored baseline and
// transitions Running -> Paused.
func (c *Clock) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap.State != domain.TimerRunning {
		return domerrors.ErrTimerNotRunning
	}
	now := c.now()
	c.snap.StoredActiveSeconds += c.segmentSeconds(now)
	c.snap.TempStartTime = &now
	c.snap.State = domain.TimerPaused
	c.snap.UpdatedAt = now
	return nil
}

// Resume snapshots the live paused seconds and transitions Paused -> Running.
func (c *Clock) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap.State != domain.TimerPaused {
		return domerrors.ErrTimerNotPaused
	}
	now := c.now()
	c.snap.StoredPausedSeconds += c.segmentSeconds(now)
	c.snap.TempStartTime = &now
	c.snap.State = domain.TimerRunning
	c.snap.UpdatedAt = now
	return nil
}

// ModifyActiveSeconds adjusts the stored active baseline by a signed amount,
// clamping at zero.
func (c *Clock) ModifyActiveSeconds(delta int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.StoredActiveSeconds = clampNonNegative(c.snap.StoredActiveSeconds + delta)
	c.snap.UpdatedAt = c.now()
}

// ModifyPausedSeconds adjusts the stored paused baseline by a signed amount,
// clamping at zero.
func (c *Clock) ModifyPausedSeconds(delta int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.StoredPausedSeconds = clampNonNegative(c.snap.StoredPausedSeconds + delta)
	c.snap.UpdatedAt = c.now()
}

// AdjustStart shifts the effective start instant by a signed second offset
// without touching the recorded wall-clock start.
func (c *Clock) AdjustStart(deltaSeconds int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.DeltaStartSeconds += deltaSeconds
	c.snap.UpdatedAt = c.now()
}

// AdjustEnd shifts the effective end instant by a signed second offset.
func (c *Clock) AdjustEnd(deltaSeconds int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.DeltaEndSeconds += deltaSeconds
	c.snap.UpdatedAt = c.now()
}

// SetMemo replaces the memo attached at stop time.
func (c *Clock) SetMemo(memo string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.Memo = memo
	c.snap.UpdatedAt = c.now()
}

// SetRounding replaces the timer's rounding settings.
func (c *Clock) SetRounding(s domain.RoundingSettings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.Rounding = s
	c.snap.UpdatedAt = c.now()
}

// SetTempRounding sets a session-only override that takes precedence at
// submit time. Nil clears the override.
func (c *Clock) SetTempRounding(s *domain.RoundingSettings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s == nil {
		c.tempRounding = nil
	} else {
		override := *s
		c.tempRounding = &override
	}
	c.snap.UpdatedAt = c.now()
}

// ActiveSeconds returns the displayed active time: stored baseline plus the
// live running segment, adjusted by the net effect of the start/end deltas.
// Extending the effective window in either direction increases the value.
func (c *Clock) ActiveSeconds() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeSecondsAt(c.now())
}

// PausedSeconds returns stored paused time plus the live paused segment.
func (c *Clock) PausedSeconds() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.snap.StoredPausedSeconds
	if c.snap.State == domain.TimerPaused {
		total += c.segmentSeconds(c.now())
	}
	return total
}

// RoundedActiveSeconds applies the effective rounding settings to the
// current active time.
func (c *Clock) RoundedActiveSeconds() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return RoundDuration(c.activeSecondsAt(c.now()), c.effectiveRounding())
}

// Earned returns the amount earned for the current rounded active time.
func (c *Clock) Earned() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	rounded := RoundDuration(c.activeSecondsAt(c.now()), c.effectiveRounding())
	return salaryFor(rounded, c.hourlyRate)
}

// EffectiveStart returns the delta-adjusted start instant, nil before the
// first start.
func (c *Clock) EffectiveStart() *time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap.StartTime == nil {
		return nil
	}
	t := c.snap.StartTime.Add(time.Duration(c.snap.DeltaStartSeconds) * time.Second)
	return &t
}

// EffectiveEnd returns the delta-adjusted end instant. For a timer that is
// still running or paused the base is the current wall clock.
func (c *Clock) EffectiveEnd() *time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	base := c.now()
	if c.snap.State == domain.TimerStopped {
		if c.snap.EndTime == nil {
			return nil
		}
		base = *c.snap.EndTime
	}
	t := base.Add(time.Duration(c.snap.DeltaEndSeconds) * time.Second)
	return &t
}

// ForceEnd reports whether a force-end was requested for this timer.
func (c *Clock) ForceEnd() bool { c.mu.Lock(); defer c.mu.Unlock(); return c.forceEnd }

// SetForceEnd flags the timer for submission by the next sweep.
func (c *Clock) SetForceEnd(flag bool) { c.mu.Lock(); defer c.mu.Unlock(); c.forceEnd = flag }

// BeginSubmit marks a submit in flight. A second submit or a cancel while
// one is pending is rejected.
func (c *Clock) BeginSubmit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitting {
		return domerrors.ErrSubmitInProgress
	}
	if c.snap.StartTime == nil {
		return domerrors.ErrTimerNotStarted
	}
	c.submitting = true
	return nil
}

// EndSubmit clears the in-flight marker after the persistence call settled.
func (c *Clock) EndSubmit() { c.mu.Lock(); defer c.mu.Unlock(); c.submitting = false }

// Finalize computes the values a submitted timer persists. It does not
// mutate the clock, so a failed persistence call leaves the timer intact and
// the submit re-runnable.
func (c *Clock) Finalize(memo string) Finalized {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	active := c.activeSecondsAt(now)
	paused := c.snap.StoredPausedSeconds
	if c.snap.State == domain.TimerPaused {
		paused += c.segmentSeconds(now)
	}
	rounding := c.effectiveRounding()
	rounded := RoundDuration(active, rounding)
	if memo == "" {
		memo = c.snap.Memo
	}
	start := now
	if c.snap.StartTime != nil {
		start = *c.snap.StartTime
	}
	return Finalized{
		ActiveSeconds:  active,
		PausedSeconds:  paused,
		RoundedSeconds: rounded,
		StartTime:      start.Add(time.Duration(c.snap.DeltaStartSeconds) * time.Second),
		EndTime:        now.Add(time.Duration(c.snap.DeltaEndSeconds) * time.Second),
		TrueEndTime:    now,
		Rounding:       rounding,
		Salary:         salaryFor(rounded, c.hourlyRate),
		Memo:           memo,
	}
}

// Cancel discards all accumulated state and stops the timer without
// persisting anything.
func (c *Clock) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitting {
		return domerrors.ErrSubmitInProgress
	}
	now := c.now()
	c.snap.StartTime = nil
	c.snap.TempStartTime = nil
	c.snap.EndTime = nil
	c.snap.StoredActiveSeconds = 0
	c.snap.StoredPausedSeconds = 0
	c.snap.DeltaStartSeconds = 0
	c.snap.DeltaEndSeconds = 0
	c.snap.Memo = ""
	c.snap.State = domain.TimerStopped
	c.snap.UpdatedAt = now
	c.tempRounding = nil
	return nil
}

// Snapshot returns a copy of the persisted timer state.
func (c *Clock) Snapshot() domain.TimerSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

func (c *Clock) effectiveRounding() domain.RoundingSettings {
	if c.tempRounding != nil {
		return *c.tempRounding
	}
	return c.snap.Rounding
}

func (c *Clock) segmentSeconds(now time.Time) int64 {
	if c.snap.TempStartTime == nil {
		return 0
	}
	return int64(now.Sub(*c.snap.TempStartTime) / time.Second)
}

func (c *Clock) activeSecondsAt(now time.Time) int64 {
	total := c.snap.StoredActiveSeconds
	if c.snap.State == domain.TimerRunning {
		total += c.segmentSeconds(now)
	}
	total += c.snap.DeltaEndSeconds - c.snap.DeltaStartSeconds
	return clampNonNegative(total)
}

func salaryFor(roundedSeconds int64, hourlyRate decimal.Decimal) decimal.Decimal {
	return hourlyRate.Mul(decimal.NewFromInt(roundedSeconds)).Div(secondsPerHour).Round(2)
}

func clampNonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
