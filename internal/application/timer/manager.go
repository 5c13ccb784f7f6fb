package timer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/GwydionBr/life-manager-sub000/internal/application/ports"
	"github.com/GwydionBr/life-manager-sub000/internal/domain"
	domerrors "github.com/GwydionBr/life-manager-sub000/internal/domain/errors"
)

// DefaultCapacity is the registry limit when the config does not set one.
const DefaultCapacity = 10

// ManagerConfig tunes the registry.
type ManagerConfig struct {
	// Capacity caps the number of concurrently registered timers.
	Capacity int
	// AutoStopOthers submits every other running timer before a new one
	// starts, so at most one timer is ever running.
	AutoStopOthers bool
	// DefaultRounding is the last tier of the settings fallback chain.
	DefaultRounding domain.RoundingSettings
}

// Manager is the registry of live timers, keyed by timer id with a derived
// index by project. It is an explicitly constructed service, not a package
// global; the application root owns one instance.
type Manager struct {
	mu        sync.Mutex
	clocks    map[domain.TimerID]*Clock
	byProject map[domain.ProjectID]domain.TimerID

	cfg       ManagerConfig
	entries   ports.WorkTimeRepository
	snapshots ports.TimerSnapshotRepository
	projects  ports.ProjectRepository
	log       zerolog.Logger

	// lastEntry holds the entry written by the most recent submitLocked so
	// Submit can return it.
	lastEntry *domain.WorkTimeEntry
}

// NewManager creates an empty registry.
func NewManager(cfg ManagerConfig, entries ports.WorkTimeRepository, snapshots ports.TimerSnapshotRepository, projects ports.ProjectRepository, log zerolog.Logger) *Manager {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	return &Manager{
		clocks:    make(map[domain.TimerID]*Clock),
		byProject: make(map[domain.ProjectID]domain.TimerID),
		cfg:       cfg,
		entries:   entries,
		snapshots: snapshots,
		projects:  projects,
		log:       log,
	}
}

// Add registers a stopped timer for the project. It fails with ErrTimerLimit
// on a full registry and ErrDuplicateTimer when the project already has a
// timer; neither failure mutates the registry. Rounding settings resolve
// project -> account -> configured default.
func (m *Manager) Add(ctx context.Context, account *domain.Account, project *domain.Project) (*Clock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.clocks) >= m.cfg.Capacity {
		return nil, domerrors.ErrTimerLimit
	}
	if _, ok := m.byProject[project.ID]; ok {
		return nil, domerrors.ErrDuplicateTimer
	}
	clock := NewClock(account.ID, project, ResolveRounding(project, account, m.cfg.DefaultRounding))
	snap := clock.Snapshot()
	if err := m.snapshots.Save(ctx, &snap); err != nil {
		return nil, err
	}
	m.clocks[snap.ID] = clock
	m.byProject[snap.ProjectID] = snap.ID
	return clock, nil
}

// Remove drops a timer from the registry and deletes its snapshot. It never
// writes a work-time entry.
func (m *Manager) Remove(ctx context.Context, id domain.TimerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clock, ok := m.clocks[id]
	if !ok {
		return domerrors.ErrTimerNotFound
	}
	if err := m.snapshots.Delete(ctx, id); err != nil {
		return err
	}
	m.unregisterLocked(clock)
	return nil
}

// Get returns the clock for a timer id.
func (m *Manager) Get(id domain.TimerID) (*Clock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clock, ok := m.clocks[id]
	if !ok {
		return nil, domerrors.ErrTimerNotFound
	}
	return clock, nil
}

// GetByProject returns the clock tracking the given project, or nil.
func (m *Manager) GetByProject(projectID domain.ProjectID) *Clock {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byProject[projectID]; ok {
		return m.clocks[id]
	}
	return nil
}

// All returns every registered clock.
func (m *Manager) All() []*Clock {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Clock, 0, len(m.clocks))
	for _, c := range m.clocks {
		out = append(out, c)
	}
	return out
}

// RunningCount returns the number of running timers.
func (m *Manager) RunningCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.clocks {
		if c.State() == domain.TimerRunning {
			n++
		}
	}
	return n
}

// IsTimerRunning reports whether any timer is running.
func (m *Manager) IsTimerRunning() bool { return m.RunningCount() > 0 }

// ActiveTimer returns the first running timer, or nil. Calendar overlays use
// it to place the live "now" marker.
func (m *Manager) ActiveTimer() *Clock {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.clocks {
		if c.State() == domain.TimerRunning {
			return c
		}
	}
	return nil
}

// Start transitions a timer to Running. With AutoStopOthers every other
// running timer is submitted first, and a failed submission aborts the start
// so the at-most-one-running invariant holds.
func (m *Manager) Start(ctx context.Context, id domain.TimerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clock, ok := m.clocks[id]
	if !ok {
		return domerrors.ErrTimerNotFound
	}
	if m.cfg.AutoStopOthers {
		for _, other := range m.clocks {
			if other == clock || other.State() != domain.TimerRunning {
				continue
			}
			if err := m.submitLocked(ctx, other, ""); err != nil {
				return err
			}
		}
	}
	if err := clock.Start(); err != nil {
		return err
	}
	return m.persistLocked(ctx, clock)
}

// Pause transitions Running -> Paused.
func (m *Manager) Pause(ctx context.Context, id domain.TimerID) error {
	return m.mutate(ctx, id, (*Clock).Pause)
}

// Resume transitions Paused -> Running.
func (m *Manager) Resume(ctx context.Context, id domain.TimerID) error {
	return m.mutate(ctx, id, (*Clock).Resume)
}

// ModifyActiveSeconds applies a signed manual adjustment to stored active
// time, clamped at zero.
func (m *Manager) ModifyActiveSeconds(ctx context.Context, id domain.TimerID, delta int64) error {
	return m.mutate(ctx, id, func(c *Clock) error { c.ModifyActiveSeconds(delta); return nil })
}

// ModifyPausedSeconds applies a signed manual adjustment to stored paused
// time, clamped at zero.
func (m *Manager) ModifyPausedSeconds(ctx context.Context, id domain.TimerID, delta int64) error {
	return m.mutate(ctx, id, func(c *Clock) error { c.ModifyPausedSeconds(delta); return nil })
}

// AdjustStart shifts the effective start instant by a signed second offset.
func (m *Manager) AdjustStart(ctx context.Context, id domain.TimerID, delta int64) error {
	return m.mutate(ctx, id, func(c *Clock) error { c.AdjustStart(delta); return nil })
}

// AdjustEnd shifts the effective end instant by a signed second offset.
func (m *Manager) AdjustEnd(ctx context.Context, id domain.TimerID, delta int64) error {
	return m.mutate(ctx, id, func(c *Clock) error { c.AdjustEnd(delta); return nil })
}

// SetMemo updates the memo attached at stop time.
func (m *Manager) SetMemo(ctx context.Context, id domain.TimerID, memo string) error {
	return m.mutate(ctx, id, func(c *Clock) error { c.SetMemo(memo); return nil })
}

// SetRounding replaces the timer's rounding settings, or only the session
// override when temp is true.
func (m *Manager) SetRounding(ctx context.Context, id domain.TimerID, s domain.RoundingSettings, temp bool) error {
	return m.mutate(ctx, id, func(c *Clock) error {
		if temp {
			c.SetTempRounding(&s)
		} else {
			c.SetRounding(s)
		}
		return nil
	})
}

// SetForceEnd flags a timer for submission by the next sweep.
func (m *Manager) SetForceEnd(id domain.TimerID, flag bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clock, ok := m.clocks[id]
	if !ok {
		return domerrors.ErrTimerNotFound
	}
	clock.SetForceEnd(flag)
	return nil
}

// SweepForceEnded submits every timer flagged for force-end.
func (m *Manager) SweepForceEnded(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, clock := range m.clocks {
		if !clock.ForceEnd() {
			continue
		}
		if err := m.submitLocked(ctx, clock, ""); err != nil {
			m.log.Error().Err(err).Str("timer_id", clock.ID().String()).Msg("force-end submit failed")
		}
	}
}

// Submit finalizes a timer into a work-time entry, deletes its snapshot and
// removes it from the registry. Zero-duration submissions are permitted.
func (m *Manager) Submit(ctx context.Context, id domain.TimerID, memo string) (*domain.WorkTimeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clock, ok := m.clocks[id]
	if !ok {
		return nil, domerrors.ErrTimerNotFound
	}
	if err := m.submitLocked(ctx, clock, memo); err != nil {
		return nil, err
	}
	return m.lastEntry, nil
}

// Cancel discards a timer without persisting an entry.
func (m *Manager) Cancel(ctx context.Context, id domain.TimerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clock, ok := m.clocks[id]
	if !ok {
		return domerrors.ErrTimerNotFound
	}
	if err := clock.Cancel(); err != nil {
		return err
	}
	if err := m.snapshots.Delete(ctx, clock.ID()); err != nil {
		m.log.Warn().Err(err).Str("timer_id", clock.ID().String()).Msg("delete snapshot after cancel")
	}
	m.unregisterLocked(clock)
	return nil
}

// Restore rehydrates the registry from persisted snapshots on boot. Running
// timers resume with wall-clock-correct elapsed time.
func (m *Manager) Restore(ctx context.Context) error {
	snaps, err := m.snapshots.ListAll(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, snap := range snaps {
		var project *domain.Project
		if m.projects != nil {
			project, err = m.projects.GetByID(ctx, snap.AccountID, snap.ProjectID)
			if err != nil {
				m.log.Warn().Err(err).Str("timer_id", snap.ID.String()).Msg("restore: project lookup failed")
			}
		}
		clock := RestoreClock(snap, project)
		m.clocks[snap.ID] = clock
		m.byProject[snap.ProjectID] = snap.ID
	}
	if len(snaps) > 0 {
		m.log.Info().Int("timers", len(snaps)).Msg("restored timer registry")
	}
	return nil
}

func (m *Manager) submitLocked(ctx context.Context, clock *Clock, memo string) error {
	if err := clock.BeginSubmit(); err != nil {
		return err
	}
	defer clock.EndSubmit()

	fin := clock.Finalize(memo)
	rounding := fin.Rounding
	fragment := 0
	if rounding.InFragments {
		fragment = rounding.FragmentInterval
	}
	entry := &domain.WorkTimeEntry{
		ID:               uuid.New(),
		AccountID:        clock.AccountID(),
		ProjectID:        clock.ProjectID(),
		ActiveSeconds:    fin.ActiveSeconds,
		PausedSeconds:    fin.PausedSeconds,
		StartTime:        fin.StartTime,
		EndTime:          fin.EndTime,
		TrueEndTime:      fin.TrueEndTime,
		Memo:             fin.Memo,
		Salary:           fin.Salary,
		Currency:         clock.Currency(),
		HourlyPayment:    clock.HourlyRate(),
		FragmentInterval: fragment,
		CreatedAt:        time.Now(),
	}
	if err := m.entries.Create(ctx, entry); err != nil {
		return err
	}
	if err := m.snapshots.Delete(ctx, clock.ID()); err != nil {
		m.log.Warn().Err(err).Str("timer_id", clock.ID().String()).Msg("delete snapshot after submit")
	}
	m.unregisterLocked(clock)
	m.lastEntry = entry
	m.log.Info().
		Str("timer_id", clock.ID().String()).
		Str("project_id", entry.ProjectID.String()).
		Int64("active_seconds", entry.ActiveSeconds).
		Msg("timer submitted")
	return nil
}

func (m *Manager) persistLocked(ctx context.Context, clock *Clock) error {
	snap := clock.Snapshot()
	return m.snapshots.Save(ctx, &snap)
}

func (m *Manager) unregisterLocked(clock *Clock) {
	id := clock.ID()
	delete(m.byProject, clock.ProjectID())
	delete(m.clocks, id)
}

func (m *Manager) mutate(ctx context.Context, id domain.TimerID, fn func(*Clock) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clock, ok := m.clocks[id]
	if !ok {
		return domerrors.ErrTimerNotFound
	}
	if err := fn(clock); err != nil {
		return err
	}
	return m.persistLocked(ctx, clock)
}
