package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/GwydionBr/life-manager-sub000/internal/application/ports"
	"github.com/GwydionBr/life-manager-sub000/internal/application/timer"
	"github.com/GwydionBr/life-manager-sub000/internal/domain"
	domerrors "github.com/GwydionBr/life-manager-sub000/internal/domain/errors"
	"github.com/GwydionBr/life-manager-sub000/internal/infrastructure/http/middleware"
)

// TimersHandler handles /timers/*. All routes run behind the account resolver.
type TimersHandler struct {
	manager  *timer.Manager
	projects ports.ProjectRepository
	validate *validator.Validate
	log      zerolog.Logger
}

func NewTimersHandler(manager *timer.Manager, projects ports.ProjectRepository, log zerolog.Logger) *TimersHandler {
	return &TimersHandler{
		manager:  manager,
		projects: projects,
		validate: validator.New(),
		log:      log,
	}
}

type roundingDTO struct {
	Interval         int    `json:"interval"`
	Direction        string `json:"direction"`
	InFragments      bool   `json:"in_fragments"`
	FragmentInterval int    `json:"fragment_interval"`
}

type timerDTO struct {
	ID              string      `json:"id"`
	ProjectID       string      `json:"project_id"`
	State           string      `json:"state"`
	ActiveSeconds   int64       `json:"active_seconds"`
	PausedSeconds   int64       `json:"paused_seconds"`
	RoundedSeconds  int64       `json:"rounded_seconds"`
	Earned          string      `json:"earned"`
	Currency        string      `json:"currency"`
	Memo            string      `json:"memo"`
	EffectiveStart  *time.Time  `json:"effective_start,omitempty"`
	EffectiveEnd    *time.Time  `json:"effective_end,omitempty"`
	Rounding        roundingDTO `json:"rounding"`
}

func timerToDTO(c *timer.Clock) timerDTO {
	snap := c.Snapshot()
	return timerDTO{
		ID:             snap.ID.String(),
		ProjectID:      snap.ProjectID.String(),
		State:          string(snap.State),
		ActiveSeconds:  c.ActiveSeconds(),
		PausedSeconds:  c.PausedSeconds(),
		RoundedSeconds: c.RoundedActiveSeconds(),
		Earned:         c.Earned().String(),
		Currency:       c.Currency(),
		Memo:           snap.Memo,
		EffectiveStart: c.EffectiveStart(),
		EffectiveEnd:   c.EffectiveEnd(),
		Rounding: roundingDTO{
			Interval:         snap.Rounding.Interval,
			Direction:        string(snap.Rounding.Direction),
			InFragments:      snap.Rounding.InFragments,
			FragmentInterval: snap.Rounding.FragmentInterval,
		},
	}
}

type entryDTO struct {
	ID            string     `json:"id"`
	ProjectID     string     `json:"project_id"`
	ActiveSeconds int64      `json:"active_seconds"`
	PausedSeconds int64      `json:"paused_seconds"`
	StartTime     *time.Time `json:"start_time,omitempty"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	TrueEndTime   *time.Time `json:"true_end_time,omitempty"`
	Memo          string     `json:"memo"`
	Salary        string     `json:"salary"`
	Currency      string     `json:"currency"`
	HourlyPayment string     `json:"hourly_payment"`
}

func entryToDTO(e *domain.WorkTimeEntry) entryDTO {
	return entryDTO{
		ID:            e.ID.String(),
		ProjectID:     e.ProjectID.String(),
		ActiveSeconds: e.ActiveSeconds,
		PausedSeconds: e.PausedSeconds,
		StartTime:     &e.StartTime,
		EndTime:       &e.EndTime,
		TrueEndTime:   &e.TrueEndTime,
		Memo:          e.Memo,
		Salary:        e.Salary.String(),
		Currency:      e.Currency,
		HourlyPayment: e.HourlyPayment.String(),
	}
}

// Create handles POST /timers. Body: { "project_id": "..." }.
func (h *TimersHandler) Create(w http.ResponseWriter, r *http.Request) {
	account := middleware.AccountFromContext(r.Context())
	var body struct {
		ProjectID string `json:"project_id" validate:"required,uuid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "", err.Error())
		return
	}
	projectID, err := uuid.Parse(body.ProjectID)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid project_id")
		return
	}
	project, err := h.projects.GetByID(r.Context(), account.ID, domain.NewProjectID(projectID))
	if err != nil {
		h.log.Error().Err(err).Msg("project lookup failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	if project == nil {
		writeDomainErr(w, domerrors.ErrProjectNotFound)
		return
	}
	clock, err := h.manager.Add(r.Context(), account, project)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, timerToDTO(clock))
}

// List handles GET /timers, scoped to the calling account.
func (h *TimersHandler) List(w http.ResponseWriter, r *http.Request) {
	account := middleware.AccountFromContext(r.Context())
	out := make([]timerDTO, 0)
	for _, clock := range h.manager.All() {
		if clock.AccountID() == account.ID {
			out = append(out, timerToDTO(clock))
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"timers": out})
}

// Active handles GET /timers/active. Returns 404 when nothing is running.
func (h *TimersHandler) Active(w http.ResponseWriter, r *http.Request) {
	account := middleware.AccountFromContext(r.Context())
	clock := h.manager.ActiveTimer()
	if clock == nil || clock.AccountID() != account.ID {
		writeDomainErr(w, domerrors.ErrTimerNotFound)
		return
	}
	writeJSON(w, http.StatusOK, timerToDTO(clock))
}

// Get handles GET /timers/:id.
func (h *TimersHandler) Get(w http.ResponseWriter, r *http.Request) {
	clock, ok := h.clockFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, timerToDTO(clock))
}

// Start handles POST /timers/:id/start.
func (h *TimersHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.manager.Start)
}

// Pause handles POST /timers/:id/pause.
func (h *TimersHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.manager.Pause)
}

// Resume handles POST /timers/:id/resume.
func (h *TimersHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.manager.Resume)
}

// Submit handles POST /timers/:id/submit. Body: { "memo": "..." } (optional).
func (h *TimersHandler) Submit(w http.ResponseWriter, r *http.Request) {
	clock, ok := h.clockFromRequest(w, r)
	if !ok {
		return
	}
	var body struct {
		Memo string `json:"memo"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeErr(w, http.StatusBadRequest, "", "invalid body")
			return
		}
	}
	entry, err := h.manager.Submit(r.Context(), clock.ID(), body.Memo)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	middleware.RecordTimerSubmitted()
	writeJSON(w, http.StatusOK, entryToDTO(entry))
}

// Cancel handles POST /timers/:id/cancel. Discards without writing an entry.
func (h *TimersHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	clock, ok := h.clockFromRequest(w, r)
	if !ok {
		return
	}
	if err := h.manager.Cancel(r.Context(), clock.ID()); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Remove handles DELETE /timers/:id. Drops a stopped timer from the registry.
func (h *TimersHandler) Remove(w http.ResponseWriter, r *http.Request) {
	clock, ok := h.clockFromRequest(w, r)
	if !ok {
		return
	}
	if err := h.manager.Remove(r.Context(), clock.ID()); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Adjust handles PATCH /timers/:id/adjust. All fields are signed second
// deltas and optional; each present field is applied in order.
func (h *TimersHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	clock, ok := h.clockFromRequest(w, r)
	if !ok {
		return
	}
	var body struct {
		ActiveDelta *int64 `json:"active_delta"`
		PausedDelta *int64 `json:"paused_delta"`
		StartDelta  *int64 `json:"start_delta"`
		EndDelta    *int64 `json:"end_delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid body")
		return
	}
	id := clock.ID()
	steps := []struct {
		delta *int64
		apply func(int64) error
	}{
		{body.ActiveDelta, func(d int64) error { return h.manager.ModifyActiveSeconds(r.Context(), id, d) }},
		{body.PausedDelta, func(d int64) error { return h.manager.ModifyPausedSeconds(r.Context(), id, d) }},
		{body.StartDelta, func(d int64) error { return h.manager.AdjustStart(r.Context(), id, d) }},
		{body.EndDelta, func(d int64) error { return h.manager.AdjustEnd(r.Context(), id, d) }},
	}
	for _, step := range steps {
		if step.delta == nil {
			continue
		}
		if err := step.apply(*step.delta); err != nil {
			writeDomainErr(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, timerToDTO(clock))
}

// SetMemo handles PUT /timers/:id/memo. Body: { "memo": "..." }.
func (h *TimersHandler) SetMemo(w http.ResponseWriter, r *http.Request) {
	clock, ok := h.clockFromRequest(w, r)
	if !ok {
		return
	}
	var body struct {
		Memo string `json:"memo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid body")
		return
	}
	if err := h.manager.SetMemo(r.Context(), clock.ID(), body.Memo); err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, timerToDTO(clock))
}

// SetRounding handles PUT /timers/:id/rounding. Body: rounding settings plus
// { "temp": true } for a session-only override.
func (h *TimersHandler) SetRounding(w http.ResponseWriter, r *http.Request) {
	clock, ok := h.clockFromRequest(w, r)
	if !ok {
		return
	}
	var body struct {
		Interval         int    `json:"interval" validate:"min=0"`
		Direction        string `json:"direction" validate:"omitempty,oneof=up down nearest"`
		InFragments      bool   `json:"in_fragments"`
		FragmentInterval int    `json:"fragment_interval" validate:"min=0"`
		Temp             bool   `json:"temp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "", err.Error())
		return
	}
	settings := domain.RoundingSettings{
		Interval:         body.Interval,
		Direction:        domain.RoundingDirection(body.Direction),
		InFragments:      body.InFragments,
		FragmentInterval: body.FragmentInterval,
	}
	if err := h.manager.SetRounding(r.Context(), clock.ID(), settings, body.Temp); err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, timerToDTO(clock))
}

// SetForceEnd handles POST /timers/:id/force-end. Body: { "flag": true }.
func (h *TimersHandler) SetForceEnd(w http.ResponseWriter, r *http.Request) {
	clock, ok := h.clockFromRequest(w, r)
	if !ok {
		return
	}
	var body struct {
		Flag bool `json:"flag"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid body")
		return
	}
	if err := h.manager.SetForceEnd(clock.ID(), body.Flag); err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, timerToDTO(clock))
}

func (h *TimersHandler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, domain.TimerID) error) {
	clock, ok := h.clockFromRequest(w, r)
	if !ok {
		return
	}
	if err := fn(r.Context(), clock.ID()); err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, timerToDTO(clock))
}

// clockFromRequest parses :id, resolves the clock and enforces account
// ownership. Foreign timers read as not found.
func (h *TimersHandler) clockFromRequest(w http.ResponseWriter, r *http.Request) (*timer.Clock, bool) {
	account := middleware.AccountFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid timer id")
		return nil, false
	}
	clock, err := h.manager.Get(domain.NewTimerID(id))
	if err != nil {
		writeDomainErr(w, err)
		return nil, false
	}
	if clock.AccountID() != account.ID {
		writeDomainErr(w, domerrors.ErrTimerNotFound)
		return nil, false
	}
	return clock, true
}
