package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/GwydionBr/life-manager-sub000/internal/application/ports"
	"github.com/GwydionBr/life-manager-sub000/internal/domain"
	domerrors "github.com/GwydionBr/life-manager-sub000/internal/domain/errors"
	"github.com/GwydionBr/life-manager-sub000/internal/infrastructure/http/middleware"
)

// ProjectsHandler handles /projects/*.
type ProjectsHandler struct {
	projects ports.ProjectRepository
	entries  ports.WorkTimeRepository
	validate *validator.Validate
	log      zerolog.Logger
}

func NewProjectsHandler(projects ports.ProjectRepository, entries ports.WorkTimeRepository, log zerolog.Logger) *ProjectsHandler {
	return &ProjectsHandler{
		projects: projects,
		entries:  entries,
		validate: validator.New(),
		log:      log,
	}
}

type projectDTO struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	HourlyRate string       `json:"hourly_rate"`
	Currency   string       `json:"currency"`
	Rounding   *roundingDTO `json:"rounding,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

func projectToDTO(p *domain.Project) projectDTO {
	dto := projectDTO{
		ID:         p.ID.String(),
		Name:       p.Name,
		HourlyRate: p.HourlyRate.String(),
		Currency:   p.Currency,
		CreatedAt:  p.CreatedAt,
	}
	if s := p.Rounding; s != nil {
		dto.Rounding = &roundingDTO{
			Interval:         s.Interval,
			Direction:        string(s.Direction),
			InFragments:      s.InFragments,
			FragmentInterval: s.FragmentInterval,
		}
	}
	return dto
}

// Create handles POST /projects.
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	account := middleware.AccountFromContext(r.Context())
	var body struct {
		Name       string       `json:"name" validate:"required,max=255"`
		HourlyRate string       `json:"hourly_rate" validate:"required"`
		Currency   string       `json:"currency" validate:"required,len=3"`
		Rounding   *roundingDTO `json:"rounding"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "", err.Error())
		return
	}
	rate, err := decimal.NewFromString(body.HourlyRate)
	if err != nil || rate.IsNegative() {
		writeErr(w, http.StatusBadRequest, "", "invalid hourly_rate")
		return
	}
	now := time.Now()
	project := &domain.Project{
		ID:         domain.NewProjectID(uuid.New()),
		AccountID:  account.ID,
		Name:       body.Name,
		HourlyRate: rate,
		Currency:   body.Currency,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if s := body.Rounding; s != nil {
		project.Rounding = &domain.RoundingSettings{
			Interval:         s.Interval,
			Direction:        domain.RoundingDirection(s.Direction),
			InFragments:      s.InFragments,
			FragmentInterval: s.FragmentInterval,
		}
	}
	if err := h.projects.Create(r.Context(), project); err != nil {
		h.log.Error().Err(err).Msg("create project failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, projectToDTO(project))
}

// List handles GET /projects.
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	account := middleware.AccountFromContext(r.Context())
	projects, err := h.projects.List(r.Context(), account.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("list projects failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	out := make([]projectDTO, 0, len(projects))
	for _, p := range projects {
		out = append(out, projectToDTO(p))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"projects": out})
}

// Get handles GET /projects/:id.
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	project, ok := h.projectFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, projectToDTO(project))
}

// ListEntries handles GET /projects/:id/entries.
func (h *ProjectsHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	project, ok := h.projectFromRequest(w, r)
	if !ok {
		return
	}
	entries, err := h.entries.ListByProject(r.Context(), project.AccountID, project.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("list entries failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	out := make([]entryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryToDTO(e))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": out})
}

func (h *ProjectsHandler) projectFromRequest(w http.ResponseWriter, r *http.Request) (*domain.Project, bool) {
	account := middleware.AccountFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid project id")
		return nil, false
	}
	project, err := h.projects.GetByID(r.Context(), account.ID, domain.NewProjectID(id))
	if err != nil {
		h.log.Error().Err(err).Msg("project lookup failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return nil, false
	}
	if project == nil {
		writeDomainErr(w, domerrors.ErrProjectNotFound)
		return nil, false
	}
	return project, true
}
