package handlers

import (
	"encoding/json"
	"errors"
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

const cashflowDateLayout = "2006-01-02"

// FinanceHandler handles /recurring/* and /cashflows/*.
type FinanceHandler struct {
	rules    ports.RecurringCashFlowRepository
	flows    ports.SingleCashFlowRepository
	enqueuer ports.TaskEnqueuer
	validate *validator.Validate
	log      zerolog.Logger
}

func NewFinanceHandler(rules ports.RecurringCashFlowRepository, flows ports.SingleCashFlowRepository, enqueuer ports.TaskEnqueuer, log zerolog.Logger) *FinanceHandler {
	return &FinanceHandler{
		rules:    rules,
		flows:    flows,
		enqueuer: enqueuer,
		validate: validator.New(),
		log:      log,
	}
}

type recurringDTO struct {
	ID          string   `json:"id"`
	Amount      string   `json:"amount"`
	Currency    string   `json:"currency"`
	Interval    string   `json:"interval"`
	StartDate   string   `json:"start_date"`
	EndDate     *string  `json:"end_date,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	ContactID   *string  `json:"contact_id,omitempty"`
	TagIDs      []string `json:"tag_ids"`
}

func recurringToDTO(rule *domain.RecurringCashFlow) recurringDTO {
	dto := recurringDTO{
		ID:          rule.ID.String(),
		Amount:      rule.Amount.String(),
		Currency:    rule.Currency,
		Interval:    string(rule.Interval),
		StartDate:   rule.StartDate.Format(cashflowDateLayout),
		Title:       rule.Title,
		Description: rule.Description,
		TagIDs:      uuidStrings(rule.TagIDs),
	}
	if rule.EndDate != nil {
		s := rule.EndDate.Format(cashflowDateLayout)
		dto.EndDate = &s
	}
	if rule.ContactID != nil {
		s := rule.ContactID.String()
		dto.ContactID = &s
	}
	return dto
}

type cashflowDTO struct {
	ID                  string   `json:"id"`
	Amount              string   `json:"amount"`
	Currency            string   `json:"currency"`
	Date                string   `json:"date"`
	Title               string   `json:"title"`
	RecurringCashFlowID *string  `json:"recurring_cash_flow_id,omitempty"`
	IsActive            bool     `json:"is_active"`
	Frozen              bool     `json:"frozen"`
	TagIDs              []string `json:"tag_ids"`
}

func cashflowToDTO(flow *domain.SingleCashFlow) cashflowDTO {
	dto := cashflowDTO{
		ID:       flow.ID.String(),
		Amount:   flow.Amount.String(),
		Currency: flow.Currency,
		Date:     flow.Date.Format(cashflowDateLayout),
		Title:    flow.Title,
		IsActive: flow.IsActive,
		Frozen:   flow.Frozen(),
		TagIDs:   uuidStrings(flow.TagIDs),
	}
	if flow.RecurringCashFlowID != nil {
		s := flow.RecurringCashFlowID.String()
		dto.RecurringCashFlowID = &s
	}
	return dto
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// CreateRecurring handles POST /recurring.
func (h *FinanceHandler) CreateRecurring(w http.ResponseWriter, r *http.Request) {
	account := middleware.AccountFromContext(r.Context())
	var body struct {
		Amount      string   `json:"amount" validate:"required"`
		Currency    string   `json:"currency" validate:"required,len=3"`
		Interval    string   `json:"interval" validate:"required,oneof=day week month quarter half_year year"`
		StartDate   string   `json:"start_date" validate:"required"`
		EndDate     *string  `json:"end_date"`
		Title       string   `json:"title" validate:"required,max=255"`
		Description string   `json:"description" validate:"max=2048"`
		ContactID   *string  `json:"contact_id"`
		TagIDs      []string `json:"tag_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "", err.Error())
		return
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid amount")
		return
	}
	startDate, err := time.Parse(cashflowDateLayout, body.StartDate)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid start_date")
		return
	}
	var endDate *time.Time
	if body.EndDate != nil {
		t, err := time.Parse(cashflowDateLayout, *body.EndDate)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "", "invalid end_date")
			return
		}
		if t.Before(startDate) {
			writeErr(w, http.StatusBadRequest, "", "end_date before start_date")
			return
		}
		endDate = &t
	}
	var contactID *uuid.UUID
	if body.ContactID != nil {
		id, err := uuid.Parse(*body.ContactID)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "", "invalid contact_id")
			return
		}
		contactID = &id
	}
	tagIDs, err := parseUUIDs(body.TagIDs)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid tag_ids")
		return
	}
	now := time.Now()
	rule := &domain.RecurringCashFlow{
		ID:          uuid.New(),
		AccountID:   account.ID,
		Amount:      amount,
		Currency:    body.Currency,
		Interval:    domain.RecurrenceInterval(body.Interval),
		StartDate:   startDate,
		EndDate:     endDate,
		Title:       body.Title,
		Description: body.Description,
		ContactID:   contactID,
		TagIDs:      tagIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.rules.Create(r.Context(), rule); err != nil {
		h.log.Error().Err(err).Msg("create recurring failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	// Materialize instances that are already due.
	if err := h.enqueuer.EnqueueExpandRecurring(r.Context()); err != nil {
		h.log.Warn().Err(err).Msg("enqueue expansion after create")
	}
	writeJSON(w, http.StatusCreated, recurringToDTO(rule))
}

// ListRecurring handles GET /recurring.
func (h *FinanceHandler) ListRecurring(w http.ResponseWriter, r *http.Request) {
	account := middleware.AccountFromContext(r.Context())
	rules, err := h.rules.List(r.Context(), account.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("list recurring failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	out := make([]recurringDTO, 0, len(rules))
	for _, rule := range rules {
		out = append(out, recurringToDTO(rule))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"recurring": out})
}

// GetRecurring handles GET /recurring/:id.
func (h *FinanceHandler) GetRecurring(w http.ResponseWriter, r *http.Request) {
	account := middleware.AccountFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid recurring id")
		return
	}
	rule, err := h.rules.GetByID(r.Context(), account.ID, id)
	if err != nil {
		h.log.Error().Err(err).Msg("get recurring failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	if rule == nil {
		writeDomainErr(w, domerrors.ErrRecurringNotFound)
		return
	}
	writeJSON(w, http.StatusOK, recurringToDTO(rule))
}

// DeleteRecurring handles DELETE /recurring/:id?mode=keep_unlinked|delete_all.
// Default mode keeps existing instances, unlinked.
func (h *FinanceHandler) DeleteRecurring(w http.ResponseWriter, r *http.Request) {
	account := middleware.AccountFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid recurring id")
		return
	}
	mode := domain.DeleteKeepUnlinked
	switch r.URL.Query().Get("mode") {
	case "", string(domain.DeleteKeepUnlinked):
	case string(domain.DeleteAll):
		mode = domain.DeleteAll
	default:
		writeErr(w, http.StatusBadRequest, "", "invalid mode")
		return
	}
	if err := h.rules.Delete(r.Context(), account.ID, id, mode); err != nil {
		if errors.Is(err, domerrors.ErrRecurringNotFound) {
			writeDomainErr(w, err)
			return
		}
		h.log.Error().Err(err).Msg("delete recurring failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Expand handles POST /recurring/expand, a manual materialization trigger.
func (h *FinanceHandler) Expand(w http.ResponseWriter, r *http.Request) {
	if err := h.enqueuer.EnqueueExpandRecurring(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("enqueue expansion failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

// ListCashflows handles GET /cashflows.
func (h *FinanceHandler) ListCashflows(w http.ResponseWriter, r *http.Request) {
	account := middleware.AccountFromContext(r.Context())
	flows, err := h.flows.List(r.Context(), account.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("list cashflows failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	out := make([]cashflowDTO, 0, len(flows))
	for _, flow := range flows {
		out = append(out, cashflowToDTO(flow))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cashflows": out})
}

// GetCashflow handles GET /cashflows/:id.
func (h *FinanceHandler) GetCashflow(w http.ResponseWriter, r *http.Request) {
	account := middleware.AccountFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid cashflow id")
		return
	}
	flow, err := h.flows.GetByID(r.Context(), account.ID, id)
	if err != nil {
		h.log.Error().Err(err).Msg("get cashflow failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	if flow == nil {
		writeErr(w, http.StatusNotFound, ErrCodeNotFound, "cashflow not found")
		return
	}
	writeJSON(w, http.StatusOK, cashflowToDTO(flow))
}

// SyncRecurringTags handles PUT /recurring/:id/tags. Body: { "tag_ids": [...] }.
func (h *FinanceHandler) SyncRecurringTags(w http.ResponseWriter, r *http.Request) {
	h.syncTags(w, r, domain.TagEntityRecurringCashFlow, func(req *http.Request, account *domain.Account, id uuid.UUID) (bool, error) {
		rule, err := h.rules.GetByID(req.Context(), account.ID, id)
		return rule != nil, err
	})
}

// SyncCashflowTags handles PUT /cashflows/:id/tags. Body: { "tag_ids": [...] }.
func (h *FinanceHandler) SyncCashflowTags(w http.ResponseWriter, r *http.Request) {
	h.syncTags(w, r, domain.TagEntitySingleCashFlow, func(req *http.Request, account *domain.Account, id uuid.UUID) (bool, error) {
		flow, err := h.flows.GetByID(req.Context(), account.ID, id)
		return flow != nil, err
	})
}

func (h *FinanceHandler) syncTags(w http.ResponseWriter, r *http.Request, kind domain.TagEntityKind, exists func(*http.Request, *domain.Account, uuid.UUID) (bool, error)) {
	account := middleware.AccountFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid id")
		return
	}
	var body struct {
		TagIDs []string `json:"tag_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid body")
		return
	}
	tagIDs, err := parseUUIDs(body.TagIDs)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid tag_ids")
		return
	}
	found, err := exists(r, account, id)
	if err != nil {
		h.log.Error().Err(err).Msg("tag sync entity lookup failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	if !found {
		writeErr(w, http.StatusNotFound, ErrCodeNotFound, "entity not found")
		return
	}
	if err := h.enqueuer.EnqueueSyncTags(r.Context(), kind, []uuid.UUID{id}, tagIDs, account.ID); err != nil {
		h.log.Error().Err(err).Msg("enqueue tag sync failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}
