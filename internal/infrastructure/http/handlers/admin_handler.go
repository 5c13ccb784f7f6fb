package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/GwydionBr/life-manager-sub000/internal/application/ports"
	"github.com/GwydionBr/life-manager-sub000/internal/domain"
	"github.com/GwydionBr/life-manager-sub000/internal/infrastructure/http/middleware"
)

// AdminHandler handles /admin/* (create account). Requires the admin secret
// header, enforced by the router.
type AdminHandler struct {
	accounts   ports.AccountRepository
	hashAPIKey middleware.HashAPIKeyFunc
	validate   *validator.Validate
	log        zerolog.Logger
}

func NewAdminHandler(accounts ports.AccountRepository, hashAPIKey middleware.HashAPIKeyFunc, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		accounts:   accounts,
		hashAPIKey: hashAPIKey,
		validate:   validator.New(),
		log:        log,
	}
}

// CreateAccount handles POST /admin/accounts. Body: { "name": "...",
// "rounding": {...} } (rounding optional). Returns the generated API key
// once; only its hash is stored.
func (h *AdminHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string       `json:"name" validate:"required,max=255"`
		Rounding *roundingDTO `json:"rounding"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "", err.Error())
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		writeErr(w, http.StatusBadRequest, "", "name is required")
		return
	}
	apiKey, err := generateAPIKey()
	if err != nil {
		h.log.Error().Err(err).Msg("generate api key failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	now := time.Now()
	account := &domain.Account{
		ID:         domain.NewAccountID(uuid.New()),
		Name:       name,
		APIKeyHash: h.hashAPIKey(apiKey),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if s := body.Rounding; s != nil {
		account.Rounding = &domain.RoundingSettings{
			Interval:         s.Interval,
			Direction:        domain.RoundingDirection(s.Direction),
			InFragments:      s.InFragments,
			FragmentInterval: s.FragmentInterval,
		}
	}
	if err := h.accounts.Create(r.Context(), account); err != nil {
		h.log.Error().Err(err).Msg("create account failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":      account.ID.String(),
		"name":    account.Name,
		"api_key": apiKey,
	})
}

func generateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "lm_" + hex.EncodeToString(buf), nil
}
