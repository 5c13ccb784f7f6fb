package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/GwydionBr/life-manager-sub000/internal/application/ports"
	domerrors "github.com/GwydionBr/life-manager-sub000/internal/domain/errors"
)

// HashAPIKeyFunc hashes an API key for storage/lookup (SHA256).
type HashAPIKeyFunc func(string) string

// SHA256HashAPIKey returns a function that SHA256-hashes the key (hex).
func SHA256HashAPIKey() HashAPIKeyFunc {
	return func(key string) string {
		h := sha256.Sum256([]byte(key))
		return hex.EncodeToString(h[:])
	}
}

// AccountResolver validates the API key (X-API-Key or Authorization: Bearer
// <key>) and sets the owning account in context.
type AccountResolver struct {
	accounts   ports.AccountRepository
	hashAPIKey HashAPIKeyFunc
}

func NewAccountResolver(accounts ports.AccountRepository, hashAPIKey HashAPIKeyFunc) *AccountResolver {
	return &AccountResolver{accounts: accounts, hashAPIKey: hashAPIKey}
}

func (m *AccountResolver) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if key == "" {
			if auth := r.Header.Get("Authorization"); len(auth) >= 7 && auth[:7] == "Bearer " {
				key = auth[7:]
			}
		}
		if key == "" {
			writeErrAccount(w, http.StatusUnauthorized, "unauthorized", "missing API key")
			return
		}
		hash := m.hashAPIKey(key)
		account, err := m.accounts.GetByAPIKeyHash(r.Context(), hash)
		if err != nil {
			writeErrAccount(w, http.StatusInternalServerError, "internal_error", "internal error")
			return
		}
		if account == nil {
			writeErrAccount(w, http.StatusUnauthorized, "unauthorized", domerrors.ErrAccountNotFound.Error())
			return
		}
		ctx := WithAccount(r.Context(), account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeErrAccount(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "code": errCode})
}
