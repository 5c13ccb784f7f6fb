package middleware

import (
	"context"

	"github.com/GwydionBr/life-manager-sub000/internal/domain"
)

type contextKey string

const accountContextKey contextKey = "account"

// WithAccount injects the account into the context.
func WithAccount(ctx context.Context, account *domain.Account) context.Context {
	return context.WithValue(ctx, accountContextKey, account)
}

// AccountFromContext returns the account from the context, or nil.
func AccountFromContext(ctx context.Context) *domain.Account {
	v := ctx.Value(accountContextKey)
	if v == nil {
		return nil
	}
	a, _ := v.(*domain.Account)
	return a
}
