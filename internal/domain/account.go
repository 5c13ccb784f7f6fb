package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountID is a value object for account identity.
type AccountID struct{ uuid.UUID }

// NewAccountID creates a new AccountID from uuid.
func NewAccountID(id uuid.UUID) AccountID { return AccountID{UUID: id} }

// String returns the canonical string form.
func (a AccountID) String() string { return a.UUID.String() }

// Account is one user of the life manager. All timers, projects, cashflows
// and tags are scoped to an account, resolved from the API key on each
// request.
type Account struct {
	ID         AccountID
	Name       string
	APIKeyHash string

	// Rounding holds the account-wide default rounding settings, used when a
	// project does not override them.
	Rounding *RoundingSettings

	CreatedAt time.Time
	UpdatedAt time.Time
}
