package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProjectID is a value object for work-project identity.
type ProjectID struct{ uuid.UUID }

// NewProjectID creates a new ProjectID from uuid.
func NewProjectID(id uuid.UUID) ProjectID { return ProjectID{UUID: id} }

// String returns the canonical string form.
func (p ProjectID) String() string { return p.UUID.String() }

// Project is a billable work project. At most one timer may exist per
// project at any time.
type Project struct {
	ID        ProjectID
	AccountID AccountID
	Name      string

	HourlyRate decimal.Decimal
	Currency   string

	// Rounding overrides the account defaults when set.
	Rounding *RoundingSettings

	CreatedAt time.Time
	UpdatedAt time.Time
}
