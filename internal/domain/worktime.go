package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WorkTimeEntry is one finalized unit of tracked work, written when a timer
// is submitted or via manual entry. Identity is immutable once created.
type WorkTimeEntry struct {
	ID        uuid.UUID
	AccountID AccountID
	ProjectID ProjectID

	ActiveSeconds int64
	PausedSeconds int64

	// StartTime/EndTime carry the delta-adjusted effective instants.
	// TrueEndTime records the unadjusted wall-clock stop instant.
	StartTime   time.Time
	EndTime     time.Time
	TrueEndTime time.Time

	Memo string

	// Salary is the earned amount for the rounded active time, computed with
	// the hourly payment in effect at submit time.
	Salary        decimal.Decimal
	Currency      string
	HourlyPayment decimal.Decimal

	// FragmentInterval is the rounding-fragment interval (minutes) used, zero
	// when whole-interval rounding applied.
	FragmentInterval int

	CreatedAt time.Time
}
