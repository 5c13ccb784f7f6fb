package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecurrenceInterval is the calendar step of a recurring cashflow rule.
type RecurrenceInterval string

const (
	IntervalDay      RecurrenceInterval = "day"
	IntervalWeek     RecurrenceInterval = "week"
	IntervalMonth    RecurrenceInterval = "month"
	IntervalQuarter  RecurrenceInterval = "quarter"
	IntervalHalfYear RecurrenceInterval = "half_year"
	IntervalYear     RecurrenceInterval = "year"
)

// DeleteMode controls what happens to materialized instances when their
// recurring rule is deleted.
type DeleteMode string

const (
	DeleteKeepUnlinked DeleteMode = "keep_unlinked"
	DeleteAll          DeleteMode = "delete_all"
)

// RecurringCashFlow is a recurrence rule, not a concrete transaction.
// EndDate nil means open-ended.
type RecurringCashFlow struct {
	ID        uuid.UUID
	AccountID AccountID

	Amount   decimal.Decimal
	Currency string

	Interval  RecurrenceInterval
	StartDate time.Time
	EndDate   *time.Time

	Title       string
	Description string
	ContactID   *uuid.UUID
	TagIDs      []uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SingleCashFlow is one materialized transaction. RecurringCashFlowID is set
// when the row was produced by expanding a rule. ChangedDate marks a manually
// edited instance that the expander must never regenerate or remove.
type SingleCashFlow struct {
	ID        uuid.UUID
	AccountID AccountID

	Amount   decimal.Decimal
	Currency string
	Date     time.Time
	Title    string

	RecurringCashFlowID *uuid.UUID
	FinanceProjectID    *uuid.UUID
	PayoutID            *uuid.UUID
	ContactID           *uuid.UUID

	IsActive    bool
	ChangedDate *time.Time

	TagIDs []uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Frozen reports whether the instance was manually edited and is exempt from
// regeneration.
func (s *SingleCashFlow) Frozen() bool { return s.ChangedDate != nil }
