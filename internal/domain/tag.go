package domain

import (
	"time"

	"github.com/google/uuid"
)

// TagEntityKind names the join table a tag edge belongs to.
type TagEntityKind string

const (
	TagEntitySingleCashFlow    TagEntityKind = "single_cash_flow"
	TagEntityRecurringCashFlow TagEntityKind = "recurring_cash_flow"
)

// Tag is a user-defined label.
type Tag struct {
	ID        uuid.UUID
	AccountID AccountID
	Name      string
	ColorHex  string
	CreatedAt time.Time
}

// TagAssociation is one many-to-many edge between an entity row and a tag.
// Edges are only ever inserted and deleted as whole rows, never updated.
type TagAssociation struct {
	EntityID  uuid.UUID
	TagID     uuid.UUID
	AccountID AccountID
}
