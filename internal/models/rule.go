package models

import (
	"encoding/json"
	"time"

	"github.com/julianstephens/lifeplan/internal/constants"
)

// RecurrenceRule describes when its owning template is due.
// Config is an opaque payload whose shape depends on Type.
type RecurrenceRule struct {
	ID        string              `json:"id"`
	UserID    string              `json:"user_id"`
	OwnerKind constants.OwnerKind `json:"owner_kind"`
	OwnerID   string              `json:"owner_id"`
	Type      constants.RuleType  `json:"type"`
	Config    json.RawMessage     `json:"config,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	DeletedAt *time.Time          `json:"deleted_at,omitempty"`
	// ReplacedBy points at the rule that superseded this one after a cadence change
	ReplacedBy string `json:"replaced_by,omitempty"`
}

// Active reports whether the rule has not been soft-deleted
func (r RecurrenceRule) Active() bool {
	return r.DeletedAt == nil
}
