package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/julianstephens/lifeplan/internal/constants"
	"github.com/julianstephens/lifeplan/internal/logicalday"
)

// Instance is a concrete dated occurrence of a rule.
// (UserID, RuleID, Day) is unique.
type Instance struct {
	ID        string                   `json:"id"`
	UserID    string                   `json:"user_id"`
	RuleID    string                   `json:"rule_id"`
	OwnerKind constants.OwnerKind      `json:"owner_kind"`
	OwnerID   string                   `json:"owner_id"`
	Day       logicalday.Date          `json:"day"`
	Status    constants.InstanceStatus `json:"status"`
	Amount    decimal.Decimal          `json:"amount"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// InstanceKey identifies an instance for idempotent materialization
type InstanceKey struct {
	RuleID string
	Day    logicalday.Date
}

// Key returns the idempotency key of the instance within its user's scope
func (i Instance) Key() InstanceKey {
	return InstanceKey{RuleID: i.RuleID, Day: i.Day}
}
