package constants

import "time"

// RuleType is the tag of a recurrence rule's configuration payload
type RuleType string

// InstanceStatus represents the lifecycle status of a materialized instance
type InstanceStatus string

// OwnerKind identifies which template owns a recurrence rule
type OwnerKind string

const (
	AppName            = "lifeplan"
	DefaultKeyringUser = "database-connection"
	JWTSecretKeyring   = "jwt-secret"
	DefaultConfigPath  = "~/.config/lifeplan/config.yaml"
	DefaultDBPath      = "~/.config/lifeplan/lifeplan.db"
	Version            = "v0.1.0"

	// Materializer constants
	DefaultMaxRangeDays = 366
	DefaultHorizonDays  = 30

	// HTTP constants
	DefaultHTTPAddress  = "127.0.0.1:8080"
	DefaultJWTIssuer    = "lifeplan"
	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultIdleTimeout  = 60 * time.Second
	RequestTimeout      = 30 * time.Second

	// Instance Status constants
	StatusPending InstanceStatus = "pending"
	StatusDone    InstanceStatus = "done"
	StatusSkipped InstanceStatus = "skipped"
	// StatusCompleted is accepted on input and normalized to StatusDone
	StatusCompleted InstanceStatus = "completed"

	// Owner Kind constants
	OwnerHabit       OwnerKind = "habit"
	OwnerTransaction OwnerKind = "transaction"

	// Rule Type constants
	RuleDaily       RuleType = "daily"
	RuleWeekly      RuleType = "weekly"
	RuleWeekdays    RuleType = "weekdays"
	RuleNDays       RuleType = "n_days"
	RuleMonthlyDate RuleType = "monthly_date"
	RuleMonthlyDay  RuleType = "monthly_day"
	RuleYearly      RuleType = "yearly"
	RuleRRule       RuleType = "rrule"
	RuleCron        RuleType = "cron"
)

// NormalizeStatus maps input aliases onto canonical statuses.
// The second return value is false for unrecognized statuses.
func NormalizeStatus(s string) (InstanceStatus, bool) {
	switch InstanceStatus(s) {
	case StatusPending:
		return StatusPending, true
	case StatusDone, StatusCompleted:
		return StatusDone, true
	case StatusSkipped:
		return StatusSkipped, true
	default:
		return "", false
	}
}
