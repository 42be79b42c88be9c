package validation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/julianstephens/lifeplan/internal/constants"
	apperrors "github.com/julianstephens/lifeplan/internal/errors"
	"github.com/julianstephens/lifeplan/internal/logicalday"
	"github.com/julianstephens/lifeplan/internal/models"
	"github.com/julianstephens/lifeplan/internal/recurrence"
)

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictDuplicateName   ConflictType = "duplicate_name"
	ConflictInvalidTime     ConflictType = "invalid_time"
	ConflictInvalidRule     ConflictType = "invalid_rule"
	ConflictUnsupportedRule ConflictType = "unsupported_rule"
	ConflictOrphanedRule    ConflictType = "orphaned_rule"
	ConflictMissingRule     ConflictType = "missing_rule"
	ConflictInvalidTimezone ConflictType = "invalid_timezone"
	ConflictInvalidCurrency ConflictType = "invalid_currency"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Conflict represents a problem found in stored templates or rules
type Conflict struct {
	Type        ConflictType `json:"type"`
	Description string       `json:"description"`
	Items       []string     `json:"items,omitempty"` // Template names involved
	IDs         []string     `json:"ids,omitempty"`   // IDs of records involved
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict `json:"conflicts"`
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, conflict := range vr.Conflicts {
		fmt.Fprintf(&b, "- %s\n", conflict.Description)
	}
	return b.String()
}

func (vr *ValidationResult) add(c Conflict) {
	vr.Conflicts = append(vr.Conflicts, c)
}

// Validator checks a user's stored planner data for inconsistencies
type Validator struct{}

// New creates a new Validator
func New() *Validator {
	return &Validator{}
}

// Validate checks the profile, templates and rules together. Deleted records are ignored.
func (v *Validator) Validate(profile models.Profile, habits []models.Habit, txns []models.RecurringTransaction, rules []models.RecurrenceRule) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	if err := Timezone(profile.Timezone); err != nil {
		result.add(Conflict{
			Type:        ConflictInvalidTimezone,
			Description: fmt.Sprintf("Profile timezone %q is not a known IANA zone; UTC is used instead", profile.Timezone),
		})
	}

	owners := make(map[string]string)
	nameIDs := make(map[string][]string)
	for _, h := range habits {
		if h.DeletedAt != nil {
			continue
		}
		owners[h.ID] = h.Name
		if h.Name != "" {
			nameIDs[h.Name] = append(nameIDs[h.Name], h.ID)
		}
		if err := LocalTime(h.LocalTime); err != nil {
			result.add(Conflict{
				Type:        ConflictInvalidTime,
				Description: fmt.Sprintf("Habit %q has invalid local time: %s", h.Name, h.LocalTime),
				Items:       []string{h.Name},
				IDs:         []string{h.ID},
			})
		}
	}

	names := make([]string, 0, len(nameIDs))
	for name := range nameIDs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if ids := nameIDs[name]; len(ids) > 1 {
			result.add(Conflict{
				Type:        ConflictDuplicateName,
				Description: fmt.Sprintf("Duplicate habit name: %q (IDs: %v)", name, ids),
				Items:       []string{name},
				IDs:         ids,
			})
		}
	}

	for _, t := range txns {
		if t.DeletedAt != nil {
			continue
		}
		owners[t.ID] = t.Name
		if _, err := Currency(t.Currency); err != nil {
			result.add(Conflict{
				Type:        ConflictInvalidCurrency,
				Description: fmt.Sprintf("Transaction %q has invalid currency: %q", t.Name, t.Currency),
				Items:       []string{t.Name},
				IDs:         []string{t.ID},
			})
		}
	}

	ruled := make(map[string]bool)
	for _, r := range rules {
		if r.DeletedAt != nil {
			continue
		}
		name, ok := owners[r.OwnerID]
		if !ok {
			result.add(Conflict{
				Type:        ConflictOrphanedRule,
				Description: fmt.Sprintf("Rule %s belongs to missing %s %s", r.ID, r.OwnerKind, r.OwnerID),
				IDs:         []string{r.ID},
			})
			continue
		}
		ruled[r.OwnerID] = true

		cfg, err := recurrence.Decode(r.Type, r.Config)
		switch {
		case err != nil:
			result.add(Conflict{
				Type:        ConflictInvalidRule,
				Description: fmt.Sprintf("Rule %s for %q has a malformed %s config: %v", r.ID, name, r.Type, err),
				Items:       []string{name},
				IDs:         []string{r.ID},
			})
		case isUnknown(cfg):
			result.add(Conflict{
				Type:        ConflictUnsupportedRule,
				Description: fmt.Sprintf("Rule %s for %q has unsupported type %q and will never be due", r.ID, name, r.Type),
				Items:       []string{name},
				IDs:         []string{r.ID},
			})
		}
	}

	ids := make([]string, 0, len(owners))
	for id := range owners {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if !ruled[id] {
			result.add(Conflict{
				Type:        ConflictMissingRule,
				Description: fmt.Sprintf("%q has no active recurrence rule", owners[id]),
				Items:       []string{owners[id]},
				IDs:         []string{id},
			})
		}
	}

	return result
}

func isUnknown(c recurrence.Config) bool {
	_, ok := c.(recurrence.Unknown)
	return ok
}

// Name rejects blank template names
func Name(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", apperrors.ErrInvalidInput)
	}
	return nil
}

// LocalTime accepts an empty string or a valid HH:MM clock time
func LocalTime(s string) error {
	if s == "" {
		return nil
	}
	_, _, err := logicalday.ParseClock(s)
	return err
}

// Currency upper-cases and checks a three-letter currency code
func Currency(s string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	if !currencyPattern.MatchString(code) {
		return "", fmt.Errorf("%w: currency %q must be a three-letter code", apperrors.ErrInvalidInput, s)
	}
	return code, nil
}

// Rule decodes a configuration for a new rule. Evaluation tolerates unknown tags;
// creation does not.
func Rule(tag constants.RuleType, raw json.RawMessage) (recurrence.Config, error) {
	cfg, err := recurrence.Decode(tag, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidRule, err)
	}
	if isUnknown(cfg) {
		return nil, fmt.Errorf("%w: unsupported type %q", apperrors.ErrInvalidRule, tag)
	}
	return cfg, nil
}

// Timezone accepts an empty string or a loadable IANA zone name
func Timezone(tz string) error {
	if !logicalday.ValidTimezone(tz) {
		return fmt.Errorf("%w: unknown timezone %q", apperrors.ErrInvalidInput, tz)
	}
	return nil
}

// WeekStart accepts an empty string, "monday" or "sunday"
func WeekStart(s string) error {
	switch strings.ToLower(s) {
	case "", constants.WeekStartMonday, constants.WeekStartSunday:
		return nil
	}
	return fmt.Errorf("%w: week start must be %q or %q", apperrors.ErrInvalidInput, constants.WeekStartMonday, constants.WeekStartSunday)
}
