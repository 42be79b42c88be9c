package recurrence

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/teambition/rrule-go"

	"github.com/julianstephens/lifeplan/internal/constants"
	"github.com/julianstephens/lifeplan/internal/logicalday"
)

// Config is the typed payload of a recurrence rule, one variant per rule tag.
type Config interface {
	Type() constants.RuleType
	// due reports whether day is an occurrence, given the rule's anchor day.
	// day is never before anchor.
	due(day, anchor logicalday.Date) bool
}

// rangeExpander is implemented by configs that can enumerate a whole range more
// cheaply than asking day by day.
type rangeExpander interface {
	occurrences(start, end, anchor logicalday.Date) []logicalday.Date
}

// Daily is due every Interval-th day from the anchor (every day when Interval <= 1).
type Daily struct {
	Interval int `json:"interval,omitempty"`
}

func (Daily) Type() constants.RuleType { return constants.RuleDaily }

func (c Daily) due(day, anchor logicalday.Date) bool {
	if c.Interval <= 1 {
		return true
	}
	return logicalday.DaysBetween(anchor, day)%c.Interval == 0
}

// Weekly is due on the listed weekdays. An empty list means the anchor's weekday.
type Weekly struct {
	Weekdays []Weekday `json:"weekdays,omitempty"`
}

func (Weekly) Type() constants.RuleType { return constants.RuleWeekly }

func (c Weekly) due(day, anchor logicalday.Date) bool {
	if len(c.Weekdays) == 0 {
		return day.Weekday() == anchor.Weekday()
	}
	for _, wd := range c.Weekdays {
		if day.Weekday() == time.Weekday(wd) {
			return true
		}
	}
	return false
}

// Weekdays is due Monday through Friday.
type Weekdays struct{}

func (Weekdays) Type() constants.RuleType { return constants.RuleWeekdays }

func (Weekdays) due(day, _ logicalday.Date) bool {
	wd := day.Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// NDays is due every IntervalDays days counted from the anchor.
type NDays struct {
	IntervalDays int `json:"interval_days"`
}

func (NDays) Type() constants.RuleType { return constants.RuleNDays }

func (c NDays) due(day, anchor logicalday.Date) bool {
	return logicalday.DaysBetween(anchor, day)%c.IntervalDays == 0
}

// MonthlyDate is due on a fixed day of each month. Months without that day are skipped.
type MonthlyDate struct {
	MonthDay int `json:"month_day"`
}

func (MonthlyDate) Type() constants.RuleType { return constants.RuleMonthlyDate }

func (c MonthlyDate) due(day, _ logicalday.Date) bool {
	return day.Day == c.MonthDay
}

// MonthlyDay is due on the nth weekday of each month; Occurrence -1 means the last one.
type MonthlyDay struct {
	Weekday    Weekday `json:"weekday"`
	Occurrence int     `json:"occurrence"`
}

func (MonthlyDay) Type() constants.RuleType { return constants.RuleMonthlyDay }

func (c MonthlyDay) due(day, _ logicalday.Date) bool {
	if day.Weekday() != time.Weekday(c.Weekday) {
		return false
	}
	if c.Occurrence == -1 {
		return day.AddDays(7).Month != day.Month
	}
	return (day.Day-1)/7+1 == c.Occurrence
}

// Yearly is due on a fixed month and day. February 29 only occurs in leap years.
type Yearly struct {
	Month    time.Month `json:"month"`
	MonthDay int        `json:"month_day"`
}

func (Yearly) Type() constants.RuleType { return constants.RuleYearly }

func (c Yearly) due(day, _ logicalday.Date) bool {
	return day.Month == c.Month && day.Day == c.MonthDay
}

// RRule is an RFC 5545 recurrence rule evaluated on floating dates starting at the anchor.
type RRule struct {
	Expr string `json:"rrule"`

	option rrule.ROption
}

func (RRule) Type() constants.RuleType { return constants.RuleRRule }

func (c RRule) build(anchor logicalday.Date) (*rrule.RRule, error) {
	opt := c.option
	opt.Dtstart = anchor.Time()
	return rrule.NewRRule(opt)
}

func (c RRule) due(day, anchor logicalday.Date) bool {
	return len(c.occurrences(day, day, anchor)) > 0
}

func (c RRule) occurrences(start, end, anchor logicalday.Date) []logicalday.Date {
	r, err := c.build(anchor)
	if err != nil {
		return nil
	}
	times := r.Between(start.Time(), end.AddDays(1).Time().Add(-time.Second), true)
	return uniqueDates(times)
}

// Cron is a five-field cron expression; the rule is due on every day it fires at least once.
type Cron struct {
	Spec string `json:"spec"`

	schedule cron.Schedule
}

func (Cron) Type() constants.RuleType { return constants.RuleCron }

func (c Cron) due(day, anchor logicalday.Date) bool {
	return len(c.occurrences(day, day, anchor)) > 0
}

func (c Cron) occurrences(start, end, _ logicalday.Date) []logicalday.Date {
	var days []logicalday.Date
	limit := end.AddDays(1).Time()
	cursor := start.Time().Add(-time.Second)
	for {
		next := c.schedule.Next(cursor)
		if next.IsZero() || !next.Before(limit) {
			return days
		}
		day := logicalday.FromTime(next)
		days = append(days, day)
		// Skip the rest of the day so minute-level specs stay cheap.
		cursor = day.AddDays(1).Time().Add(-time.Second)
	}
}

// Unknown carries a rule whose tag this version does not understand, or whose payload
// could not be decoded. It is never due.
type Unknown struct {
	Tag constants.RuleType
	Raw json.RawMessage
	Err error
}

func (c Unknown) Type() constants.RuleType { return c.Tag }

func (Unknown) due(_, _ logicalday.Date) bool { return false }

var errEmptyConfig = errors.New("config is required")

// Decode turns a rule tag and its raw payload into a typed Config.
// Unrecognized tags decode to Unknown without error so newer rule types do not break
// older readers; malformed payloads of known tags return an error.
func Decode(tag constants.RuleType, raw json.RawMessage) (Config, error) {
	switch tag {
	case constants.RuleDaily:
		var c Daily
		if err := unmarshalOptional(raw, &c); err != nil {
			return nil, err
		}
		if c.Interval < 0 {
			return nil, fmt.Errorf("daily interval must not be negative, got %d", c.Interval)
		}
		return c, nil
	case constants.RuleWeekly:
		var c Weekly
		if err := unmarshalOptional(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	case constants.RuleWeekdays:
		return Weekdays{}, nil
	case constants.RuleNDays:
		var c NDays
		if err := unmarshalRequired(raw, &c); err != nil {
			return nil, err
		}
		if c.IntervalDays < 1 {
			return nil, fmt.Errorf("interval_days must be at least 1, got %d", c.IntervalDays)
		}
		return c, nil
	case constants.RuleMonthlyDate:
		var c MonthlyDate
		if err := unmarshalRequired(raw, &c); err != nil {
			return nil, err
		}
		if c.MonthDay < 1 || c.MonthDay > 31 {
			return nil, fmt.Errorf("month_day must be between 1 and 31, got %d", c.MonthDay)
		}
		return c, nil
	case constants.RuleMonthlyDay:
		var c MonthlyDay
		if err := unmarshalRequired(raw, &c); err != nil {
			return nil, err
		}
		if c.Occurrence != -1 && (c.Occurrence < 1 || c.Occurrence > 5) {
			return nil, fmt.Errorf("occurrence must be -1 or between 1 and 5, got %d", c.Occurrence)
		}
		return c, nil
	case constants.RuleYearly:
		var c Yearly
		if err := unmarshalRequired(raw, &c); err != nil {
			return nil, err
		}
		if c.Month < time.January || c.Month > time.December {
			return nil, fmt.Errorf("month must be between 1 and 12, got %d", c.Month)
		}
		// 2024 is a leap year, so Feb 29 is accepted here
		if c.MonthDay < 1 || logicalday.New(2024, c.Month, c.MonthDay).Month != c.Month {
			return nil, fmt.Errorf("month_day %d does not exist in %s", c.MonthDay, c.Month)
		}
		return c, nil
	case constants.RuleRRule:
		var c RRule
		if err := unmarshalRequired(raw, &c); err != nil {
			return nil, err
		}
		return compileRRule(c.Expr)
	case constants.RuleCron:
		var c Cron
		if err := unmarshalRequired(raw, &c); err != nil {
			return nil, err
		}
		return compileCron(c.Spec)
	default:
		return Unknown{Tag: tag, Raw: raw}, nil
	}
}

func compileRRule(expr string) (RRule, error) {
	expr = strings.TrimPrefix(strings.TrimSpace(expr), "RRULE:")
	if expr == "" {
		return RRule{}, fmt.Errorf("rrule: %w", errEmptyConfig)
	}
	opt, err := rrule.StrToROption(expr)
	if err != nil {
		return RRule{}, fmt.Errorf("invalid rrule %q: %w", expr, err)
	}
	if opt.Freq > rrule.DAILY {
		return RRule{}, fmt.Errorf("rrule %q: frequencies finer than DAILY are not supported", expr)
	}
	return RRule{Expr: expr, option: *opt}, nil
}

func compileCron(spec string) (Cron, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Cron{}, fmt.Errorf("cron: %w", errEmptyConfig)
	}
	if strings.HasPrefix(spec, "TZ=") || strings.HasPrefix(spec, "CRON_TZ=") {
		return Cron{}, fmt.Errorf("cron %q: timezone prefixes are not supported", spec)
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return Cron{}, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return Cron{Spec: spec, schedule: schedule}, nil
}

// Encode serializes a Config into the raw payload stored alongside the rule tag.
func Encode(c Config) (json.RawMessage, error) {
	switch v := c.(type) {
	case Unknown:
		return v.Raw, nil
	case Weekdays:
		return json.RawMessage(`{}`), nil
	default:
		return json.Marshal(v)
	}
}

func unmarshalOptional(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func unmarshalRequired(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return errEmptyConfig
	}
	return unmarshalOptional(raw, v)
}

func uniqueDates(times []time.Time) []logicalday.Date {
	var days []logicalday.Date
	for _, t := range times {
		d := logicalday.FromTime(t)
		if len(days) > 0 && days[len(days)-1] == d {
			continue
		}
		days = append(days, d)
	}
	return days
}
