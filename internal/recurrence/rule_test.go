package recurrence

import (
	"encoding/json"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/julianstephens/lifeplan/internal/constants"
	"github.com/julianstephens/lifeplan/internal/logicalday"
	"github.com/julianstephens/lifeplan/internal/models"
)

var jan1 = logicalday.MustParse("2024-01-01") // Monday

func mustRule(t *testing.T, tag constants.RuleType, config string, anchor logicalday.Date) Rule {
	t.Helper()
	var raw json.RawMessage
	if config != "" {
		raw = json.RawMessage(config)
	}
	cfg, err := Decode(tag, raw)
	if err != nil {
		t.Fatalf("Decode(%s, %s) failed: %v", tag, config, err)
	}
	return Rule{ID: "r1", Type: tag, Config: cfg, Anchor: anchor}
}

func formatDays(days []logicalday.Date) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.String()
	}
	return out
}

func assertDays(t *testing.T, got []logicalday.Date, want ...string) {
	t.Helper()
	gotStr := formatDays(got)
	if len(gotStr) != len(want) {
		t.Fatalf("expected %v, got %v", want, gotStr)
	}
	for i := range want {
		if gotStr[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, gotStr)
		}
	}
}

func TestOccurrences(t *testing.T) {
	tests := []struct {
		name   string
		tag    constants.RuleType
		config string
		anchor string
		start  string
		end    string
		want   []string
	}{
		{
			name:   "daily every day",
			tag:    constants.RuleDaily,
			anchor: "2023-12-01",
			start:  "2024-01-01",
			end:    "2024-01-03",
			want:   []string{"2024-01-01", "2024-01-02", "2024-01-03"},
		},
		{
			name:   "daily interval counts from anchor",
			tag:    constants.RuleDaily,
			config: `{"interval":3}`,
			anchor: "2024-01-01",
			start:  "2024-01-01",
			end:    "2024-01-10",
			want:   []string{"2024-01-01", "2024-01-04", "2024-01-07", "2024-01-10"},
		},
		{
			name:   "weekly mondays",
			tag:    constants.RuleWeekly,
			config: `{"weekdays":[1]}`,
			anchor: "2023-12-01",
			start:  "2024-01-01",
			end:    "2024-01-14",
			want:   []string{"2024-01-01", "2024-01-08"},
		},
		{
			name:   "weekly by name",
			tag:    constants.RuleWeekly,
			config: `{"weekdays":["mon","fri"]}`,
			anchor: "2023-12-01",
			start:  "2024-01-01",
			end:    "2024-01-07",
			want:   []string{"2024-01-01", "2024-01-05"},
		},
		{
			name:   "weekly without weekdays uses anchor weekday",
			tag:    constants.RuleWeekly,
			anchor: "2024-01-03",
			start:  "2024-01-01",
			end:    "2024-01-14",
			want:   []string{"2024-01-03", "2024-01-10"},
		},
		{
			name:   "weekdays",
			tag:    constants.RuleWeekdays,
			anchor: "2023-12-01",
			start:  "2024-01-05",
			end:    "2024-01-09",
			want:   []string{"2024-01-05", "2024-01-08", "2024-01-09"},
		},
		{
			name:   "n days",
			tag:    constants.RuleNDays,
			config: `{"interval_days":5}`,
			anchor: "2024-01-01",
			start:  "2024-01-01",
			end:    "2024-01-12",
			want:   []string{"2024-01-01", "2024-01-06", "2024-01-11"},
		},
		{
			name:   "monthly date skips short months",
			tag:    constants.RuleMonthlyDate,
			config: `{"month_day":31}`,
			anchor: "2024-01-01",
			start:  "2024-01-01",
			end:    "2024-06-30",
			want:   []string{"2024-01-31", "2024-03-31", "2024-05-31"},
		},
		{
			name:   "second tuesday",
			tag:    constants.RuleMonthlyDay,
			config: `{"weekday":2,"occurrence":2}`,
			anchor: "2024-01-01",
			start:  "2024-01-01",
			end:    "2024-02-29",
			want:   []string{"2024-01-09", "2024-02-13"},
		},
		{
			name:   "last friday",
			tag:    constants.RuleMonthlyDay,
			config: `{"weekday":"friday","occurrence":-1}`,
			anchor: "2026-01-01",
			start:  "2026-01-01",
			end:    "2026-02-28",
			want:   []string{"2026-01-30", "2026-02-27"},
		},
		{
			name:   "yearly leap day",
			tag:    constants.RuleYearly,
			config: `{"month":2,"month_day":29}`,
			anchor: "2024-01-01",
			start:  "2024-01-01",
			end:    "2026-12-31",
			want:   []string{"2024-02-29"},
		},
		{
			name:   "rrule weekly",
			tag:    constants.RuleRRule,
			config: `{"rrule":"FREQ=WEEKLY;BYDAY=MO,WE"}`,
			anchor: "2024-01-01",
			start:  "2024-01-01",
			end:    "2024-01-14",
			want:   []string{"2024-01-01", "2024-01-03", "2024-01-08", "2024-01-10"},
		},
		{
			name:   "rrule last day of month",
			tag:    constants.RuleRRule,
			config: `{"rrule":"RRULE:FREQ=MONTHLY;BYMONTHDAY=-1"}`,
			anchor: "2024-01-01",
			start:  "2024-01-01",
			end:    "2024-04-30",
			want:   []string{"2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30"},
		},
		{
			name:   "cron weekday mornings",
			tag:    constants.RuleCron,
			config: `{"spec":"0 9 * * 1-5"}`,
			anchor: "2023-12-01",
			start:  "2024-01-01",
			end:    "2024-01-07",
			want:   []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"},
		},
		{
			name:   "cron every minute collapses to one per day",
			tag:    constants.RuleCron,
			config: `{"spec":"* * * * *"}`,
			anchor: "2023-12-01",
			start:  "2024-01-01",
			end:    "2024-01-02",
			want:   []string{"2024-01-01", "2024-01-02"},
		},
		{
			name:   "nothing before anchor",
			tag:    constants.RuleDaily,
			anchor: "2024-01-05",
			start:  "2024-01-01",
			end:    "2024-01-07",
			want:   []string{"2024-01-05", "2024-01-06", "2024-01-07"},
		},
		{
			name:   "range entirely before anchor",
			tag:    constants.RuleDaily,
			anchor: "2024-02-01",
			start:  "2024-01-01",
			end:    "2024-01-07",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mustRule(t, tt.tag, tt.config, logicalday.MustParse(tt.anchor))
			got := Occurrences(r, logicalday.MustParse(tt.start), logicalday.MustParse(tt.end))
			assertDays(t, got, tt.want...)
		})
	}
}

func TestOccurrencesMatchesIsDue(t *testing.T) {
	configs := []struct {
		tag    constants.RuleType
		config string
	}{
		{constants.RuleDaily, `{"interval":2}`},
		{constants.RuleWeekly, `{"weekdays":[0,3]}`},
		{constants.RuleWeekdays, ""},
		{constants.RuleNDays, `{"interval_days":4}`},
		{constants.RuleMonthlyDate, `{"month_day":30}`},
		{constants.RuleMonthlyDay, `{"weekday":4,"occurrence":-1}`},
		{constants.RuleYearly, `{"month":3,"month_day":1}`},
		{constants.RuleRRule, `{"rrule":"FREQ=DAILY;INTERVAL=3"}`},
		{constants.RuleCron, `{"spec":"30 6 1,15 * *"}`},
	}

	start := logicalday.MustParse("2024-01-10")
	end := logicalday.MustParse("2024-06-30")
	for _, c := range configs {
		t.Run(string(c.tag), func(t *testing.T) {
			r := mustRule(t, c.tag, c.config, jan1)
			var want []logicalday.Date
			for _, d := range logicalday.Days(start, end) {
				if IsDue(r, d) {
					want = append(want, d)
				}
			}
			assertDays(t, Occurrences(r, start, end), formatDays(want)...)
		})
	}
}

func TestUnknownRuleIsNeverDue(t *testing.T) {
	m := models.RecurrenceRule{
		ID:        "lunar",
		Type:      constants.RuleType("lunar_phase"),
		Config:    json.RawMessage(`{"phase":"full"}`),
		CreatedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	r := FromModel(m, "UTC")
	if !r.IsUnknown() {
		t.Fatalf("expected rule to be unknown, got %T", r.Config)
	}
	if IsDue(r, jan1) {
		t.Error("unknown rule should never be due")
	}
	if got := Occurrences(r, jan1, jan1.AddDays(365)); len(got) != 0 {
		t.Errorf("expected no occurrences, got %v", formatDays(got))
	}
}

func TestMalformedConfigIsNeverDue(t *testing.T) {
	tests := []struct {
		name   string
		tag    constants.RuleType
		config string
	}{
		{"month day out of range", constants.RuleMonthlyDate, `{"month_day":40}`},
		{"missing payload", constants.RuleNDays, ``},
		{"zero interval", constants.RuleNDays, `{"interval_days":0}`},
		{"bad occurrence", constants.RuleMonthlyDay, `{"weekday":1,"occurrence":0}`},
		{"impossible date", constants.RuleYearly, `{"month":2,"month_day":30}`},
		{"bad weekday", constants.RuleWeekly, `{"weekdays":["someday"]}`},
		{"not json", constants.RuleDaily, `{"interval":`},
		{"sub-daily rrule", constants.RuleRRule, `{"rrule":"FREQ=HOURLY"}`},
		{"garbage rrule", constants.RuleRRule, `{"rrule":"FREQ=SOMETIMES"}`},
		{"bad cron", constants.RuleCron, `{"spec":"every tuesday"}`},
		{"cron timezone", constants.RuleCron, `{"spec":"CRON_TZ=Asia/Tokyo 0 9 * * *"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw json.RawMessage
			if tt.config != "" {
				raw = json.RawMessage(tt.config)
			}
			if _, err := Decode(tt.tag, raw); err == nil {
				t.Fatal("expected decode error")
			}

			r := FromModel(models.RecurrenceRule{ID: "bad", Type: tt.tag, Config: raw}, "UTC")
			u, ok := r.Config.(Unknown)
			if !ok {
				t.Fatalf("expected Unknown config, got %T", r.Config)
			}
			if u.Err == nil {
				t.Error("expected Unknown to carry the decode error")
			}
			if IsDue(r, jan1) {
				t.Error("malformed rule should never be due")
			}
		})
	}
}

func TestFromModelAnchorsInTimezone(t *testing.T) {
	// 02:00 UTC on Jan 3 is still Jan 2 in New York
	m := models.RecurrenceRule{
		ID:        "r1",
		Type:      constants.RuleDaily,
		CreatedAt: time.Date(2024, 1, 3, 2, 0, 0, 0, time.UTC),
	}

	ny := FromModel(m, "America/New_York")
	if ny.Anchor.String() != "2024-01-02" {
		t.Errorf("expected anchor 2024-01-02 in New York, got %s", ny.Anchor)
	}
	if !IsDue(ny, logicalday.MustParse("2024-01-02")) {
		t.Error("expected rule to be due on its New York creation day")
	}

	utc := FromModel(m, "UTC")
	if utc.Anchor.String() != "2024-01-03" {
		t.Errorf("expected anchor 2024-01-03 in UTC, got %s", utc.Anchor)
	}
	if IsDue(utc, logicalday.MustParse("2024-01-02")) {
		t.Error("expected rule not to be due before its UTC creation day")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	configs := []Config{
		Weekly{Weekdays: []Weekday{Weekday(time.Monday), Weekday(time.Thursday)}},
		MonthlyDay{Weekday: Weekday(time.Friday), Occurrence: -1},
		Weekdays{},
	}
	for _, c := range configs {
		raw, err := Encode(c)
		if err != nil {
			t.Fatalf("Encode(%T) failed: %v", c, err)
		}
		back, err := Decode(c.Type(), raw)
		if err != nil {
			t.Fatalf("Decode(%s) failed: %v", raw, err)
		}
		if Describe(back) != Describe(c) {
			t.Errorf("expected %q after round trip, got %q", Describe(c), Describe(back))
		}
	}

	rr, err := Decode(constants.RuleRRule, json.RawMessage(`{"rrule":"FREQ=YEARLY"}`))
	if err != nil {
		t.Fatalf("Decode rrule failed: %v", err)
	}
	raw, err := Encode(rr)
	if err != nil {
		t.Fatalf("Encode rrule failed: %v", err)
	}
	if string(raw) != `{"rrule":"FREQ=YEARLY"}` {
		t.Errorf("unexpected rrule payload: %s", raw)
	}
}

func TestParseWeekdays(t *testing.T) {
	got, err := ParseWeekdays("mon, Wed,5")
	if err != nil {
		t.Fatalf("ParseWeekdays failed: %v", err)
	}
	want := []time.Weekday{time.Monday, time.Wednesday, time.Friday}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	if _, err := ParseWeekdays("mon,funday"); err == nil {
		t.Error("expected error for invalid weekday")
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		config Config
		want   string
	}{
		{Daily{}, "daily"},
		{Daily{Interval: 2}, "every 2 days"},
		{Weekly{Weekdays: []Weekday{1, 5}}, "weekly on Mon, Fri"},
		{MonthlyDay{Weekday: 2, Occurrence: 2}, "monthly on the 2nd Tuesday"},
		{MonthlyDay{Weekday: 5, Occurrence: -1}, "monthly on the last Friday"},
		{Yearly{Month: time.March, MonthDay: 1}, "yearly on March 1"},
		{Unknown{Tag: "lunar"}, "unsupported (lunar)"},
	}
	for _, tt := range tests {
		if got := Describe(tt.config); got != tt.want {
			t.Errorf("Describe(%#v) = %q, want %q", tt.config, got, tt.want)
		}
	}
}
