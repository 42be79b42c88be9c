package logicalday

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	apperrors "github.com/julianstephens/lifeplan/internal/errors"
)

func TestFormatParseRoundTrip(t *testing.T) {
	start := New(1999, time.December, 1)
	// Covers several leap days and month/year boundaries
	for i := 0; i < 365*9; i++ {
		d := start.AddDays(i)
		got, err := Parse(Format(d))
		if err != nil {
			t.Fatalf("Parse(Format(%v)) error = %v", d, err)
		}
		if got != d {
			t.Fatalf("Parse(Format(%v)) = %v", d, got)
		}
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	tests := []string{
		"",
		"2024-1-05",
		"2024/01/05",
		"2024-02-30",
		"2023-02-29",
		"2024-13-01",
		"20240105",
		"2024-01-05T00:00:00Z",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			if err == nil {
				t.Fatalf("Parse(%q) expected error", input)
			}
			if !errors.Is(err, apperrors.ErrInvalidDate) {
				t.Errorf("Parse(%q) error = %v, want ErrInvalidDate", input, err)
			}
		})
	}
}

func TestYearRange(t *testing.T) {
	for _, d := range []Date{New(MinYear, time.January, 1), New(1, time.March, 3), New(MaxYear, time.December, 31)} {
		if !d.InRange() {
			t.Errorf("%v reported out of range", d)
		}
		text, err := d.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v) error = %v", d, err)
		}
		var back Date
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q) error = %v", text, err)
		}
		if back != d {
			t.Errorf("round trip of %v = %v", d, back)
		}
	}

	for _, d := range []Date{New(MaxYear+1, time.January, 1), New(MaxYear, time.December, 31).AddDays(1), New(-1, time.June, 1)} {
		if d.InRange() {
			t.Errorf("%v reported in range", d)
		}
		if _, err := d.MarshalText(); !errors.Is(err, apperrors.ErrInvalidDate) {
			t.Errorf("MarshalText(%v) error = %v, want ErrInvalidDate", d, err)
		}
		if _, err := d.Value(); !errors.Is(err, apperrors.ErrInvalidDate) {
			t.Errorf("Value(%v) error = %v, want ErrInvalidDate", d, err)
		}
		if _, err := Parse(d.String()); err == nil {
			t.Errorf("Parse(%q) accepted an out-of-range year", d.String())
		}
	}
}

func TestParseLeapDay(t *testing.T) {
	d, err := Parse("2024-02-29")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if d != (Date{Year: 2024, Month: time.February, Day: 29}) {
		t.Errorf("Parse() = %v", d)
	}
}

func TestAddDaysAndCompare(t *testing.T) {
	d := MustParse("2024-02-28")

	if got := d.AddDays(1); got.String() != "2024-02-29" {
		t.Errorf("AddDays(1) = %s", got)
	}
	if got := d.AddDays(2); got.String() != "2024-03-01" {
		t.Errorf("AddDays(2) = %s", got)
	}
	if got := MustParse("2024-01-01").AddDays(-1); got.String() != "2023-12-31" {
		t.Errorf("AddDays(-1) = %s", got)
	}
	if !d.Before(d.AddDays(1)) || d.After(d.AddDays(1)) {
		t.Error("Before/After disagree with AddDays")
	}
	if d.Compare(d) != 0 {
		t.Error("Compare(self) != 0")
	}
	if got := DaysBetween(MustParse("2024-01-01"), MustParse("2024-12-31")); got != 365 {
		t.Errorf("DaysBetween() = %d, want 365", got)
	}
}

func TestWeekday(t *testing.T) {
	if got := MustParse("2024-01-01").Weekday(); got != time.Monday {
		t.Errorf("2024-01-01 weekday = %v, want Monday", got)
	}
}

func TestDateJSON(t *testing.T) {
	type payload struct {
		Day  Date `json:"day"`
		Zero Date `json:"zero"`
	}

	data, err := json.Marshal(payload{Day: MustParse("2024-01-03")})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"day":"2024-01-03","zero":""}` {
		t.Errorf("Marshal() = %s", data)
	}

	var decoded payload
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded.Day != MustParse("2024-01-03") || !decoded.Zero.IsZero() {
		t.Errorf("Unmarshal() = %+v", decoded)
	}

	if err := json.Unmarshal([]byte(`{"day":"2024-02-31"}`), &decoded); err == nil {
		t.Error("expected error for impossible date")
	}
}

func TestDateScan(t *testing.T) {
	var d Date

	if err := d.Scan("2024-05-06"); err != nil || d.String() != "2024-05-06" {
		t.Errorf("Scan(string) = %v, %v", d, err)
	}
	if err := d.Scan([]byte("2024-05-07")); err != nil || d.String() != "2024-05-07" {
		t.Errorf("Scan([]byte) = %v, %v", d, err)
	}
	if err := d.Scan(time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC)); err != nil || d.String() != "2024-05-08" {
		t.Errorf("Scan(time.Time) = %v, %v", d, err)
	}
	if err := d.Scan(nil); err != nil || !d.IsZero() {
		t.Errorf("Scan(nil) = %v, %v", d, err)
	}
	if err := d.Scan(42); err == nil {
		t.Error("Scan(int) expected error")
	}

	v, err := MustParse("2024-05-06").Value()
	if err != nil || v != "2024-05-06" {
		t.Errorf("Value() = %v, %v", v, err)
	}
}
