// Package logicalday resolves instants into the calendar day a user experiences in their
// own timezone, and converts those days back into wall-clock instants.
package logicalday

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/julianstephens/lifeplan/internal/constants"
	apperrors "github.com/julianstephens/lifeplan/internal/errors"
)

// Years a Date can take and still round-trip through YYYY-MM-DD.
const (
	MinYear = 0
	MaxYear = 9999
)

// Date is a calendar date with no time-of-day component.
// The zero value is not a valid date; use IsZero to detect it. Dates outside
// MinYear..MaxYear can be computed but not encoded; see InRange.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// New returns the normalized date for year, month and day.
// Out-of-range months and days roll over the way time.Date does. The year is not
// clamped; check InRange before storing a computed date.
func New(year int, month time.Month, day int) Date {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FromTime returns the date of t as seen in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Parse parses a YYYY-MM-DD string. Impossible dates such as 2024-02-30 are rejected.
func Parse(s string) (Date, error) {
	t, err := time.Parse(constants.DateFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q (expected YYYY-MM-DD)", apperrors.ErrInvalidDate, s)
	}
	return FromTime(t), nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Format renders d as YYYY-MM-DD.
func Format(d Date) string {
	return d.String()
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// InRange reports whether d's year has a four-digit YYYY-MM-DD form
func (d Date) InRange() bool {
	return d.Year >= MinYear && d.Year <= MaxYear
}

func (d Date) checkRange() error {
	if d.InRange() {
		return nil
	}
	return fmt.Errorf("%w: year %d outside %04d-%04d", apperrors.ErrInvalidDate, d.Year, MinYear, MaxYear)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Time returns midnight UTC of d. Only meaningful for calendar arithmetic.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Weekday returns the day of the week of d.
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// AddDays returns d shifted by n days (n may be negative).
func (d Date) AddDays(n int) Date {
	return New(d.Year, d.Month, d.Day+n)
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after other.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return cmpInt(d.Year, other.Year)
	case d.Month != other.Month:
		return cmpInt(int(d.Month), int(other.Month))
	default:
		return cmpInt(d.Day, other.Day)
	}
}

func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }
func (d Date) After(other Date) bool  { return d.Compare(other) > 0 }

// DaysBetween returns the number of days from a to b (negative when b is before a).
func DaysBetween(a, b Date) int {
	return int(b.Time().Sub(a.Time()).Hours() / 24)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// MarshalText implements encoding.TextMarshaler. The zero Date encodes as "";
// a year outside MinYear..MaxYear is an error.
func (d Date) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	if err := d.checkRange(); err != nil {
		return nil, err
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer so dates are stored as YYYY-MM-DD text.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	if err := d.checkRange(); err != nil {
		return nil, err
	}
	return d.String(), nil
}

// Scan implements sql.Scanner. DATE columns arrive as time.Time from PostgreSQL
// and as text from SQLite.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = FromTime(v)
		return nil
	case string:
		return d.UnmarshalText([]byte(v))
	case []byte:
		return d.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into logicalday.Date", src)
	}
}
