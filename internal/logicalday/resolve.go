package logicalday

import (
	"fmt"
	"sync"
	"time"

	"github.com/julianstephens/lifeplan/internal/constants"
	apperrors "github.com/julianstephens/lifeplan/internal/errors"
	"github.com/julianstephens/lifeplan/internal/logger"
)

// Clock supplies the current instant. The resolver never reads the system clock itself.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock of the running process.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

var locationCache sync.Map // map[string]*time.Location

// LoadLocation loads an IANA timezone. Empty or invalid names fall back to UTC;
// "Local" resolves to the process's local zone.
func LoadLocation(timezone string) *time.Location {
	if timezone == "" || timezone == constants.DefaultTimezone {
		return time.UTC
	}
	if cached, ok := locationCache.Load(timezone); ok {
		return cached.(*time.Location)
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		logger.Debug("Invalid timezone, falling back to UTC", "timezone", timezone, "error", err)
		return time.UTC
	}
	locationCache.Store(timezone, loc)
	return loc
}

// ValidTimezone reports whether timezone names a loadable IANA zone.
// The empty string is valid and means UTC.
func ValidTimezone(timezone string) bool {
	if timezone == "" {
		return true
	}
	_, err := time.LoadLocation(timezone)
	return err == nil
}

// Resolve returns the logical date of instant in timezone.
func Resolve(instant time.Time, timezone string) Date {
	return FromTime(instant.In(LoadLocation(timezone)))
}

// Today returns the logical date of clock.Now() in timezone.
func Today(clock Clock, timezone string) Date {
	return Resolve(clock.Now(), timezone)
}

// ParseClock parses an HH:MM string into hour and minute.
func ParseClock(localTime string) (hour, minute int, err error) {
	t, err := time.Parse(constants.TimeFormat, localTime)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q (expected HH:MM)", apperrors.ErrInvalidTime, localTime)
	}
	return t.Hour(), t.Minute(), nil
}

// ZonedInstant converts a logical date and an HH:MM local time in timezone into an
// absolute instant. Only a malformed localTime is an error; DST is resolved by At.
func ZonedInstant(d Date, localTime string, timezone string) (time.Time, error) {
	hour, minute, err := ParseClock(localTime)
	if err != nil {
		return time.Time{}, err
	}
	return At(d, hour, minute, LoadLocation(timezone)), nil
}

// At returns the instant at which wall clocks in loc show hour:minute on d.
//
// When that wall time is ambiguous (fall-back overlap) the earlier instant is returned.
// When it does not exist (spring-forward gap) the instant the gap ends is returned,
// so 02:30 on a US spring-forward day yields 03:00 local.
func At(d Date, hour, minute int, loc *time.Location) time.Time {
	naive := time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, time.UTC)

	// Offsets on either side of any transition that can affect this wall time.
	_, offBefore := naive.Add(-36 * time.Hour).In(loc).Zone()
	_, offAfter := naive.Add(36 * time.Hour).In(loc).Zone()

	var found time.Time
	for _, off := range []int{offBefore, offAfter} {
		candidate := naive.Add(-time.Duration(off) * time.Second).In(loc)
		if !showsWallTime(candidate, d, hour, minute) {
			continue
		}
		if found.IsZero() || candidate.Before(found) {
			found = candidate
		}
	}
	if !found.IsZero() {
		return found
	}

	// Gap: reading the wall time with the pre-transition offset lands inside the new
	// zone period, whose start is the transition instant.
	shifted := naive.Add(-time.Duration(offBefore) * time.Second).In(loc)
	start, _ := shifted.ZoneBounds()
	if start.IsZero() {
		return shifted
	}
	return start.In(loc)
}

// StartOfDay returns the first instant of d in timezone.
func StartOfDay(d Date, timezone string) time.Time {
	return At(d, 0, 0, LoadLocation(timezone))
}

// EndOfDay returns the first instant of the day after d in timezone (exclusive bound).
func EndOfDay(d Date, timezone string) time.Time {
	return StartOfDay(d.AddDays(1), timezone)
}

func showsWallTime(t time.Time, d Date, hour, minute int) bool {
	y, m, day := t.Date()
	return y == d.Year && m == d.Month && day == d.Day && t.Hour() == hour && t.Minute() == minute
}
