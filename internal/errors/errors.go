package errors

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/lifeplan/internal/logger"
)

var (
	// ErrNotFound is returned when a rule, template or instance does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidDate is returned for malformed YYYY-MM-DD strings and impossible dates
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidTime is returned for malformed HH:MM clock strings
	ErrInvalidTime = errors.New("invalid time")
	// ErrInvalidRange is returned when a range ends before it starts
	ErrInvalidRange = errors.New("invalid date range")
	// ErrRangeTooLarge is returned when a range exceeds the materialization limit
	ErrRangeTooLarge = errors.New("date range too large")
	// ErrInvalidStatus is returned for unrecognized instance statuses
	ErrInvalidStatus = errors.New("invalid instance status")
	// ErrConflict is returned when a write collides with a uniqueness constraint
	ErrConflict = errors.New("already exists")
	// ErrInvalidRule is returned when a rule tag or configuration cannot be evaluated
	ErrInvalidRule = errors.New("invalid recurrence rule")
	// ErrInvalidInput is returned for template fields that fail validation
	ErrInvalidInput = errors.New("invalid input")
)

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
