package models

import "time"

// Habit is a task template that recurs according to its rule
type Habit struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"`
	LocalTime string     `json:"local_time,omitempty"` // HH:MM format, empty for all-day
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}
