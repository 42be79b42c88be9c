package models

// Profile holds per-user settings used for logical day resolution
type Profile struct {
	UserID    string `json:"user_id"`
	Timezone  string `json:"timezone"`   // IANA timezone name (e.g. "America/New_York")
	WeekStart string `json:"week_start"` // "monday" or "sunday"
}
