package constants

const (
	// Environment variables overriding the config file
	EnvConfigPath  = "LIFEPLAN_CONFIG"
	EnvDatabase    = "LIFEPLAN_DB"
	EnvHTTPAddress = "LIFEPLAN_HTTP_ADDRESS"
	EnvJWTSecret   = "LIFEPLAN_JWT_SECRET"
	EnvJWTIssuer   = "LIFEPLAN_JWT_ISSUER"
	EnvTimezone    = "LIFEPLAN_TIMEZONE"
	EnvUserID      = "LIFEPLAN_USER"
	EnvMaxRange    = "LIFEPLAN_MAX_RANGE_DAYS"

	// DefaultLocalUser owns rows created from the CLI when no user is configured
	DefaultLocalUser = "local"

	// Week start values
	WeekStartMonday = "monday"
	WeekStartSunday = "sunday"
)
