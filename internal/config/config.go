package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"      validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database"    validate:"required"`
	Auth        AuthConfig        `mapstructure:"auth"        validate:"required"`
	Circulation CirculationConfig `mapstructure:"circulation" validate:"required"`
	SMTP        SMTPConfig        `mapstructure:"smtp"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains authentication and authorization settings.
// Tokens are issued by the external identity provider; this service only
// needs the shared secret to validate them.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// CirculationConfig contains the tunable constants of the circulation
// lifecycle: how long a loan runs, how fines accrue, and how the overdue
// sweep behaves.
type CirculationConfig struct {
	// LoanPeriodDays is the number of days a borrowed copy may be kept.
	LoanPeriodDays int `mapstructure:"loan_period_days" validate:"required,gt=0"`

	// FineRatePerUnit is the amount charged per whole lateness unit.
	FineRatePerUnit float64 `mapstructure:"fine_rate_per_unit" validate:"gte=0"`

	// FineUnitHours is the lateness unit in hours. The default of 24 charges
	// per day late.
	FineUnitHours int `mapstructure:"fine_unit_hours" validate:"required,gt=0"`

	// OverdueGraceHours is how far past due a loan must be before the
	// notifier picks it up.
	OverdueGraceHours int `mapstructure:"overdue_grace_hours" validate:"gte=0"`

	// SweepIntervalMinutes is how often the overdue sweep runs. The cadence
	// is a tuning parameter, not a correctness requirement.
	SweepIntervalMinutes int `mapstructure:"sweep_interval_minutes" validate:"required,gt=0"`
}

// SMTPConfig contains the settings for the outbound reminder mailer.
// When Host is empty, reminders are logged instead of sent.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	From     string `mapstructure:"from"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}
