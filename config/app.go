package config

type App struct {
	Port string `env:"APP_PORT" default:"8080"`
	Env  string `env:"APP_ENV" default:"dev"`

	// StoreDriver selects the catalog store backend: postgres, mongo, or
	// memory (ephemeral, for local runs and tests).
	StoreDriver string `env:"STORE_DRIVER" default:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	MongoURI    string `env:"MONGO_URI"`
	MongoDB     string `env:"MONGO_DB" default:"libcirc"`

	JWTSecret string `env:"JWT_SECRET,required"`

	// Circulation policy.
	LoanPeriodDays int     `env:"LOAN_PERIOD_DAYS" default:"14"`
	FineRate       float64 `env:"FINE_RATE" default:"0"`

	// Staff credentials for the login endpoint; the password is stored as
	// a bcrypt hash, never plaintext.
	StaffUsername     string `env:"STAFF_USERNAME" default:"staff"`
	StaffPasswordHash string `env:"STAFF_PASSWORD_HASH,required"`

	// Overdue notification daemon; disabled while the URL is empty.
	NotifyWebhookURL string `env:"NOTIFY_WEBHOOK_URL"`
	NotifyIntervalM  int    `env:"NOTIFY_INTERVAL_MINUTES" default:"60"`
	NotifyTimeoutS   int    `env:"NOTIFY_TIMEOUT_SECONDS" default:"10"`
}
