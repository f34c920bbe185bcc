package config

import (
	"log/slog"
	"os"
	"strconv"
)

func Load() App {
	cfg := App{
		Port:              getenv("APP_PORT", "8080"),
		Env:               getenv("APP_ENV", "dev"),
		StoreDriver:       getenv("STORE_DRIVER", "postgres"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		MongoURI:          os.Getenv("MONGO_URI"),
		MongoDB:           getenv("MONGO_DB", "libcirc"),
		JWTSecret:         getenv("JWT_SECRET", "local_dev_secret"),
		LoanPeriodDays:    getenvInt("LOAN_PERIOD_DAYS", 14),
		FineRate:          getenvFloat("FINE_RATE", 0),
		StaffUsername:     getenv("STAFF_USERNAME", "staff"),
		StaffPasswordHash: must("STAFF_PASSWORD_HASH"),
		NotifyWebhookURL:  os.Getenv("NOTIFY_WEBHOOK_URL"),
		NotifyIntervalM:   getenvInt("NOTIFY_INTERVAL_MINUTES", 60),
		NotifyTimeoutS:    getenvInt("NOTIFY_TIMEOUT_SECONDS", 10),
	}

	switch cfg.StoreDriver {
	case "postgres":
		cfg.DatabaseURL = must("DATABASE_URL")
	case "mongo":
		cfg.MongoURI = must("MONGO_URI")
	case "memory":
	default:
		slog.Error("unknown store driver", "driver", cfg.StoreDriver)
		panic("unknown STORE_DRIVER " + cfg.StoreDriver)
	}
	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("bad numeric env, using default", "key", k, "value", v)
		return def
	}
	return n
}

func getenvFloat(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("bad numeric env, using default", "key", k, "value", v)
		return def
	}
	return f
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		slog.Error("required env missing", "key", k)
		panic("missing env " + k)
	}
	return v
}
