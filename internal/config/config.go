// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds the runtime configuration every process needs.  Each field
// corresponds to an environment variable.
type Config struct {
	Env          string // application environment (e.g. "dev", "prod")
	Port         string // HTTP port to listen on
	DBUser       string // database username
	DBPass       string // database password (optional)
	DBHost       string // database host address
	DBPort       string // database port number
	DBName       string // database name
	JWTSecret    string // secret used to sign admin tokens
	AccessTTLMin int    // admin token time-to-live in minutes
	BcryptCost   int    // bcrypt cost used when hashing admin passwords
}

// Load reads configuration values from environment variables.  Missing
// required variables cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:          must("APP_ENV"),
		Port:         must("APP_PORT"),
		DBUser:       must("DB_USER"),
		DBPass:       os.Getenv("DB_PASS"),
		DBHost:       must("DB_HOST"),
		DBPort:       must("DB_PORT"),
		DBName:       must("DB_NAME"),
		JWTSecret:    must("JWT_SECRET"),
		AccessTTLMin: mustInt("ACCESS_TOKEN_TTL_MIN"),
		BcryptCost:   BcryptCost(),
	}
}

// AccessTTL is the admin token lifetime.
func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.AccessTTLMin) * time.Minute
}

// BillingConfig holds the billing windows and the snowflake node of this
// process.  Zero durations fall back to the billing defaults.
type BillingConfig struct {
	GracePeriod         time.Duration
	ExitWindow          time.Duration
	CouponValidity      time.Duration
	UsedCouponRetention time.Duration
	SnowflakeNode       int64
}

// LoadBillingConfig reads the optional billing overrides.
func LoadBillingConfig() BillingConfig {
	return BillingConfig{
		GracePeriod:         envDur("BILLING_GRACE_PERIOD", 15*time.Minute),
		ExitWindow:          envDur("BILLING_EXIT_WINDOW", 15*time.Minute),
		CouponValidity:      envDur("COUPON_VALIDITY", 2*time.Hour),
		UsedCouponRetention: envDur("COUPON_USED_RETENTION", 24*time.Hour),
		SnowflakeNode:       int64(envInt("SNOWFLAKE_NODE", 1)),
	}
}

// must retrieves the value of a required environment variable.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must but converts the value into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// BcryptCost returns BCRYPT_COST, or 12 when it is unset or malformed.
func BcryptCost() int { return envInt("BCRYPT_COST", 12) }
