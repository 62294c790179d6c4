package config // package config loads application configuration from environment variables

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env        string        // application environment (e.g. "dev", "prod")
	Port       string        // HTTP port to listen on
	DBUser     string        // database username
	DBPass     string        // database password (optional)
	DBHost     string        // database host address
	DBPort     string        // database port number
	DBName     string        // database name
	JWTSecret  string        // secret used to sign JWTs
	TokenTTL   time.Duration // access token validity window, default 24h
	BcryptCost int           // bcrypt cost for password hashing

	AdminSeedEnabled bool   // provision the admin account at startup
	AdminEmail       string // email of the provisioned admin
	AdminPassword    string // required when AdminSeedEnabled

	RabbitURL    string // broker URL; events are dropped when empty
	AuditLogPath string // file the audit consumer appends to
}

// Dev reports whether the application runs in development mode.
func (c Config) Dev() bool { return c.Env == "dev" || c.Env == "development" }

// Load reads an optional .env file, then the environment, and returns a
// Config.  Missing or malformed required values cause the program to exit
// with a fatal log message.
func Load() Config {
	_ = godotenv.Load() // .env is optional; real environment wins
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// Parse builds a Config from the current environment.  It reports the
// first missing or malformed variable.
func Parse() (Config, error) {
	e := &env{}
	cfg := Config{
		Env:        e.must("APP_ENV"),
		Port:       e.must("APP_PORT"),
		DBUser:     e.must("DB_USER"),
		DBPass:     os.Getenv("DB_PASS"),
		DBHost:     e.must("DB_HOST"),
		DBPort:     e.must("DB_PORT"),
		DBName:     e.must("DB_NAME"),
		JWTSecret:  e.must("JWT_SECRET"),
		TokenTTL:   e.duration("TOKEN_TTL", 24*time.Hour),
		BcryptCost: e.integer("BCRYPT_COST", 10),

		AdminSeedEnabled: envBool("ADMIN_SEED_ENABLED", true),
		AdminEmail:       envStr("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword:    os.Getenv("ADMIN_PASSWORD"),

		RabbitURL:    os.Getenv("RABBITMQ_URL"),
		AuditLogPath: envStr("AUDIT_LOG_PATH", "logs/audit.log"),
	}
	if cfg.RabbitURL == "" {
		cfg.RabbitURL = os.Getenv("AMQP_URL")
	}
	if e.err == nil && cfg.AdminSeedEnabled && cfg.AdminPassword == "" {
		e.err = fmt.Errorf("ADMIN_PASSWORD is required when ADMIN_SEED_ENABLED is true")
	}
	if e.err == nil && cfg.TokenTTL <= 0 {
		e.err = fmt.Errorf("TOKEN_TTL must be positive")
	}
	return cfg, e.err
}

// env remembers the first error so Parse can read every key in one
// expression.
type env struct{ err error }

// must retrieves the value of a required environment variable.
func (e *env) must(key string) string {
	v, ok := os.LookupEnv(key)
	if (!ok || strings.TrimSpace(v) == "") && e.err == nil {
		e.err = fmt.Errorf("missing required env var: %s", key)
	}
	return v
}

func (e *env) integer(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil && e.err == nil {
		e.err = fmt.Errorf("invalid int for %s: %q", key, s)
	}
	return n
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil && e.err == nil {
		e.err = fmt.Errorf("invalid duration for %s: %q", key, s)
	}
	return d
}
