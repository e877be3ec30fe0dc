package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time parses duration values
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and costs.
type Config struct {
	Env            string        // application environment (e.g. "dev", "prod")
	Port           string        // HTTP port to listen on
	DBUser         string        // database username
	DBPass         string        // database password (optional)
	DBHost         string        // database host address
	DBPort         string        // database port number
	DBName         string        // database name
	JWTSecret      string        // secret used to sign session tokens
	SessionTTLDays int           // session cookie/token time-to-live in days
	OTPTTLMin      int           // one-time password time-to-live in minutes
	DeviceTTLDays  int           // trusted device time-to-live in days
	SweepInterval  time.Duration // how often expired devices are swept
	BcryptCost     int           // bcrypt cost for password hashing
	CookieSecure   bool          // mark the session cookie Secure (prod)
	SMTPHost       string        // SMTP relay host (empty disables real mail)
	SMTPPort       string        // SMTP relay port
	SMTPUser       string        // SMTP username
	SMTPPass       string        // SMTP password
	SMTPFrom       string        // From address on outbound mail
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message. Lifetime knobs fall
// back to the product defaults (7-day sessions, 5-minute OTPs, 30-day
// trusted devices) when unset.
func Load() Config {
	env := must("APP_ENV")
	return Config{
		Env:            env,
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		SessionTTLDays: intDefault("SESSION_TTL_DAYS", 7),
		OTPTTLMin:      intDefault("OTP_TTL_MIN", 5),
		DeviceTTLDays:  intDefault("DEVICE_TTL_DAYS", 30),
		SweepInterval:  durDefault("DEVICE_SWEEP_INTERVAL", time.Hour),
		BcryptCost:     intDefault("BCRYPT_COST", 10),
		CookieSecure:   env == "prod",
		SMTPHost:       os.Getenv("SMTP_HOST"),
		SMTPPort:       getenv("SMTP_PORT", "587"),
		SMTPUser:       os.Getenv("SMTP_USER"),
		SMTPPass:       os.Getenv("SMTP_PASS"),
		SMTPFrom:       os.Getenv("SMTP_FROM"),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// intDefault reads an integer variable, falling back to def when unset and
// exiting on malformed values.
func intDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}

// durDefault reads a duration variable ("1h", "30m"), falling back to def.
func durDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, v)
	}
	return d
}
