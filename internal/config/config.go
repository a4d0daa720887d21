package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// insecureDevSecret is only ever used when AUTH_INSECURE_DEV=true.  It must
// never appear in a production deployment; Load refuses to start without a
// real SESSION_SECRET unless the insecure flag is set explicitly.
const insecureDevSecret = "insecure-dev-session-secret"

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and costs.
type Config struct {
	Env           string // application environment (e.g. "dev", "prod")
	Port          string // HTTP port to listen on
	DBUser        string // database username
	DBPass        string // database password (optional)
	DBHost        string // database host address
	DBPort        string // database port number
	DBName        string // database name
	SessionSecret string // secret used to sign session tokens
	SessionTTLMin int    // session token time-to-live in minutes
	BcryptCost    int    // bcrypt cost for password hashing
	UploadDir     string // directory where uploaded files are stored
	InsecureDev   bool   // explicit opt-in to the insecure dev session secret
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
//
// The session secret is deliberately strict: an unset SESSION_SECRET is a
// fatal configuration error in every environment unless AUTH_INSECURE_DEV
// is set to "true", in which case a well-known dev secret is substituted
// and a warning is logged.
func Load() Config {
	cfg := Config{
		Env:           must("APP_ENV"),                  // environment (dev/test/prod)
		Port:          must("APP_PORT"),                 // port to bind the HTTP server
		DBUser:        must("DB_USER"),                  // database user
		DBPass:        os.Getenv("DB_PASS"),             // database password (empty allowed)
		DBHost:        must("DB_HOST"),                  // database host
		DBPort:        must("DB_PORT"),                  // database port
		DBName:        must("DB_NAME"),                  // database name
		SessionTTLMin: mustInt("SESSION_TOKEN_TTL_MIN"), // TTL for session tokens in minutes
		BcryptCost:    mustInt("BCRYPT_COST"),           // bcrypt cost factor
		UploadDir:     getenv("UPLOAD_DIR", "uploads"),
		InsecureDev:   os.Getenv("AUTH_INSECURE_DEV") == "true",
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		if !cfg.InsecureDev {
			log.Fatal("SESSION_SECRET is not set; refusing to start (set AUTH_INSECURE_DEV=true to run with an insecure dev secret)")
		}
		log.Println("WARNING: SESSION_SECRET not set, using insecure dev secret because AUTH_INSECURE_DEV=true")
		cfg.SessionSecret = insecureDevSecret
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// getenv returns the value of an environment variable or a default when the
// variable is unset or empty.  Shared by the other config files in this
// package.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
