package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Not every service uses every field: the
// taxonomy aggregator has no database of its own and the identity store
// never calls another service.
type Config struct {
	Env          string // application environment (e.g. "dev", "prod")
	Service      string // service name reported by the health endpoint
	Port         string // HTTP port to listen on
	DBUser       string // database username
	DBPass       string // database password (optional)
	DBHost       string // database host address
	DBPort       string // database port number
	DBName       string // database name
	JWTSecret    string // secret used to sign and verify JWTs
	AccessTTLMin int    // access token time-to-live in minutes
	BcryptCost   int    // bcrypt cost for password hashing

	// Base URLs of downstream dependencies.  The observation service
	// relays reputation changes to the identity store; the taxonomy
	// aggregator reads species and observations from the observation
	// service.
	AuthServiceURL        string
	ObservationServiceURL string
}

// Load reads the full configuration used by the database-backed
// services.  Required variables are enforced by must() and missing
// values cause the program to exit with a fatal log message.
func Load(service string) Config {
	return Config{
		Env:          must("APP_ENV"),
		Service:      service,
		Port:         must("APP_PORT"),
		DBUser:       must("DB_USER"),
		DBPass:       os.Getenv("DB_PASS"), // empty allowed
		DBHost:       must("DB_HOST"),
		DBPort:       must("DB_PORT"),
		DBName:       must("DB_NAME"),
		JWTSecret:    must("JWT_SECRET"),
		AccessTTLMin: mustInt("ACCESS_TOKEN_TTL_MIN"),
		BcryptCost:   mustInt("BCRYPT_COST"),

		AuthServiceURL:        getenv("AUTH_SERVICE_URL", "http://localhost:4001"),
		ObservationServiceURL: getenv("OBSERVATION_SERVICE_URL", "http://localhost:4002"),
	}
}

// LoadAggregator reads the subset of configuration needed by the
// taxonomy aggregator, which keeps no state and therefore has no
// database settings.
func LoadAggregator(service string) Config {
	return Config{
		Env:                   must("APP_ENV"),
		Service:               service,
		Port:                  must("APP_PORT"),
		JWTSecret:             must("JWT_SECRET"),
		ObservationServiceURL: getenv("OBSERVATION_SERVICE_URL", "http://localhost:4002"),
	}
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
