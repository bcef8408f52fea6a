package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the configuration settings for the geocoder.
//
// Fields:
// - Env: The current environment (e.g., local, development, production).
// - Port: The port of the HTTP API.
// - ProviderType: The geocoding provider to use (photon, google, nominatim, visicom).
// - APIKey: The API key for providers that require one (google, visicom).
// - ProviderURL: Overrides the provider endpoint, e.g. a self-hosted Photon.
// - Language: Preferred language of provider results.
// - RateLimit: Requests per second sent to the provider.
// - Retries: How many times a failed provider call is retried.
// - RetryDelay: The pause between retries.
// - Timeout: The upper bound of a single provider call.
// - AddrPrefix: Text prepended to every address before it is sent to the provider.
// - MaxBatchRows: The most addresses one HTTP request may submit, 0 disables the limit.
// - CORSOrigins: Origins allowed to call the HTTP API; empty allows all.
// - Database: Configuration settings for the optional PostgreSQL source.
type Config struct {
	Env          string
	Port         int
	ProviderType string
	APIKey       string
	ProviderURL  string
	Language     string
	RateLimit    int
	Retries      int
	RetryDelay   time.Duration
	Timeout      time.Duration
	AddrPrefix   string
	MaxBatchRows int
	CORSOrigins  []string
	Database     PostgresConfig
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string // Host is the database server address.
	Port     string // Port is the database server port.
	User     string // User is the database user.
	Password string // Password is the database user's password.
	Name     string // Name is the name of the database.
}

// Configured reports whether enough settings are present to open a connection.
func (p PostgresConfig) Configured() bool {
	return p.Host != "" && p.Name != ""
}

// MustLoad reads the configuration from the environment, after loading a .env file if one exists.
func MustLoad() *Config {
	_ = godotenv.Load()

	port, err := strconv.Atoi(setDefaultEnv("GEOBATCH_HTTP_PORT", "8080"))
	if err != nil {
		panic("failed to parse port for http server from configuration")
	}

	rateLimit, err := strconv.Atoi(setDefaultEnv("GEOBATCH_RATE_LIMIT", "1"))
	if err != nil {
		panic("failed to parse rate limit from configuration, must be an integer types")
	}

	retries, err := strconv.Atoi(setDefaultEnv("GEOBATCH_RETRIES", "3"))
	if err != nil {
		panic("failed to parse retries from configuration, must be an integer types")
	}

	maxBatchRows, err := strconv.Atoi(setDefaultEnv("GEOBATCH_MAX_BATCH_ROWS", "500"))
	if err != nil {
		panic("failed to parse max batch rows from configuration, must be an integer types")
	}

	retryDelay, err := time.ParseDuration(setDefaultEnv("GEOBATCH_RETRY_DELAY", "1s"))
	if err != nil {
		panic("failed to parse retry delay from configuration")
	}

	timeout, err := time.ParseDuration(setDefaultEnv("GEOBATCH_TIMEOUT", "10s"))
	if err != nil {
		panic("failed to parse timeout from configuration")
	}

	return &Config{
		Env:          setDefaultEnv("GEOBATCH_ENV", "production"),
		Port:         port,
		ProviderType: setDefaultEnv("GEOBATCH_PROVIDER_TYPE", "photon"),
		APIKey:       os.Getenv("GEOBATCH_PROVIDER_KEY"),
		ProviderURL:  os.Getenv("GEOBATCH_PROVIDER_URL"),
		Language:     os.Getenv("GEOBATCH_LANGUAGE"),
		RateLimit:    rateLimit,
		Retries:      retries,
		RetryDelay:   retryDelay,
		Timeout:      timeout,
		AddrPrefix:   setDefaultEnv("GEOBATCH_ADDRESS_PREFIX", ""),
		MaxBatchRows: maxBatchRows,
		CORSOrigins:  splitList(os.Getenv("GEOBATCH_CORS_ALLOWED_ORIGINS")),
		Database: PostgresConfig{
			Host:     os.Getenv("DB_HOST"),
			Port:     setDefaultEnv("DB_PORT", "5432"),
			User:     os.Getenv("DB_USERNAME"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
		},
	}
}

func setDefaultEnv(key, override string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		value = override
	}

	return value
}

func splitList(value string) []string {
	var items []string
	for item := range strings.SplitSeq(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}

	return items
}
