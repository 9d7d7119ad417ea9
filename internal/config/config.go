// Package config reads service configuration from PINS_* environment
// variables.
package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the full service configuration.
type Config struct {
	HTTPAddr   string `env:"PINS_HTTP_ADDR" env-default:":8080"`
	PostgresDSN string `env:"PINS_PG_DSN"`
	AuthSecret string `env:"PINS_AUTH_SECRET"`
	Verbose    bool   `env:"PINS_VERBOSE" env-default:"false"`

	SocialBaseURL string `env:"PINS_SOCIAL_BASE_URL" env-default:"http://social-service:8080"`
	ListsBaseURL  string `env:"PINS_LISTS_BASE_URL" env-default:"http://lists-service:8080"`
	ServiceName   string `env:"PINS_SERVICE_NAME" env-default:"pins-service"`
	ServiceKey    string `env:"PINS_INTERNAL_SERVICE_KEY"`

	BucketSizeDeg float64 `env:"PINS_BUCKET_SIZE_DEG" env-default:"0.01"`

	CollaboratorTimeout time.Duration `env:"PINS_COLLABORATOR_TIMEOUT" env-default:"2s"`
	CollaboratorRetries uint64        `env:"PINS_COLLABORATOR_RETRIES" env-default:"2"`
	GraphViewCacheTTL   time.Duration `env:"PINS_GRAPH_CACHE_TTL" env-default:"30s"`
	MembershipCacheTTL  time.Duration `env:"PINS_MEMBERSHIP_CACHE_TTL" env-default:"60s"`

	RateBurst  int `env:"PINS_RATE_BURST" env-default:"20"`
	RatePerSec int `env:"PINS_RATE_PER_SEC" env-default:"10"`

	CleanupRetention time.Duration `env:"PINS_CLEANUP_RETENTION" env-default:"168h"`
	CleanupBatchSize int           `env:"PINS_CLEANUP_BATCH_SIZE" env-default:"1000"`
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
