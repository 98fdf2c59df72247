package main

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type (
	ServiceConfig struct {
		Environment string `env:"SENTRY_ENVIRONMENT" env-default:"development"`
		SentryDSN   string `env:"SENTRY_DSN"`

		Port     string `env:"PORT" env-default:"8080"`
		LogLevel string `env:"LOG_LEVEL" env-default:"info"`

		StackServiceURL     string        `env:"STACK_SERVICE_URL"`
		StackServiceRetries int           `env:"STACK_SERVICE_RETRIES" env-default:"2"`
		StackServiceTimeout time.Duration `env:"STACK_SERVICE_TIMEOUT" env-default:"30s"`

		// badger:// keeps snapshots in memory, see storageprovider.Open.
		StacksBucketURL string `env:"STACKS_BUCKET_URL" env-default:"badger://"`

		CacheSize int     `env:"VIEW_CACHE_SIZE" env-default:"64"`
		MinSize   float64 `env:"FLAMEGRAPH_MIN_SIZE" env-default:"0"`

		// Module paths of the profiled application, e.g. github.com/acme/shop.
		ApplicationPrefixes []string `env:"APPLICATION_PREFIXES" env-separator:","`
	}
)

func readConfig() (ServiceConfig, error) {
	var c ServiceConfig
	err := cleanenv.ReadEnv(&c)
	return c, err
}
