package ratelimiter

import "time"

// Config holds throttling settings for the public account endpoints.
type Config struct {
	Enabled bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	Driver  string        `env:"RATE_LIMIT_DRIVER" envDefault:"memory"`
	Prefix  string        `env:"RATE_LIMIT_PREFIX" envDefault:"ratelimit:"`
	Limit   int           `env:"RATE_LIMIT_REQUESTS" envDefault:"10"`
	Window  time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)
