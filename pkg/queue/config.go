package queue

import "time"

// Config holds the configuration for the task queue.
type Config struct {
	PollInterval       time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"1s"`
	LockTimeout        time.Duration `env:"QUEUE_LOCK_TIMEOUT" envDefault:"1m"`
	ShutdownTimeout    time.Duration `env:"QUEUE_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	MaxConcurrentTasks int           `env:"QUEUE_MAX_CONCURRENT_TASKS" envDefault:"2"`
	Capacity           int           `env:"QUEUE_CAPACITY" envDefault:"1024"`
	MaxAttempts        int           `env:"QUEUE_MAX_ATTEMPTS" envDefault:"3"`
	RetryBackoff       time.Duration `env:"QUEUE_RETRY_BACKOFF" envDefault:"30s"`
}
