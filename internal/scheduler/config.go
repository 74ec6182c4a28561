package scheduler

import (
	"time"
)

// Config controls scheduler cadence and which jobs a worker runs.
type Config struct {
	RunInterval time.Duration
	JobTimeout  time.Duration
	// GenerateDayOfMonth is the day the previous month's bills are
	// generated (1 = first of the month).
	GenerateDayOfMonth int
	// EnabledJobs empty means all jobs run (monolith mode).
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:        time.Hour,
		JobTimeout:         10 * time.Minute,
		GenerateDayOfMonth: 1,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.GenerateDayOfMonth < 1 || c.GenerateDayOfMonth > 28 {
		c.GenerateDayOfMonth = defaults.GenerateDayOfMonth
	}
	return c
}
