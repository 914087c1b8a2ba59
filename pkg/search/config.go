package search

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/operator-framework/satplan/pkg/solver"
)

// Config bounds a horizon search.
type Config struct {
	// MinHorizon is the first horizon tried.
	MinHorizon int `json:"minHorizon,omitempty"`
	// MaxHorizon is the last horizon tried before reporting
	// NoPlanWithinBound.
	MaxHorizon int `json:"maxHorizon,omitempty"`
	// AttemptTimeout limits each solver check. Zero means no limit.
	AttemptTimeout time.Duration `json:"attemptTimeout,omitempty"`
	// UnknownRetries is how many times a horizon whose check timed out
	// is tried again, each time with the timeout doubled.
	UnknownRetries int `json:"unknownRetries,omitempty"`
	// Parallelism is the number of horizons solved concurrently.
	Parallelism int `json:"parallelism,omitempty"`
	// Backend names the solver backend used when no factory is given.
	Backend string `json:"backend,omitempty"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		MinHorizon:  1,
		MaxHorizon:  10,
		Parallelism: 1,
		Backend:     solver.DefaultBackend,
	}
}

func (c Config) Validate() error {
	switch {
	case c.MinHorizon < 1:
		return fmt.Errorf("minimum horizon must be at least 1, got %d", c.MinHorizon)
	case c.MaxHorizon < c.MinHorizon:
		return fmt.Errorf("maximum horizon %d is below minimum horizon %d", c.MaxHorizon, c.MinHorizon)
	case c.AttemptTimeout < 0:
		return fmt.Errorf("attempt timeout must not be negative, got %s", c.AttemptTimeout)
	case c.UnknownRetries < 0:
		return fmt.Errorf("unknown retries must not be negative, got %d", c.UnknownRetries)
	case c.Parallelism < 1:
		return fmt.Errorf("parallelism must be at least 1, got %d", c.Parallelism)
	}
	return nil
}

// AddFlags binds the fields of c to flags in fs, using the current
// values as defaults.
func (c *Config) AddFlags(fs *pflag.FlagSet) {
	fs.IntVar(&c.MinHorizon, "min-horizon", c.MinHorizon, "first horizon (number of steps) to try")
	fs.IntVar(&c.MaxHorizon, "max-horizon", c.MaxHorizon, "last horizon to try before giving up")
	fs.DurationVar(&c.AttemptTimeout, "attempt-timeout", c.AttemptTimeout, "time limit for each solver check, 0 for none")
	fs.IntVar(&c.UnknownRetries, "unknown-retries", c.UnknownRetries, "retries of a timed out horizon, doubling the timeout each time")
	fs.IntVar(&c.Parallelism, "parallelism", c.Parallelism, "number of horizons to solve concurrently")
	fs.StringVar(&c.Backend, "solver", c.Backend, fmt.Sprintf("solver backend, one of %v", solver.Backends()))
}
