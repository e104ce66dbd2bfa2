// Package config parses typed configuration structs from the environment
// using `env` struct tags (caarlos0/env).
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load fills cfg from environment variables. Fields without a matching
// variable fall back to their envDefault tag; parse failures (bad ints,
// durations, bools) are returned, never silently defaulted.
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}
