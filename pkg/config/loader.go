// Package config loads env-tagged structs with caarlos0/env.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v10"
)

// Load parses the process environment into cfg, a pointer to a struct with
// `env` and `envDefault` tags. All problems are reported in one error.
func Load(cfg any) error {
	return parse(cfg, env.Options{})
}

// LoadFrom parses environ instead of the process environment. Defaults from
// `envDefault` tags still apply to missing keys.
func LoadFrom(cfg any, environ map[string]string) error {
	return parse(cfg, env.Options{Environment: environ})
}

func parse(cfg any, opts env.Options) error {
	err := env.ParseWithOptions(cfg, opts)
	if err == nil {
		return nil
	}

	var agg env.AggregateError
	if !errors.As(err, &agg) || len(agg.Errors) == 0 {
		return fmt.Errorf("parse config: %w", err)
	}
	problems := make([]string, 0, len(agg.Errors))
	for _, e := range agg.Errors {
		var missing env.EnvVarIsNotSetError
		if errors.As(e, &missing) {
			problems = append(problems, missing.Key+" is required")
			continue
		}
		problems = append(problems, e.Error())
	}
	return fmt.Errorf("parse config: %s: %w", strings.Join(problems, "; "), err)
}
