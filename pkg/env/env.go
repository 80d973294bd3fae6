// Package env reads process environment variables with fallbacks, for the
// few knobs that live outside the envconfig-managed configuration.
package env

import "os"

// Get looks up key in the process environment. An unset or empty variable
// yields fallback.
func Get(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
