// Package envutil parses optional typed settings from environment variables.
// An unset or empty variable leaves the destination untouched.
package envutil

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Float parses a float64 from an environment variable
func Float(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// Int parses an int from an environment variable
func Int(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// Bool parses a bool from an environment variable
func Bool(key string, dest *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// String copies a non-empty environment variable into dest
func String(key string, dest *string) {
	if value := os.Getenv(key); value != "" {
		*dest = value
	}
}

// Duration parses an integer count of unit from an environment variable
// (e.g., for milliseconds: unit = time.Millisecond).
func Duration(key string, dest *time.Duration, unit time.Duration) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = time.Duration(parsed) * unit
	return nil
}
