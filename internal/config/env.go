package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

func envString(dst *string, name string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

// envInt ignores values that do not parse; validation reports the result.
func envInt(dst *int, name string) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// checkDurations validates name/value pairs in order and reports the first
// value that does not parse.
func checkDurations(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if _, err := time.ParseDuration(pairs[i+1]); err != nil {
			return fmt.Errorf("invalid %s: %w", pairs[i], err)
		}
	}
	return nil
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
