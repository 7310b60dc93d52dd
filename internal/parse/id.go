package parse

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// ID parses a non-negative decimal identifier as used in URL paths.
func ID(raw string) (uint64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, errors.Newf("id is required")
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.Newf("invalid id %q", raw)
	}
	return id, nil
}

// Nanos converts an integer nanosecond count since the Unix epoch to a UTC time.
func Nanos(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}
