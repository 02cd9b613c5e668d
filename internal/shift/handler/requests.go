package handler

import (
	"net/url"
	"strings"
	"time"

	dErrors "tally/pkg/domain-errors"
)

// parsePeriod reads the required from/to query parameters as RFC 3339.
func parsePeriod(q url.Values) (time.Time, time.Time, error) {
	from, err := requiredTime(q, "from")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := requiredTime(q, "to")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func requiredTime(q url.Values, key string) (time.Time, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, key+" is required")
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, key+" must be an RFC 3339 timestamp")
	}
	return t.UTC(), nil
}
