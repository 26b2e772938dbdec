package normalize

import (
	"database/sql"
	"fmt"
	"time"

	"dbmirror/internal/core"
)

// DefaultFallbackDate replaces zero-date values during data copy.
const DefaultFallbackDate = "1971-01-01"

const (
	zeroDateTime = "0000-00-00 00:00:00"
	zeroDate     = "0000-00-00"
)

// IsZeroDate reports whether v is one of the zero-date sentinels.
func IsZeroDate(v string) bool {
	return v == zeroDateTime || v == zeroDate
}

// ValidateFallbackDate checks that date is a valid YYYY-MM-DD literal.
func ValidateFallbackDate(date string) error {
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return fmt.Errorf("fallback date %q is not a valid YYYY-MM-DD date: %w", date, err)
	}
	return nil
}

// Row returns a copy of row where every value equal to a zero-date sentinel is replaced by
// fallback. NULL and every other value are kept as they are.
func Row(row core.Row, fallback string) core.Row {
	out := row.Clone()
	for i, v := range out.Values {
		if v.Valid && IsZeroDate(v.String) {
			out.Values[i] = sql.NullString{String: fallback, Valid: true}
		}
	}
	return out
}
