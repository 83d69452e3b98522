package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Day is the length of one whitelist day. Expiry math is exact: 30 days is
// 2,592,000,000ms.
const Day = 24 * time.Hour

// MaxWhitelistDays is the longest grant whose length still fits in a
// time.Duration.
const MaxWhitelistDays = int(math.MaxInt64 / int64(Day))

// WhitelistState is the result of a whitelist status lookup.
type WhitelistState int

const (
	WhitelistAbsent WhitelistState = iota
	WhitelistExpired
	WhitelistActive
)

func (s WhitelistState) String() string {
	switch s {
	case WhitelistAbsent:
		return "absent"
	case WhitelistExpired:
		return "expired"
	case WhitelistActive:
		return "active"
	default:
		return fmt.Sprintf("WhitelistState(%d)", int(s))
	}
}

// WhitelistStatus is what a status lookup returns. Entry is only set when
// State is WhitelistActive.
type WhitelistStatus struct {
	State WhitelistState
	Entry WhitelistEntry
}

// ValidateDays checks a grant duration.
func ValidateDays(days int) error {
	if days <= 0 {
		return fmt.Errorf("%w: duration must be a positive number of days, got %d", ErrValidation, days)
	}
	if days > MaxWhitelistDays {
		return fmt.Errorf("%w: duration must be at most %d days, got %d", ErrValidation, MaxWhitelistDays, days)
	}
	return nil
}

// ParseDays parses and validates a user-supplied grant duration.
func ParseDays(s string) (int, error) {
	days, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: duration %q is not a whole number of days", ErrValidation, s)
	}
	if err := ValidateDays(days); err != nil {
		return 0, err
	}
	return days, nil
}
