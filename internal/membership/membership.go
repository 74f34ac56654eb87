// Package membership holds loyalty program rules: membership periods and
// benefit validation.
package membership

import (
	"errors"
	"fmt"
	"time"

	"github.com/HanzKay/KrasandApps-V1/internal/enum"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidBenefit  = errors.New("invalid benefit")
)

var hundred = decimal.NewFromInt(100)

// Benefit is a program benefit as stored on programs and membership snapshots.
type Benefit struct {
	BenefitType string          `json:"benefit_type"`
	Value       decimal.Decimal `json:"value"`
	Description string          `json:"description"`
}

// ValidateDuration requires a known duration type and, unless lifetime, a
// positive value.
func ValidateDuration(durationType string, value int) error {
	if !enum.IsDurationType(durationType) {
		return fmt.Errorf("%w: unknown duration_type %q", ErrInvalidDuration, durationType)
	}
	if durationType != enum.DurationLifetime && value < 1 {
		return fmt.Errorf("%w: duration_value must be >= 1", ErrInvalidDuration)
	}
	return nil
}

// EndDate computes when a membership starting at start lapses. Months count
// as 30 days and years as 365. Lifetime memberships have no end date.
func EndDate(start time.Time, durationType string, value int) (*time.Time, error) {
	if err := ValidateDuration(durationType, value); err != nil {
		return nil, err
	}

	var days int
	switch durationType {
	case enum.DurationLifetime:
		return nil, nil
	case enum.DurationDays:
		days = value
	case enum.DurationMonths:
		days = value * 30
	case enum.DurationYears:
		days = value * 365
	}
	end := start.AddDate(0, 0, days)
	return &end, nil
}

// IsExpired reports whether a membership with the given end date has lapsed.
func IsExpired(end *time.Time, now time.Time) bool {
	return end != nil && end.Before(now)
}

func ValidateBenefits(benefits []Benefit) error {
	for i, b := range benefits {
		if !enum.IsBenefitType(b.BenefitType) {
			return fmt.Errorf("%w: benefits[%d]: unknown benefit_type %q", ErrInvalidBenefit, i, b.BenefitType)
		}
		if b.Value.IsNegative() || b.Value.GreaterThan(hundred) {
			return fmt.Errorf("%w: benefits[%d]: value must be between 0 and 100", ErrInvalidBenefit, i)
		}
	}
	return nil
}
