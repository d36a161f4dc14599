package reward

import (
	"github.com/shopspring/decimal"
)

const (
	hoursInDay  = 24
	daysInWeek  = 7
	daysInMonth = 30
	daysInYear  = 365
)

// Projection holds the estimated rewards of a coin for a reported hashrate.
type Projection struct {
	Coin             CoinType
	ReportedHashrate decimal.Decimal // H/s
	RewardPerHour    decimal.Decimal
	RewardPerDay     decimal.Decimal
	RewardPerWeek    decimal.Decimal
	RewardPerMonth   decimal.Decimal
	RewardPerYear    decimal.Decimal
}

// Calculator scales a provider baseline to a reported hashrate.
type Calculator struct {
	coin             CoinType
	baseHashrate     decimal.Decimal
	baseRewardPerDay decimal.Decimal
}

// NewCalculator checks the baseline invariants: the base hashrate must be
// positive and the base reward must not be negative.
func NewCalculator(coin CoinType, baseHashrate, baseRewardPerDay decimal.Decimal) (*Calculator, error) {
	if !baseHashrate.IsPositive() {
		return nil, newError(PreconditionViolation, "%s base hashrate must be positive, got %s", coin, baseHashrate)
	}
	if baseRewardPerDay.IsNegative() {
		return nil, newError(PreconditionViolation, "%s base reward per day must not be negative, got %s", coin, baseRewardPerDay)
	}
	return &Calculator{
		coin:             coin,
		baseHashrate:     baseHashrate,
		baseRewardPerDay: baseRewardPerDay,
	}, nil
}

// Calculate returns the estimated rewards for reportedHashrate (H/s).
// Divisions truncate toward zero so the estimate is never overstated.
func (c *Calculator) Calculate(reportedHashrate decimal.Decimal) (Projection, error) {
	if reportedHashrate.IsNegative() {
		return Projection{}, newError(UnsupportedInput, "reported hashrate must not be negative, got %s", reportedHashrate)
	}
	// "14e12" and "14000000000000" must truncate at the same scale
	perDay, err := truncDiv(integral(reportedHashrate).Mul(integral(c.baseRewardPerDay)), c.baseHashrate)
	if err != nil {
		return Projection{}, err
	}
	perHour, err := truncDiv(perDay, decimal.NewFromInt(hoursInDay))
	if err != nil {
		return Projection{}, err
	}
	return Projection{
		Coin:             c.coin,
		ReportedHashrate: reportedHashrate,
		RewardPerHour:    perHour,
		RewardPerDay:     perDay,
		RewardPerWeek:    perDay.Mul(decimal.NewFromInt(daysInWeek)),
		RewardPerMonth:   perDay.Mul(decimal.NewFromInt(daysInMonth)),
		RewardPerYear:    perDay.Mul(decimal.NewFromInt(daysInYear)),
	}, nil
}

// integral rewrites d without a positive exponent, so the number of
// fractional digits never drops below zero. The value is unchanged.
func integral(d decimal.Decimal) decimal.Decimal {
	if d.Exponent() <= 0 {
		return d
	}
	return decimal.NewFromBigInt(d.BigInt(), 0)
}

// truncDiv divides keeping the number of fractional digits of the dividend,
// discarding the rest of the quotient.
func truncDiv(dividend, divisor decimal.Decimal) (decimal.Decimal, error) {
	if divisor.IsZero() {
		return decimal.Decimal{}, newError(PreconditionViolation, "division of %s by zero", dividend)
	}
	q, _ := dividend.QuoRem(divisor, -dividend.Exponent())
	return q, nil
}
