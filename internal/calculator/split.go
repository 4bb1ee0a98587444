package calculator

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwallet/internal/models"
)

// moneyPlaces is the number of fractional digits every share carries.
const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Option tunes ComputeShares.
type Option func(*options)

type options struct {
	strictTotals bool
}

// WithStrictTotals requires EXACT values to sum to the expense amount and
// PERCENT values to sum to 100. Without it both are accepted as given.
func WithStrictTotals() Option {
	return func(o *options) { o.strictTotals = true }
}

// strategyFunc computes one share per beneficiary from already-parsed values.
type strategyFunc func(amount decimal.Decimal, n int, values []decimal.Decimal, o options) ([]decimal.Decimal, error)

type strategySpec struct {
	needsValues bool
	compute     strategyFunc
}

var strategies = map[models.Strategy]strategySpec{
	models.StrategyEqual:   {needsValues: false, compute: equalShares},
	models.StrategyExact:   {needsValues: true, compute: exactShares},
	models.StrategyPercent: {needsValues: true, compute: percentShares},
}

// ComputeShares divides amount among beneficiaries under strategy and returns
// each beneficiary's share owed to payer, in beneficiary order.
//
// rawValues must hold one decimal string per beneficiary for EXACT and PERCENT
// and is ignored for EQUAL. Every failure is a *models.ValidationError.
func ComputeShares(amount decimal.Decimal, payer string, beneficiaries []string, strategy models.Strategy, rawValues []string, opts ...Option) ([]models.Split, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if !amount.IsPositive() {
		return nil, models.NewValidationError("amount", fmt.Sprintf("must be positive, got %s", amount.String()))
	}
	if !amount.Equal(amount.Round(moneyPlaces)) {
		return nil, models.NewValidationError("amount", fmt.Sprintf("%s has more than two decimal places", amount.String()))
	}
	if err := validateBeneficiaries(payer, beneficiaries); err != nil {
		return nil, err
	}

	spec, ok := strategies[strategy]
	if !ok {
		return nil, models.NewValidationError("strategy", fmt.Sprintf("unsupported strategy %s", strategy))
	}

	var values []decimal.Decimal
	if spec.needsValues {
		var err error
		values, err = parseValues(rawValues, len(beneficiaries))
		if err != nil {
			return nil, err
		}
	}

	amounts, err := spec.compute(amount, len(beneficiaries), values, o)
	if err != nil {
		return nil, err
	}

	splits := make([]models.Split, len(beneficiaries))
	for i, b := range beneficiaries {
		if !amounts[i].IsPositive() {
			return nil, models.NewValidationError("values",
				fmt.Sprintf("share for %s rounds to %s", b, amounts[i].StringFixed(moneyPlaces)))
		}
		splits[i] = models.Split{Beneficiary: b, Amount: amounts[i]}
	}
	return splits, nil
}

// ParseValues splits a comma-separated list such as "30, 60" into raw values.
// An empty string yields no values.
func ParseValues(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// Total sums the amounts of a share map.
func Total(splits []models.Split) decimal.Decimal {
	sum := decimal.Zero
	for _, s := range splits {
		sum = sum.Add(s.Amount)
	}
	return sum
}

func validateBeneficiaries(payer string, beneficiaries []string) error {
	if payer == "" {
		return models.NewValidationError("payer", "must not be empty")
	}
	if len(beneficiaries) == 0 {
		return models.NewValidationError("beneficiaries", "must have at least one beneficiary")
	}
	seen := make(map[string]bool, len(beneficiaries))
	for _, b := range beneficiaries {
		switch {
		case b == "":
			return models.NewValidationError("beneficiaries", "identity must not be empty")
		case b == payer:
			return models.NewValidationError("beneficiaries", fmt.Sprintf("payer %s cannot be a beneficiary", payer))
		case seen[b]:
			return models.NewValidationError("beneficiaries", fmt.Sprintf("duplicate beneficiary %s", b))
		}
		seen[b] = true
	}
	return nil
}

func parseValues(raw []string, n int) ([]decimal.Decimal, error) {
	if len(raw) != n {
		return nil, models.NewValidationError("values",
			fmt.Sprintf("got %d values for %d beneficiaries", len(raw), n))
	}
	values := make([]decimal.Decimal, n)
	for i, r := range raw {
		v, err := decimal.NewFromString(strings.TrimSpace(r))
		if err != nil {
			return nil, models.NewValidationError("values", fmt.Sprintf("cannot parse %q as a decimal", r))
		}
		if !v.IsPositive() {
			return nil, models.NewValidationError("values", fmt.Sprintf("value %q must be positive", r))
		}
		values[i] = v
	}
	return values, nil
}

// equalShares gives every beneficiary amount/(N+1), rounded half-up.
// The payer's own portion is retained, not transferred.
func equalShares(amount decimal.Decimal, n int, _ []decimal.Decimal, _ options) ([]decimal.Decimal, error) {
	share := amount.DivRound(decimal.NewFromInt(int64(n+1)), moneyPlaces)
	out := make([]decimal.Decimal, n)
	for i := range out {
		out[i] = share
	}
	return out, nil
}

func exactShares(amount decimal.Decimal, _ int, values []decimal.Decimal, o options) ([]decimal.Decimal, error) {
	if o.strictTotals {
		if sum := decimal.Sum(decimal.Zero, values...); !sum.Equal(amount) {
			return nil, models.NewValidationError("values",
				fmt.Sprintf("exact values sum to %s, expense is %s", sum.String(), amount.String()))
		}
	}
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = v.Round(moneyPlaces)
	}
	return out, nil
}

func percentShares(amount decimal.Decimal, _ int, values []decimal.Decimal, o options) ([]decimal.Decimal, error) {
	if o.strictTotals {
		if sum := decimal.Sum(decimal.Zero, values...); !sum.Equal(hundred) {
			return nil, models.NewValidationError("values",
				fmt.Sprintf("percentages sum to %s, want 100", sum.String()))
		}
	}
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = v.Mul(amount).DivRound(hundred, moneyPlaces)
	}
	return out, nil
}
