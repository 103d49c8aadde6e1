package calc

import (
	"math"

	"github.com/cardvaluelab/backend/internal/format"
)

// BTInputs are the raw user inputs for the balance-transfer estimate.
type BTInputs struct {
	Balance     float64 `json:"balance"`
	APRCurrent  float64 `json:"aprCurrent"`
	Payment     float64 `json:"payment"`
	FeePct      float64 `json:"feePct"`      // transfer fee, typically 3–5
	PromoMonths float64 `json:"promoMonths"` // 0% promo window, 12/15/18/21
}

// BTOutputs is the savings estimate. SavingsEstimate can be negative when
// the transfer fee exceeds the interest avoided; callers display that as a
// warning.
type BTOutputs struct {
	MonthlyRate         float64 `json:"monthlyRate"`
	RemainingAfterPromo float64 `json:"remainingAfterPromo"`
	AvgBalance          float64 `json:"avgBalance"`
	InterestEstimate    float64 `json:"interestEstimate"`
	FeeAmount           float64 `json:"feeAmount"`
	SavingsEstimate     float64 `json:"savingsEstimate"`
}

// BalanceTransfer estimates the interest a 0% promo window would avoid,
// less the transfer fee. The interest estimate uses a linear approximation
// of the average outstanding balance over the promo window rather than an
// exact amortization integral; the fee is charged on the original balance.
func BalanceTransfer(in BTInputs) BTOutputs {
	balance := format.Clamp(in.Balance, 0, 1e9)
	aprCurrent := format.Clamp(in.APRCurrent, 0, 60)
	payment := format.Clamp(in.Payment, 0, 1e9)
	feePct := format.Clamp(in.FeePct, 0, 10)
	promoMonths := format.Clamp(in.PromoMonths, 1, 36)

	monthlyRate := aprCurrent / 100 / 12

	remainingAfterPromo := math.Max(0, balance-payment*promoMonths)
	avgBalance := (balance + remainingAfterPromo) / 2
	interestEstimate := avgBalance * monthlyRate * promoMonths

	feeAmount := balance * (feePct / 100)

	return BTOutputs{
		MonthlyRate:         monthlyRate,
		RemainingAfterPromo: remainingAfterPromo,
		AvgBalance:          avgBalance,
		InterestEstimate:    interestEstimate,
		FeeAmount:           feeAmount,
		SavingsEstimate:     interestEstimate - feeAmount,
	}
}
