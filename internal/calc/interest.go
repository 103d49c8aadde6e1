package calc

import (
	"math"

	"github.com/cardvaluelab/backend/internal/format"
)

// InterestInputs are the raw user inputs for the payoff calculator.
// Balance and payment are dollars, APR is a yearly percentage.
type InterestInputs struct {
	Balance float64 `json:"balance"`
	APR     float64 `json:"apr"`
	Payment float64 `json:"payment"`
}

// InterestOutputs is the payoff breakdown.
//
// When Feasible is false the payment does not outpace monthly interest and
// the payoff fields are zero; MinPaymentToReduce is the smallest payment
// (one dollar above the monthly accrual) that would make progress.
type InterestOutputs struct {
	MonthlyRate        float64 `json:"monthlyRate"`
	Feasible           bool    `json:"feasible"`
	MinPaymentToReduce float64 `json:"minPaymentToReduce"`
	Months             int     `json:"months"`
	TotalPaid          float64 `json:"totalPaid"`
	TotalInterest      float64 `json:"totalInterest"`
}

// Interest computes how long a fixed monthly payment takes to clear a
// revolving balance, using the closed-form amortization period count
//
//	N = -ln(1 - r·B/P) / ln(1+r)
//
// rounded to the nearest month and floored at 1. The formula is only
// evaluated when the feasibility gate holds (payment strictly above the
// monthly accrual), which keeps its argument inside (0, 1].
func Interest(in InterestInputs) InterestOutputs {
	balance := format.Clamp(in.Balance, 0, 1e9)
	apr := format.Clamp(in.APR, 0, 60)
	payment := format.Clamp(in.Payment, 0, 1e9)

	monthlyRate := apr / 100 / 12
	minPaymentToReduce := balance*monthlyRate + 1
	feasible := payment > balance*monthlyRate && payment > 0

	if balance == 0 {
		return InterestOutputs{
			MonthlyRate:        monthlyRate,
			Feasible:           true,
			MinPaymentToReduce: minPaymentToReduce,
		}
	}
	if !feasible {
		return InterestOutputs{
			MonthlyRate:        monthlyRate,
			Feasible:           false,
			MinPaymentToReduce: minPaymentToReduce,
		}
	}

	var months int
	if monthlyRate == 0 {
		// Analytic limit of the closed form as r → 0: N = B/P.
		months = int(math.Round(balance / payment))
	} else {
		inner := 1 - monthlyRate*balance/payment
		months = int(math.Round(-math.Log(inner) / math.Log(1+monthlyRate)))
	}
	if months < 1 {
		months = 1
	}

	totalPaid := float64(months) * payment
	totalInterest := math.Max(0, totalPaid-balance)

	return InterestOutputs{
		MonthlyRate:        monthlyRate,
		Feasible:           true,
		MinPaymentToReduce: minPaymentToReduce,
		Months:             months,
		TotalPaid:          totalPaid,
		TotalInterest:      totalInterest,
	}
}
