package calc

import "github.com/cardvaluelab/backend/internal/format"

// PointsInputs are the raw user inputs for the points valuation.
// CPP is cents per point.
type PointsInputs struct {
	Points float64 `json:"points"`
	CPP    float64 `json:"cpp"`
}

// PointsOutputs is the valuation in dollars.
type PointsOutputs struct {
	Value float64 `json:"value"`
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
}

// Points values a points balance at the user's assumed cents-per-point rate.
// Low and High are a fixed typical-market range (0.8¢–1.5¢ per point) that
// deliberately does not scale with the user's CPP input: it is an
// independent market signal, not a confidence interval around Value.
func Points(in PointsInputs) PointsOutputs {
	points := format.Clamp(in.Points, 0, 1e12)
	cpp := format.Clamp(in.CPP, 0, 10)

	return PointsOutputs{
		Value: points * (cpp / 100),
		Low:   points * 0.008,
		High:  points * 0.015,
	}
}
