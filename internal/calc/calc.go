// Package calc implements the three CardValueLab calculators as pure
// functions over plain structs. Inputs are clamped into their documented
// ranges before use, so the functions never fail — same input always yields
// the same output, with no shared state between calls.
package calc

import "fmt"

// Tool identifies one of the calculators. It is a closed set: after
// ParseTool succeeds, a switch over the three constants is exhaustive.
type Tool string

const (
	ToolInterest        Tool = "interest" // credit-card interest payoff
	ToolPoints          Tool = "points"   // loyalty-points valuation
	ToolBalanceTransfer Tool = "bt"       // balance-transfer savings
)

// ParseTool validates a client-supplied tool name.
func ParseTool(s string) (Tool, error) {
	switch Tool(s) {
	case ToolInterest, ToolPoints, ToolBalanceTransfer:
		return Tool(s), nil
	}
	return "", fmt.Errorf("unknown tool %q", s)
}
