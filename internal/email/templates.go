package email

import (
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/cardvaluelab/backend/internal/calc"
	"github.com/cardvaluelab/backend/internal/format"
)

// ResultPayload is the resolved calculator payload: the inputs the user
// entered and the outputs the browser-side calculator produced. Both maps are
// non-nil after ResolvePayload.
type ResultPayload struct {
	Inputs  map[string]any
	Outputs map[string]any
}

// ResolvePayload normalises the two payload shapes clients send — flat
// {tool, inputs, outputs} or nested {payload: {inputs, outputs}} — into one
// value. It is called once at the handler boundary; templates never see the
// raw shape. Missing or malformed parts resolve to empty maps, never nil.
func ResolvePayload(raw json.RawMessage) ResultPayload {
	var outer struct {
		Tool    string         `json:"tool"`
		Inputs  map[string]any `json:"inputs"`
		Outputs map[string]any `json:"outputs"`
		Payload *struct {
			Inputs  map[string]any `json:"inputs"`
			Outputs map[string]any `json:"outputs"`
		} `json:"payload"`
	}

	p := ResultPayload{}
	if err := json.Unmarshal(raw, &outer); err == nil {
		switch {
		case outer.Tool != "":
			p.Inputs, p.Outputs = outer.Inputs, outer.Outputs
		case outer.Payload != nil:
			p.Inputs, p.Outputs = outer.Payload.Inputs, outer.Payload.Outputs
		}
	}
	if p.Inputs == nil {
		p.Inputs = map[string]any{}
	}
	if p.Outputs == nil {
		p.Outputs = map[string]any{}
	}
	return p
}

// ─── TEMPLATE HELPERS ─────────────────────────────────────────────────────────

// money formats an untrusted payload value as US currency. Anything that
// doesn't coerce to a finite number renders as "$0.00".
func money(v any) string {
	return format.Money(format.ToNumber(v))
}

// count formats an untrusted payload value as a whole number with grouping.
func count(v any) string {
	return format.Number(format.ToNumber(v), 0)
}

// esc renders an untrusted payload value as escaped plain text. Numbers keep
// their natural JSON representation ("18", "1.5"); everything else goes
// through fmt.
func esc(v any) string {
	var s string
	switch t := v.(type) {
	case nil:
		s = ""
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		s = t.String()
	default:
		s = fmt.Sprint(t)
	}
	return html.EscapeString(s)
}

// toolPath maps each calculator to its page on the site.
func toolPath(tool calc.Tool) string {
	switch tool {
	case calc.ToolInterest:
		return "/tools/interest-calculator/"
	case calc.ToolPoints:
		return "/tools/points-value-calculator/"
	case calc.ToolBalanceTransfer:
		return "/tools/balance-transfer-savings/"
	}
	return "/"
}

const defaultSiteURL = "https://cardvaluelab.com"

func toolLink(siteURL string, tool calc.Tool) string {
	if siteURL == "" {
		siteURL = defaultSiteURL
	}
	return strings.TrimRight(siteURL, "/") + toolPath(tool)
}

// ─── TEMPLATES ────────────────────────────────────────────────────────────────

// BuildResultsEmail renders the subject and HTML body for one calculator
// result. tool must already be validated — the switch is exhaustive over the
// calc.Tool constants.
func BuildResultsEmail(tool calc.Tool, p ResultPayload, siteURL string) (subject, htmlBody string) {
	link := toolLink(siteURL, tool)

	switch tool {
	case calc.ToolInterest:
		return "Your Credit Card Interest Breakdown (CardValueLab)",
			interestHTML(p, link)
	case calc.ToolPoints:
		return "Your Points Value Estimate (CardValueLab)",
			pointsHTML(p, link)
	case calc.ToolBalanceTransfer:
		return "Your Balance Transfer Savings Estimate (CardValueLab)",
			transferHTML(p, link)
	}
	// Unreachable after ParseTool; the compiler needs a return.
	return "", ""
}

const footerHTML = `<p style="font-size:12px;color:#6b7280">Educational estimate only. Not financial advice.</p>`

func rerunHTML(link string) string {
	return fmt.Sprintf(`<p>Re-run the calculator anytime: <a href="%s">%s</a></p>`, link, link)
}

func interestHTML(p ResultPayload, link string) string {
	// The summary block depends on feasibility: an infeasible payment gets a
	// warning with the minimum payment needed instead of a payoff summary.
	var summary string
	if feasible, ok := p.Outputs["feasible"].(bool); ok && !feasible {
		summary = fmt.Sprintf(`<p style="color:#b91c1c"><strong>Warning:</strong> At this payment, your balance won't decrease.</p>
  <p>Minimum payment to reduce the balance: <strong>%s</strong></p>`,
			money(p.Outputs["minPaymentToReduce"]))
	} else {
		summary = fmt.Sprintf(`<p><strong>Payoff time:</strong> %s months<br/>
     <strong>Total interest:</strong> %s<br/>
     <strong>Total paid:</strong> %s</p>`,
			count(p.Outputs["months"]),
			money(p.Outputs["totalInterest"]),
			money(p.Outputs["totalPaid"]))
	}

	return fmt.Sprintf(`<div style="font-family:Arial,sans-serif; line-height:1.5">
  <h2>Your Interest Breakdown</h2>
  <p><strong>Balance:</strong> %s<br/>
     <strong>APR:</strong> %s%%<br/>
     <strong>Monthly payment:</strong> %s</p>
  %s
  %s
  %s
</div>`,
		money(p.Inputs["balance"]),
		esc(p.Inputs["apr"]),
		money(p.Inputs["payment"]),
		summary,
		rerunHTML(link),
		footerHTML)
}

func pointsHTML(p ResultPayload, link string) string {
	return fmt.Sprintf(`<div style="font-family:Arial,sans-serif; line-height:1.5">
  <h2>Your Points Value Estimate</h2>
  <p><strong>Points:</strong> %s<br/>
     <strong>Assumed value:</strong> %s&cent; per point</p>
  <p><strong>Estimated value:</strong> %s<br/>
     <strong>Typical range:</strong> %s &ndash; %s</p>
  %s
  %s
</div>`,
		count(p.Inputs["points"]),
		esc(p.Inputs["cpp"]),
		money(p.Outputs["value"]),
		money(p.Outputs["low"]),
		money(p.Outputs["high"]),
		rerunHTML(link),
		footerHTML)
}

func transferHTML(p ResultPayload, link string) string {
	return fmt.Sprintf(`<div style="font-family:Arial,sans-serif; line-height:1.5">
  <h2>Your Balance Transfer Estimate</h2>
  <p><strong>Balance:</strong> %s<br/>
     <strong>Current APR:</strong> %s%%<br/>
     <strong>Monthly payment:</strong> %s<br/>
     <strong>Promo months:</strong> %s<br/>
     <strong>BT fee:</strong> %s%% (%s)</p>
  <p><strong>Estimated savings after fee:</strong> %s<br/>
     <strong>Remaining after promo:</strong> %s</p>
  %s
  %s
</div>`,
		money(p.Inputs["balance"]),
		esc(p.Inputs["aprCurrent"]),
		money(p.Inputs["payment"]),
		esc(p.Inputs["promoMonths"]),
		esc(p.Inputs["feePct"]),
		money(p.Outputs["feeAmount"]),
		money(p.Outputs["savingsEstimate"]),
		money(p.Outputs["remainingAfterPromo"]),
		rerunHTML(link),
		footerHTML)
}
