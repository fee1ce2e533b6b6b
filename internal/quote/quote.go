package quote

import (
	"github.com/shopspring/decimal"
)

// Billing frequencies used on emitted line items.
const (
	FrequencyMonthly = "monthly"
	FrequencyYearly  = "yearly"
	FrequencyOneTime = "one_time"
)

// Config carries the deal-owned inputs that drive pricing. Counts default to
// zero and selectors to the empty string when the deal property is absent or
// unparsable; decoding lives in the deal package.
type Config struct {
	Bundles            []string `json:"bundles"`
	NumEmployees       int      `json:"numEmployees"`
	NumOfficeEmployees int      `json:"numOfficeEmployees"`
	NumLocations       int      `json:"numLocations"`
	NumAdvancedClocks  int      `json:"numAdvancedClocks"`
	NumStandardClocks  int      `json:"numStandardClocks"`
	NumIVREmployees    int      `json:"numIVREmployees"`
	PayrollType        string   `json:"payrollType"`
	PayrollFrequency   string   `json:"payrollFrequency"`
	SchedulingBillType string   `json:"schedulingBillType"`
}

// LineItem is one priced row of a quote. Recomputed on every configuration
// change and never persisted locally; the CRM copy is the one that counts.
type LineItem struct {
	ProductID        string          `json:"productId,omitempty"`
	Name             string          `json:"name"`
	UnitCost         decimal.Decimal `json:"unitCost"`
	Quantity         int             `json:"quantity"`
	Amount           decimal.Decimal `json:"amount"`
	Frequency        string          `json:"frequency"`
	ExcludeFromTotal bool            `json:"excludeFromTotal,omitempty"`
}

// Summary aggregates line-item amounts per billing frequency. Items flagged
// exclude-from-total are priced and displayed but left out of these totals.
type Summary struct {
	Monthly decimal.Decimal `json:"monthly"`
	Yearly  decimal.Decimal `json:"yearly"`
	OneTime decimal.Decimal `json:"oneTime"`
}

// Summarize computes per-frequency totals for the provided items.
func Summarize(items []LineItem) Summary {
	s := Summary{
		Monthly: decimal.Zero,
		Yearly:  decimal.Zero,
		OneTime: decimal.Zero,
	}
	for _, item := range items {
		if item.ExcludeFromTotal {
			continue
		}
		switch item.Frequency {
		case FrequencyMonthly:
			s.Monthly = s.Monthly.Add(item.Amount)
		case FrequencyYearly:
			s.Yearly = s.Yearly.Add(item.Amount)
		default:
			s.OneTime = s.OneTime.Add(item.Amount)
		}
	}
	return s
}
