// Package deal owns the read/write-through copy of deal configuration. All
// pricing inputs live as CRM deal properties; this package decodes them into
// a quote.Config and encodes edits back at the boundary.
package deal

import (
	"strings"

	"github.com/noah-isme/backend-quotes/internal/common"
	"github.com/noah-isme/backend-quotes/internal/quote"
)

// Deal property names carrying pricing configuration.
const (
	PropBundles            = "line_item_products"
	PropNumEmployees       = "number_of_employees"
	PropNumOfficeEmployees = "number_of_office_employees"
	PropNumEINs            = "number_of_eins"
	PropNumAdvancedClocks  = "no__of_advanced_clocks_requested"
	PropNumStandardClocks  = "no__of_standard_clocks_requested"
	PropNumIVREmployees    = "num_ivr_employees"
	PropPayrollType        = "payroll_type"
	PropPayrollFrequency   = "payroll_frequency"
	PropSchedulingBillType = "scheduling_bill_type"
)

// configFields is every property fetched when loading a configuration.
var configFields = []string{
	PropBundles,
	PropNumEmployees,
	PropNumOfficeEmployees,
	PropNumEINs,
	PropNumAdvancedClocks,
	PropNumStandardClocks,
	PropNumIVREmployees,
	PropPayrollType,
	PropPayrollFrequency,
	PropSchedulingBillType,
}

// multiValueSep joins set-valued properties into the single delimited string
// the CRM stores. The join/split encoding lives here and nowhere else.
const multiValueSep = ";"

// decodeConfig maps raw property strings onto a quote.Config. Missing or
// unparsable counts read as zero, missing selectors as the empty string.
func decodeConfig(props map[string]string) quote.Config {
	return quote.Config{
		Bundles:            SplitMultiValue(props[PropBundles]),
		NumEmployees:       common.AtoiDefault(props[PropNumEmployees], 0),
		NumOfficeEmployees: common.AtoiDefault(props[PropNumOfficeEmployees], 0),
		NumLocations:       common.AtoiDefault(props[PropNumEINs], 0),
		NumAdvancedClocks:  common.AtoiDefault(props[PropNumAdvancedClocks], 0),
		NumStandardClocks:  common.AtoiDefault(props[PropNumStandardClocks], 0),
		NumIVREmployees:    common.AtoiDefault(props[PropNumIVREmployees], 0),
		PayrollType:        strings.TrimSpace(props[PropPayrollType]),
		PayrollFrequency:   strings.TrimSpace(props[PropPayrollFrequency]),
		SchedulingBillType: strings.TrimSpace(props[PropSchedulingBillType]),
	}
}

// SplitMultiValue decodes a semicolon-delimited property into its values,
// dropping empty segments.
func SplitMultiValue(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, multiValueSep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// JoinMultiValue encodes a value set as one delimited property string.
func JoinMultiValue(values []string) string {
	return strings.Join(values, multiValueSep)
}
