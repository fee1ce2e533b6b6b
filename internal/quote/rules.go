package quote

import (
	"github.com/shopspring/decimal"
)

// Bundle is a customer-facing product grouping selectable on a deal.
type Bundle string

// Known bundles.
const (
	BundlePayroll          Bundle = "Payroll"
	BundleHR               Bundle = "HR"
	BundleTimeAttendance   Bundle = "Time and Attendance"
	BundleScheduling       Bundle = "Scheduling"
	BundleAdvancedBenefits Bundle = "Advanced Benefits"
	BundleBenefitsACA      Bundle = "Benefits & ACA"
	BundleOnboarding       Bundle = "Onboarding New Hire (HHA Industry)"
	BundleIVR              Bundle = "IVR"
)

// canonicalOrder fixes the evaluation order of selected bundles. Output order
// must never depend on the order the user clicked things in.
var canonicalOrder = []Bundle{
	BundlePayroll,
	BundleHR,
	BundleTimeAttendance,
	BundleScheduling,
	BundleAdvancedBenefits,
	BundleBenefitsACA,
	BundleOnboarding,
	BundleIVR,
}

// productIDs maps catalog product names to their CRM object ids. Ids here are
// stable per portal; "N/A" entries have no catalog backing yet and price at
// zero until the product is created.
var productIDs = map[string]string{
	"Payroll":                              "1442527619",
	"Payroll Base Fee":                     "1561785514",
	"Per check":                            "1702983428",
	"Base Fee":                             "1702983429",
	"1095":                                 "1484663457",
	"W2/1099":                              "1484663458",
	"Additional tax filing":                "1484663456",
	"Initial Implementation":               "1442553935",
	"Additional Implementation":            "1442554441",
	"Garnishment":                          "1442560886",
	"New Hire Reporting":                   "1442554880",
	"Professional Services Per Hour":       "1442553937",
	"HR Base Fee":                          "1561785516",
	"HR Premium":                           "1442524175",
	"Benefits & ACA Base Fee":              "1561785517",
	"Benefits & ACA Administration":        "1442553929",
	"Advanced Benefits & ACA":              "1442524175",
	"Scheduling":                           "1788055941",
	"Scheduling Base Fee":                  "2274030005",
	"Scheduling Location":                  "N/A",
	"Time and Attendance Base Fee":         "1442553931",
	"Clock Configuration":                  "1442554442",
	"Clock Hosting":                        "1484660233",
	"Advanced Clock":                       "1484660241",
	"Standard Clock":                       "1484660242",
	"Onboarding Per New Hire (HHA Industry)": "1442562842",
	"IVR-Set UP":                           "1216469367",
	"IVR - Per employee ($50 base fee)":    "1216473728",
}

// fallbackProducts is the generic expansion for bundle names that carry no
// dedicated rule list: each named product prices at quantity 1; names missing
// from productIDs are skipped silently.
var fallbackProducts = map[string][]string{
	"Payroll":                            {"Payroll"},
	"Benefits & ACA":                     {"Benefits & ACA Base Fee", "Benefits & ACA Administration"},
	"Advanced Benefits":                  {"Advanced Benefits & ACA"},
	"HR":                                 {"HR Premium", "HR Base Fee"},
	"Scheduling":                         {"Scheduling", "Scheduling Base Fee", "Scheduling Location"},
	"Time and Attendance":                {"Time and Attendance Base Fee", "Clock Configuration", "Clock Hosting", "Advanced Clock", "Standard Clock"},
	"Onboarding New Hire (HHA Industry)": {"Onboarding Per New Hire (HHA Industry)"},
	"Onboarding":                         {"Onboarding Per New Hire (HHA Industry)"}, // legacy deal property value
	"IVR":                                {"IVR-Set UP", "IVR - Per employee ($50 base fee)"},
}

// rule describes one priced line within a bundle: which catalog product to
// price (or a fixed synthetic cost), how many units, and any price transform.
// Rules evaluate in declaration order; base fees precede per-unit fees by
// convention.
type rule struct {
	product   string                                          // catalog product name; empty for synthetic items
	label     string                                          // display name; labelf overrides when set
	labelf    func(Config) string
	freq      string                                          // displayed billing frequency
	fixed     string                                          // synthetic unit cost for items with no catalog backing
	qty       func(Config) int                                // nil means quantity 1
	transform func(Config, decimal.Decimal) decimal.Decimal   // applied to the catalog price, never mutates it
	when      func(Config) bool                               // nil means always emit
	floor     string                                          // minimum unit cost, e.g. mandatory implementation fee
}

// implementationFloor is the minimum one-time charge for an initial
// implementation engagement regardless of the catalog price.
const implementationFloor = "3000"

// perCheckMultiplier annualises the displayed per-check rate for the selected
// payroll frequency. Unrecognised frequencies leave the rate untouched.
func perCheckMultiplier(frequency string) int64 {
	switch frequency {
	case "weekly":
		return 52
	case "biweekly":
		return 26
	case "semimonthly":
		return 24
	case "monthly":
		return 12
	default:
		return 1
	}
}

func employees(c Config) int       { return c.NumEmployees }
func officeEmployees(c Config) int { return c.NumOfficeEmployees }
func locations(c Config) int       { return c.NumLocations }
func ivrEmployees(c Config) int    { return c.NumIVREmployees }
func advancedClocks(c Config) int  { return c.NumAdvancedClocks }
func standardClocks(c Config) int  { return c.NumStandardClocks }
func totalClocks(c Config) int     { return c.NumAdvancedClocks + c.NumStandardClocks }

func hasClocks(c Config) bool         { return totalClocks(c) > 0 }
func hasAdvancedClocks(c Config) bool { return c.NumAdvancedClocks > 0 }
func hasStandardClocks(c Config) bool { return c.NumStandardClocks > 0 }

func payrollPEPM(c Config) bool     { return c.PayrollType == "pepm" }
func payrollPerCheck(c Config) bool { return c.PayrollType == "per_check" }

func perCheckTransform(c Config, price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(perCheckMultiplier(c.PayrollFrequency)))
}

func schedulingPerEmployee(c Config) bool { return c.SchedulingBillType == "per_employee" }
func schedulingPerLocation(c Config) bool { return c.SchedulingBillType == "per_location" }

// bundleRules declares the expansion of every known bundle.
var bundleRules = map[Bundle][]rule{
	BundlePayroll: {
		{product: "Payroll", label: "Payroll PEPM", freq: FrequencyMonthly, qty: employees, when: payrollPEPM},
		{product: "Payroll Base Fee", label: "Payroll Base Fee", freq: FrequencyMonthly, when: payrollPEPM},
		{product: "Per check", freq: FrequencyMonthly, qty: employees, when: payrollPerCheck, transform: perCheckTransform,
			labelf: func(c Config) string { return "Payroll Per Check (" + c.PayrollFrequency + ")" }},
		{product: "Base Fee", freq: FrequencyMonthly, when: payrollPerCheck,
			labelf: func(c Config) string { return "Payroll Base Fee (" + c.PayrollFrequency + ")" }},
		{product: "1095", label: "1095", freq: FrequencyYearly},
		{product: "Base Fee", label: "1095 Base Fee", freq: FrequencyYearly},
		{product: "W2/1099", label: "W2/1099", freq: FrequencyYearly},
		{product: "Base Fee", label: "W2/1099 Base Fee", freq: FrequencyYearly},
		{product: "Additional tax filing", label: "Additional Tax Filing", freq: FrequencyYearly},
		{product: "Initial Implementation", label: "Initial Implementation", freq: FrequencyOneTime, floor: implementationFloor},
		{product: "Additional Implementation", label: "Additional Implementation", freq: FrequencyOneTime},
		{product: "Garnishment", label: "Garnishment", freq: FrequencyOneTime},
		{product: "New Hire Reporting", label: "New Hire Reporting", freq: FrequencyOneTime},
		{product: "Professional Services Per Hour", label: "Professional Services Per Hour", freq: FrequencyOneTime},
	},
	BundleHR: {
		{product: "HR Base Fee", label: "HR Base Fee", freq: FrequencyMonthly},
		{product: "HR Premium", label: "HR Per Office Employee", freq: FrequencyMonthly, qty: officeEmployees},
	},
	BundleTimeAttendance: {
		{product: "Time and Attendance Base Fee", label: "Time & Attendance Base Fee", freq: FrequencyMonthly},
		{label: "Scheduling for Time & Attendance", freq: FrequencyMonthly, fixed: "5", qty: officeEmployees},
		{product: "Clock Configuration", label: "Clock Configuration", freq: FrequencyOneTime, qty: totalClocks, when: hasClocks},
		{product: "Clock Hosting", label: "Clock Hosting", freq: FrequencyMonthly, qty: totalClocks, when: hasClocks},
		{product: "Advanced Clock", label: "Advanced Clocks", freq: FrequencyOneTime, qty: advancedClocks, when: hasAdvancedClocks},
		{product: "Standard Clock", label: "Standard Clocks", freq: FrequencyOneTime, qty: standardClocks, when: hasStandardClocks},
	},
	BundleScheduling: {
		{product: "Scheduling Base Fee", label: "Scheduling Base Fee", freq: FrequencyMonthly},
		{product: "Scheduling", label: "Scheduling Per Employee", freq: FrequencyMonthly, qty: employees, when: schedulingPerEmployee},
		{product: "Scheduling Location", label: "Scheduling Per Location", freq: FrequencyMonthly, qty: locations, when: schedulingPerLocation},
	},
	BundleAdvancedBenefits: {
		{product: "Benefits & ACA Base Fee", label: "Advanced Benefits Base Fee", freq: FrequencyMonthly},
		{product: "Advanced Benefits & ACA", label: "Advanced Benefits & ACA Per Employee", freq: FrequencyMonthly, qty: employees},
	},
	BundleBenefitsACA: {
		{product: "Benefits & ACA Base Fee", label: "Benefits & ACA Base Fee", freq: FrequencyMonthly},
		{product: "Benefits & ACA Administration", label: "Benefits & ACA Per Employee", freq: FrequencyMonthly, qty: employees},
	},
	BundleOnboarding: {
		{product: "Onboarding Per New Hire (HHA Industry)", label: "Onboarding Per New Hire (HHA Industry)", freq: FrequencyOneTime},
	},
	BundleIVR: {
		{label: "IVR Base Fee", freq: FrequencyMonthly, fixed: "50"},
		{product: "IVR-Set UP", label: "IVR Setup Fee", freq: FrequencyOneTime},
		{product: "IVR - Per employee ($50 base fee)", label: "IVR Per Employee", freq: FrequencyMonthly, qty: ivrEmployees},
	},
}
