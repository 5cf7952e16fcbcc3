package payout

// FeeTable decides the service fee rate charged against a stakeholder's
// gross reward. Rates are fractions in [0,1]. The table is built once at
// startup and never mutated, so it is shared without locking.
type FeeTable struct {
	standard float64
	specials map[string]float64
	waived   map[string]struct{}
}

// NewFeeTable builds the total fee policy: per-address special rates win,
// then supporters/founders/owners pay nothing, and every other address
// pays the standard rate.
func NewFeeTable(standard float64, specials map[string]float64, supporters []string, founders, owners map[string]float64) *FeeTable {

	waived := make(map[string]struct{}, len(supporters)+len(founders)+len(owners))

	for _, addr := range supporters {
		waived[addr] = struct{}{}
	}

	for addr := range founders {
		waived[addr] = struct{}{}
	}

	for addr := range owners {
		waived[addr] = struct{}{}
	}

	sp := make(map[string]float64, len(specials))
	for addr, rate := range specials {
		sp[addr] = rate
	}

	return &FeeTable{
		standard: standard,
		specials: sp,
		waived:   waived,
	}
}

// Rate is total: it returns a fee fraction for every possible address.
func (f *FeeTable) Rate(address string) float64 {

	if rate, ok := f.specials[address]; ok {
		return rate
	}

	if _, ok := f.waived[address]; ok {
		return 0
	}

	return f.standard
}
