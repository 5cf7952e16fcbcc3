package payout

import "math"

type Kind string

const (
	KindBaker     Kind = "B"
	KindOwner     Kind = "O"
	KindFounder   Kind = "F"
	KindDelegator Kind = "D"

	// KindExit marks the shutdown sentinel. It is a control message,
	// never a real payment, and must never reach the payment log.
	KindExit Kind = "exit"
)

// Payment is a single transfer owed to one stakeholder for one cycle.
// Monetary fields are mutez; Ratio is the stakeholder's fractional share
// rounded to 6 decimal places.
type Payment struct {
	Address string  `json:"a"`
	Cycle   int     `json:"c"`
	Amount  int64   `json:"p"` // net payment, reward minus fee
	Fee     int64   `json:"f"` // service fee withheld
	Kind    Kind    `json:"t"`
	Ratio   float64 `json:"r"`
	Reward  int64   `json:"g"` // gross share before fee
}

// ExitPayment returns the sentinel used to wake and terminate an executor.
func ExitPayment() Payment {
	return Payment{Kind: KindExit}
}

func (p Payment) IsExit() bool {
	return p.Kind == KindExit
}

// RewardRecord is the raw, immutable per-cycle data fetched from the chain:
// the total unfrozen rewards plus the stake breakdown used to split them.
type RewardRecord struct {
	Baker          string             `json:"b"`
	Cycle          int                `json:"c"`
	TotalRewards   int64              `json:"tr"` // block + fee rewards, mutez
	StakingBalance int64              `json:"sb"`
	Ratios         map[string]float64 `json:"ra"` // delegator address -> stake share
}

// CycleSummary aggregates one cycle's calculation for reporting and the DB.
type CycleSummary struct {
	Cycle           int   `json:"c"`
	TotalRewards    int64 `json:"tr"`
	StakingBalance  int64 `json:"sb"`
	NumStakeholders int   `json:"ns"`
	TotalPaid       int64 `json:"tp"`
	TotalFees       int64 `json:"tf"`
}

// ShareRatio computes balance/staking rounded to 6 decimal places. The
// fixed rounding keeps re-runs of the same cycle byte-identical.
func ShareRatio(balance, staking int64) float64 {
	if staking == 0 {
		return 0
	}

	return math.Round((float64(balance)/float64(staking))*1000000) / 1000000
}

// mulRatio scales a mutez amount by a fraction, rounding to the nearest
// mutez, ties away from zero.
func mulRatio(amount int64, ratio float64) int64 {
	return int64(math.Round(float64(amount) * ratio))
}
