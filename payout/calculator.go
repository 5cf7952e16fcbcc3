package payout

import (
	"sort"

	"github.com/pkg/errors"
)

// shareTolerance is the allowed drift when validating that a share table
// sums to 1.0.
const shareTolerance = 1e-6

// Calculator turns a cycle's RewardRecord into the ordered payment list.
// It holds no mutable state; the same record always produces the same
// payments, which is what makes a crashed cycle safe to re-run.
type Calculator struct {
	fees     *FeeTable
	founders map[string]float64
	owners   map[string]float64
}

func NewCalculator(fees *FeeTable, founders, owners map[string]float64) *Calculator {
	return &Calculator{
		fees:     fees,
		founders: founders,
		owners:   owners,
	}
}

// Calculate splits the cycle's total rewards. Each delegator with a nonzero
// stake ratio receives reward*ratio minus the service fee. Collected fees
// are then split between founders, and the baker's own (non-delegated)
// margin between owners. Output order is deterministic: delegators,
// founders, owners, each sorted by address.
func (c *Calculator) Calculate(rec *RewardRecord) ([]Payment, *CycleSummary, error) {

	if rec == nil || rec.TotalRewards < 0 {
		return nil, nil, errors.New("malformed reward record")
	}

	summary := &CycleSummary{
		Cycle:          rec.Cycle,
		TotalRewards:   rec.TotalRewards,
		StakingBalance: rec.StakingBalance,
	}

	var (
		items         []Payment
		feesCollected int64
		delegated     int64
	)

	for _, addr := range sortedAddresses(rec.Ratios) {

		ratio := rec.Ratios[addr]
		if ratio == 0 {
			continue
		}

		reward := mulRatio(rec.TotalRewards, ratio)
		fee := mulRatio(reward, c.fees.Rate(addr))

		items = append(items, Payment{
			Address: addr,
			Cycle:   rec.Cycle,
			Amount:  reward - fee,
			Fee:     fee,
			Kind:    KindDelegator,
			Ratio:   ratio,
			Reward:  reward,
		})

		feesCollected += fee
		delegated += reward
	}

	// Founders split the service fee income
	for _, addr := range sortedAddresses(c.founders) {
		share := c.founders[addr]

		amount := mulRatio(feesCollected, share)
		if amount == 0 {
			continue
		}

		items = append(items, Payment{
			Address: addr,
			Cycle:   rec.Cycle,
			Amount:  amount,
			Kind:    KindFounder,
			Ratio:   share,
			Reward:  amount,
		})
	}

	// Owners split whatever the delegators did not earn
	margin := rec.TotalRewards - delegated
	for _, addr := range sortedAddresses(c.owners) {
		share := c.owners[addr]

		amount := mulRatio(margin, share)
		if amount == 0 {
			continue
		}

		items = append(items, Payment{
			Address: addr,
			Cycle:   rec.Cycle,
			Amount:  amount,
			Kind:    KindOwner,
			Ratio:   share,
			Reward:  amount,
		})
	}

	summary.NumStakeholders = len(items)
	summary.TotalFees = feesCollected

	for _, item := range items {
		summary.TotalPaid += item.Amount
	}

	return items, summary, nil
}

// ValidateShareMap checks that a share table sums to 1.0 within tolerance.
// An empty map is valid; it simply means nobody holds that role.
func ValidateShareMap(shares map[string]float64, name string) error {

	if len(shares) == 0 {
		return nil
	}

	var sum float64
	for _, share := range shares {
		sum += share
	}

	if sum < 1-shareTolerance || sum > 1+shareTolerance {
		return errors.Errorf("Map '%s' shares do not sum up to 1 (got %f)", name, sum)
	}

	return nil
}

func sortedAddresses(m map[string]float64) []string {

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
