package tzclient

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/bakingbacon/go-tezos/v4/rpc"
	log "github.com/sirupsen/logrus"

	"baconpay/payout"
)

// CurrentLevel returns the level of the current head block.
func (c *Client) CurrentLevel() (int, error) {

	resp, block, err := c.Current.Block(&rpc.BlockIDHead{})
	if err != nil {
		return 0, errors.Wrapf(err, "Unable to fetch head block (%s)", string(resp.Body()))
	}

	return block.Metadata.Level.Level, nil
}

// LevelToCycle maps a block level onto its cycle number.
func (c *Client) LevelToCycle(level int) int {
	if level <= 0 {
		return 0
	}

	return (level - 1) / c.constants.BlocksPerCycle
}

// RewardsForCycle fetches the raw reward figures for one finalized cycle:
// the baker's unfrozen block and fee rewards, plus each delegator's stake
// ratio as of the first block of the cycle. Legitimately errors for cycles
// that are not yet unfrozen.
func (c *Client) RewardsForCycle(cycle int) (*payout.RewardRecord, error) {

	snapshotLevel := cycle*c.constants.BlocksPerCycle + 1

	// Rewards for cycle C are released as balance_update records in the
	// last block of cycle C + freeze
	unfrozenLevel := (cycle + c.constants.FreezeCycles + 1) * c.constants.BlocksPerCycle

	blockRewards, feeRewards, err := c.getUnfrozenRewards(cycle, unfrozenLevel)
	if err != nil {
		return nil, err
	}

	record := &payout.RewardRecord{
		Baker:        c.baker,
		Cycle:        cycle,
		TotalRewards: blockRewards + feeRewards,
		Ratios:       map[string]float64{},
	}

	if record.TotalRewards == 0 {
		// Nothing to distribute; skip the delegate queries
		return record, nil
	}

	// Query the snapshot level for all delegators and their balances
	snapshotBlockID := rpc.BlockIDLevel(snapshotLevel)

	resp, bakerInfo, err := c.Current.Delegate(rpc.DelegateInput{
		BlockID:  &snapshotBlockID,
		Delegate: c.baker,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot get delegate info (%s)", string(resp.Body()))
	}

	stakingBalance, err := strconv.ParseInt(bakerInfo.StakingBalance, 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to convert staking balance")
	}
	record.StakingBalance = stakingBalance

	for _, delegatorAddress := range bakerInfo.DelegateContracts {

		// Skip ourselves; the baker's own share is the margin
		if delegatorAddress == c.baker {
			continue
		}

		resp, balanceStr, err := c.Current.ContractBalance(rpc.ContractBalanceInput{
			BlockID:    &snapshotBlockID,
			ContractID: delegatorAddress,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "Cannot get balance of delegator %s (%s)",
				delegatorAddress, string(resp.Body()))
		}

		balance, err := strconv.ParseInt(balanceStr, 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, "Cannot parse delegator balance")
		}

		record.Ratios[delegatorAddress] = payout.ShareRatio(balance, stakingBalance)
	}

	log.WithFields(log.Fields{
		"Cycle": cycle, "TotalRewards": record.TotalRewards,
		"StakingBalance": record.StakingBalance, "NumDelegators": len(record.Ratios),
	}).Debug("Fetched cycle rewards")

	return record, nil
}

// getUnfrozenRewards scans the balance updates of the block where the
// cycle's rewards unfreeze, looking for our baker's freezer records.
func (c *Client) getUnfrozenRewards(rewardCycle, unfrozenLevel int) (int64, int64, error) {

	unfrozenBlockID := rpc.BlockIDLevel(unfrozenLevel)

	resp, metadata, err := c.Current.Metadata(&unfrozenBlockID)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "Unable to get unfrozen rewards metadata (%s)", string(resp.Body()))
	}

	var unfrozenRewards, unfrozenFees int64

	for _, update := range metadata.BalanceUpdates {

		if update.Kind != "freezer" || update.Delegate != c.baker || update.Cycle != rewardCycle {
			continue
		}

		switch update.Category {
		case "rewards":
			tmp, err := strconv.ParseInt(update.Change, 10, 64)
			if err != nil {
				return 0, 0, err
			}
			unfrozenRewards = tmp * -1

		case "fees":
			tmp, err := strconv.ParseInt(update.Change, 10, 64)
			if err != nil {
				return 0, 0, err
			}
			unfrozenFees = tmp * -1
		}
	}

	return unfrozenRewards, unfrozenFees, nil
}
