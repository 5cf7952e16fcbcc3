package distributor

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	log "github.com/sirupsen/logrus"

	"baconpay/ledger"
	"baconpay/payout"
)

// scanner is the producer: it polls the chain, decides which cycle to pay
// next, and enqueues the cycle's payment jobs. The cycle index advances
// only after a cycle is fully handed off, so any error means the same
// cycle is retried on the next pass.
func (d *Distributor) scanner(wg *sync.WaitGroup) {

	defer wg.Done()

	log.Debug("Scanner started")

	paymentCycle, ok := d.initialCycle()
	if !ok {
		// Stopped before the chain answered
		return
	}

	for d.life.IsRunning() {

		// Take a breath between passes
		time.Sleep(d.cfg.PollInterval)

		level, err := d.resolver.CurrentLevel()
		if err != nil {
			log.WithError(err).Error("Unable to get current level; will try again")
			continue
		}

		currentCycle := d.resolver.LevelToCycle(level)

		// The report lands before enqueue, so its presence means the cycle
		// was fully handed off. Stray markers alone do not skip a cycle;
		// those are filtered per key below.
		if ledger.ReportExists(d.cfg.ReportsDir, paymentCycle) {
			log.Warnf("Report for cycle %d is present. No payment will be run for the cycle", paymentCycle)
			paymentCycle++

			continue
		}

		// Payments must not pass beyond the last released reward cycle
		if paymentCycle <= currentCycle-(d.constants.FreezeCycles+1) {

			if len(d.queue) == cap(d.queue) {
				log.Debug("Queue is full; waiting for executors to drain")
				time.Sleep(d.cfg.BackoffInterval)

				continue
			}

			if err := d.processCycle(paymentCycle); err != nil {
				log.WithError(err).Errorf("Error at reward calculation for cycle %d", paymentCycle)

				continue
			}

			paymentCycle++

			if d.cfg.RunMode == RunOneTime {
				log.Info("Run mode ONETIME satisfied. Shutting down")
				d.queue <- payout.ExitPayment()

				return
			}

		} else {

			// Pending payments done; do not wait any more
			if d.cfg.RunMode == RunPending {
				log.Info("Run mode PENDING satisfied. Shutting down")
				d.queue <- payout.ExitPayment()

				return
			}

			// Wait for the current cycle to end, block by block, checking
			// the run flag each block so shutdown stays responsive
			remainingBlocks := (currentCycle+1)*d.constants.BlocksPerCycle - level
			log.Debugf("Waiting until next cycle, for %d blocks", remainingBlocks)

			for i := 0; i < remainingBlocks; i++ {
				time.Sleep(d.cfg.BlockInterval)

				if !d.life.IsRunning() {
					d.queue <- payout.ExitPayment()

					return
				}
			}
		}
	}

	log.Info("Scanner returning")
}

// initialCycle resolves where to start. Non-positive configured values are
// offsets from the last released reward cycle.
func (d *Distributor) initialCycle() (int, bool) {

	if d.cfg.InitialCycle > 0 {
		return d.cfg.InitialCycle, true
	}

	for d.life.IsRunning() {

		level, err := d.resolver.CurrentLevel()
		if err != nil {
			log.WithError(err).Error("Unable to get current level for initial cycle; will try again")
			time.Sleep(d.cfg.PollInterval)

			continue
		}

		currentCycle := d.resolver.LevelToCycle(level)

		cycle := currentCycle + d.cfg.InitialCycle - (d.constants.FreezeCycles + 1)
		if cycle < 0 {
			cycle = 0
		}

		log.Infof("Initial payment cycle set to %d", cycle)

		return cycle, true
	}

	return 0, false
}

// processCycle fetches, calculates, reports and enqueues one cycle. The
// report is written before any job is enqueued: if it fails, no markers
// exist yet and the whole cycle is safely retried.
func (d *Distributor) processCycle(cycle int) error {

	log.Infof("Payment cycle is %d", cycle)

	record, err := d.resolver.RewardsForCycle(cycle)
	if err != nil {
		return errors.Wrapf(err, "Unable to fetch rewards for cycle %d", cycle)
	}

	if record.TotalRewards == 0 {
		log.Info("Total rewards is zero, skipping payment")

		return nil
	}

	log.Infof("Total rewards=%d", record.TotalRewards)

	items, summary, err := d.calc.Calculate(record)
	if err != nil {
		return errors.Wrapf(err, "Unable to calculate payments for cycle %d", cycle)
	}

	if err := ledger.WriteCycleReport(d.cfg.ReportsDir, record, items, d.fees); err != nil {
		return errors.Wrapf(err, "Unable to write report for cycle %d", cycle)
	}

	// Past this point the report exists and the cycle will not be
	// re-entered; failures below are logged, never returned.
	if d.store != nil {
		summaryBytes, err := json.Marshal(summary)
		if err == nil {
			err = d.store.SaveCycleSummary(cycle, summaryBytes)
		}

		if err != nil {
			log.WithError(err).Error("Cannot save cycle summary to DB")
		}
	}

	for _, item := range items {

		if d.ledger.Has(markerKey(item)) {
			log.Warnf("Reward not created for cycle %d address %s amount %d type %s: payment log already present",
				item.Cycle, item.Address, item.Amount, item.Kind)

			continue
		}

		d.queue <- item
		queueDepth.Set(float64(len(d.queue)))

		log.Infof("Reward created for cycle %d address %s amount %d fee %d type %s",
			item.Cycle, item.Address, item.Amount, item.Fee, item.Kind)
	}

	cyclesProcessed.Inc()
	log.Infof("Reward creation done for cycle %d", cycle)

	if d.notify != nil {
		d.notify.Send(fmt.Sprintf("Cycle %d: %d payments queued, %d mutez total",
			cycle, summary.NumStakeholders, summary.TotalPaid))
	}

	return nil
}
