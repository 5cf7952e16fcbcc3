package distributor

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"baconpay/payout"
)

// executor is one consumer of the job queue. It pays jobs one at a time
// and writes the ledger marker only after the external transfer reports
// success. A sentinel job terminates the pool: the executor that consumes
// it lowers the global run flag, and the rest observe the flag at their
// next poll. The run flag is re-checked before every payment so a stop
// request never triggers further transfers.
func (d *Distributor) executor(id int, wg *sync.WaitGroup) {

	defer wg.Done()

	logger := log.WithField("Executor", id)
	logger.Debug("Executor started")

	for {
		select {
		case item := <-d.queue:
			queueDepth.Set(float64(len(d.queue)))

			if item.IsExit() {
				logger.Debug("Exit signal received. Shutting down")
				d.life.Stop()

				return
			}

			// Once stopped, the backlog is abandoned rather than paid;
			// unpaid jobs stay unmarked and a later run re-enqueues them
			if !d.life.IsRunning() {
				logger.Info("Executor returning")

				return
			}

			d.handlePayment(logger, item)

		case <-time.After(d.cfg.PollInterval):
			if !d.life.IsRunning() {
				logger.Info("Executor returning")

				return
			}
		}
	}
}

// handlePayment performs one transfer. Any panic is contained here so a
// single bad job cannot take down the pool.
func (d *Distributor) handlePayment(logger *log.Entry, item payout.Payment) {

	defer func() {
		if r := recover(); r != nil {
			logger.WithField("Message", r).Error("Panic recovered in payment handler")
		}
	}()

	key := markerKey(item)

	// Defensive double-check against duplicate enqueue
	if d.ledger.Has(key) {
		logger.Warnf("Reward already paid for cycle %d address %s type %s; skipping",
			item.Cycle, item.Address, item.Kind)

		return
	}

	logger.Debugf("Reward payment attempt for cycle %d address %s amount %d type %s",
		item.Cycle, item.Address, item.Amount, item.Kind)

	if err := d.transfer(item.Amount, d.cfg.KeyAlias, item.Address); err != nil {

		// No marker is written: the payment stays visibly unpaid. It is
		// not retried within this run; replaying it needs an operator.
		paymentsFailed.Inc()
		logger.WithError(err).Warnf("Reward NOT paid for cycle %d address %s amount %d: client failed",
			item.Cycle, item.Address, item.Amount)

		if d.notify != nil {
			d.notify.Send(fmt.Sprintf("Payment FAILED: cycle %d, %s, %d mutez",
				item.Cycle, item.Address, item.Amount))
		}

		return
	}

	if err := d.ledger.Mark(key); err != nil {
		// The transfer went through but the proof did not land; a later
		// pass could re-pay this key, so be loud about it
		logger.WithError(err).Errorf("Transfer succeeded but marker write failed for cycle %d address %s",
			item.Cycle, item.Address)

		return
	}

	if d.store != nil {
		recordBytes, err := json.Marshal(item)
		if err == nil {
			err = d.store.SavePaymentRecord(item.Cycle, item.Address, recordBytes)
		}

		if err != nil {
			logger.WithError(err).Error("Unable to save payment record to DB")
		}
	}

	paymentsSent.Inc()
	logger.Infof("Reward paid for cycle %d address %s amount %d",
		item.Cycle, item.Address, item.Amount)
}
