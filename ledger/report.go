package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"baconpay/payout"
)

// WriteCycleReport writes the tab-delimited per-cycle report. The first
// data row is the synthetic baker row carrying the gross reward; it is
// never a transfer job. The report is written before any job is enqueued
// so that a write failure aborts the cycle while it is still retryable.
func WriteCycleReport(reportsDir string, rec *payout.RewardRecord, items []payout.Payment, fees *payout.FeeTable) error {

	if err := os.MkdirAll(reportsDir, 0755); err != nil {
		return errors.Wrap(err, "Unable to create reports directory")
	}

	path := ReportPath(reportsDir, rec.Cycle)

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "Unable to create report for cycle %d", rec.Cycle)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'

	if err := w.Write([]string{"address", "type", "ratio", "reward", "fee_rate", "payment", "fee"}); err != nil {
		return errors.Wrap(err, "Unable to write report header")
	}

	// Gross reward row under the baker's own address
	bakerRow := []string{
		rec.Baker, string(payout.KindBaker),
		formatRatio(1.0), formatMutez(rec.TotalRewards),
		formatRatio(0), formatMutez(rec.TotalRewards), formatMutez(0),
	}
	if err := w.Write(bakerRow); err != nil {
		return errors.Wrap(err, "Unable to write baker report row")
	}

	for _, item := range items {
		row := []string{
			item.Address, string(item.Kind),
			formatRatio(item.Ratio), formatMutez(item.Reward),
			formatRatio(fees.Rate(item.Address)),
			formatMutez(item.Amount), formatMutez(item.Fee),
		}

		if err := w.Write(row); err != nil {
			return errors.Wrapf(err, "Unable to write report row for %s", item.Address)
		}
	}

	w.Flush()

	return errors.Wrapf(w.Error(), "Unable to flush report for cycle %d", rec.Cycle)
}

// ReportPath returns the report file location for one cycle.
func ReportPath(reportsDir string, cycle int) string {
	return filepath.Join(reportsDir, strconv.Itoa(cycle)+".csv")
}

// ReportExists reports whether a cycle already has its report on disk.
// The report lands before any job is enqueued, so its presence means the
// cycle was fully handed off and must not be re-run. Individual markers
// do NOT imply this; a crashed run leaves markers behind and the cycle
// is re-entered with per-key skips.
func ReportExists(reportsDir string, cycle int) bool {

	info, err := os.Stat(ReportPath(reportsDir, cycle))
	if err != nil {
		return false
	}

	return !info.IsDir()
}

// Fixed formatting: 6 fractional digits, matching the mutez resolution.
// Amounts are stored in mutez and reported in tez.

func formatMutez(mutez int64) string {
	return fmt.Sprintf("%f", float64(mutez)/1e6)
}

func formatRatio(r float64) string {
	return fmt.Sprintf("%f", r)
}
