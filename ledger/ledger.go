package ledger

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

// Key identifies one executed payment. A marker file exists for a key iff
// the transfer for that exact payment has been confirmed successful.
type Key struct {
	Cycle   int
	Address string
	Kind    string
}

// Ledger is the durable idempotency store: one empty marker file per paid
// (cycle, address, kind) under the payments directory. Existence is the
// sole source of truth; file contents are irrelevant. The scanner reads
// markers, executors write them, and the keys never collide, so no
// in-process locking is needed beyond the filesystem's atomic create.
type Ledger struct {
	dir string
}

func New(paymentsDir string) *Ledger {
	return &Ledger{dir: paymentsDir}
}

// CycleDir returns the directory holding one cycle's markers.
func (l *Ledger) CycleDir(cycle int) string {
	return filepath.Join(l.dir, strconv.Itoa(cycle))
}

func (l *Ledger) markerPath(k Key) string {
	return filepath.Join(l.CycleDir(k.Cycle), fmt.Sprintf("%s_%s.txt", k.Address, k.Kind))
}

// Has reports whether the payment for this key was already executed.
func (l *Ledger) Has(k Key) bool {

	info, err := os.Stat(l.markerPath(k))
	if err != nil {
		return false
	}

	return !info.IsDir()
}

// Mark records a confirmed payment. Call this only after the external
// transfer reported success.
func (l *Ledger) Mark(k Key) error {

	if err := os.MkdirAll(l.CycleDir(k.Cycle), 0755); err != nil {
		return errors.Wrap(err, "Unable to create cycle payment directory")
	}

	f, err := os.OpenFile(l.markerPath(k), os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "Unable to create payment marker")
	}

	return f.Close()
}

// LastPaidCycle returns the highest cycle number that has a payment
// directory, so a restarted distributor can resume where it left off.
// ok is false when no payment run has ever completed.
func (l *Ledger) LastPaidCycle() (cycle int, ok bool, err error) {

	entries, err := ioutil.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}

		return 0, false, errors.Wrap(err, "Unable to read payments directory")
	}

	cycles := make([]int, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		c, convErr := strconv.Atoi(entry.Name())
		if convErr != nil {
			// Not a cycle directory
			continue
		}

		cycles = append(cycles, c)
	}

	if len(cycles) == 0 {
		return 0, false, nil
	}

	sort.Ints(cycles)

	return cycles[len(cycles)-1], true, nil
}
