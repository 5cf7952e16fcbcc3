package lifecycle

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	log "github.com/sirupsen/logrus"
)

// Lifecycle is the process-wide run flag observed cooperatively by the
// scanner and executor loops. Stop does not interrupt in-flight work;
// each loop notices the flag at its next suspension point, within one
// polling interval.
type Lifecycle struct {
	running int32

	lockPath string
	locked   bool
	mu       sync.Mutex
}

func New(lockPath string) *Lifecycle {
	return &Lifecycle{lockPath: lockPath}
}

// Start raises the run flag. With locking enabled it also takes an
// advisory lock file so two live instances cannot share one payment
// directory; dry runs skip the lock.
func (l *Lifecycle) Start(locking bool) error {

	l.mu.Lock()
	defer l.mu.Unlock()

	if locking {
		f, err := os.OpenFile(l.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err != nil {
			return errors.Wrapf(err, "Unable to acquire lock %s; is another instance running?", l.lockPath)
		}

		fmt.Fprintf(f, "%d\n", os.Getpid())
		f.Close()

		l.locked = true
	}

	atomic.StoreInt32(&l.running, 1)

	return nil
}

// Stop lowers the run flag and releases the advisory lock. Safe to call
// more than once.
func (l *Lifecycle) Stop() {

	atomic.StoreInt32(&l.running, 0)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.locked {
		if err := os.Remove(l.lockPath); err != nil {
			log.WithError(err).Warn("Unable to remove lock file")
		}

		l.locked = false
	}
}

func (l *Lifecycle) IsRunning() bool {
	return atomic.LoadInt32(&l.running) == 1
}
