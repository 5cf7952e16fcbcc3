package lifecycle

import (
	"path/filepath"
	"testing"
)

func TestStartStop(t *testing.T) {

	l := New(filepath.Join(t.TempDir(), "baconpay.lock"))

	if l.IsRunning() {
		t.Fatal("fresh lifecycle must not be running")
	}

	if err := l.Start(false); err != nil {
		t.Fatal(err)
	}

	if !l.IsRunning() {
		t.Fatal("lifecycle must be running after Start")
	}

	l.Stop()

	if l.IsRunning() {
		t.Fatal("lifecycle must not be running after Stop")
	}

	// Stop is idempotent
	l.Stop()
}

func TestAdvisoryLock(t *testing.T) {

	lockPath := filepath.Join(t.TempDir(), "baconpay.lock")

	first := New(lockPath)
	if err := first.Start(true); err != nil {
		t.Fatal(err)
	}

	second := New(lockPath)
	if err := second.Start(true); err == nil {
		t.Fatal("second instance must not acquire the same lock")
	}

	first.Stop()

	// Lock released; a new instance can start
	third := New(lockPath)
	if err := third.Start(true); err != nil {
		t.Fatalf("lock not released on Stop: %s", err)
	}
	third.Stop()
}
