package distributor

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"

	"baconpay/ledger"
	"baconpay/lifecycle"
	"baconpay/payout"
	"baconpay/util"
)

// Constants for a toy chain: 10 blocks per cycle, 2 freeze cycles, so at
// level L the newest payable cycle is (L-1)/10 - 3.
var testConstants = &util.NetworkConstants{
	TimeBetweenBlocks: 1,
	BlocksPerCycle:    10,
	FreezeCycles:      2,
}

type fakeResolver struct {
	level   int
	records map[int]*payout.RewardRecord
}

func (f *fakeResolver) CurrentLevel() (int, error) {
	return f.level, nil
}

func (f *fakeResolver) LevelToCycle(level int) int {
	if level <= 0 {
		return 0
	}

	return (level - 1) / testConstants.BlocksPerCycle
}

func (f *fakeResolver) RewardsForCycle(cycle int) (*payout.RewardRecord, error) {

	rec, ok := f.records[cycle]
	if !ok {
		return nil, errors.Errorf("no rewards for cycle %d", cycle)
	}

	return rec, nil
}

type transferCall struct {
	Address string
	Amount  int64
}

// transferRecorder stands in for the external client binary.
type transferRecorder struct {
	mu    sync.Mutex
	calls []transferCall
	fail  map[string]bool
}

func (r *transferRecorder) fn(amount int64, key, address string) error {

	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, transferCall{Address: address, Amount: amount})

	if r.fail[address] {
		return errors.New("transfer rejected")
	}

	return nil
}

func (r *transferRecorder) snapshot() []transferCall {

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]transferCall, len(r.calls))
	copy(out, r.calls)

	return out
}

type testEnv struct {
	dist    *Distributor
	ledger  *ledger.Ledger
	life    *lifecycle.Lifecycle
	reports string
}

func newTestEnv(t *testing.T, cfg Config, resolver RewardResolver, transfer TransferFunc) *testEnv {

	t.Helper()

	dir := t.TempDir()

	cfg.ReportsDir = filepath.Join(dir, "reports")
	if cfg.KeyAlias == "" {
		cfg.KeyAlias = "payout"
	}

	// Tight intervals so shutdown paths run inside the test budget
	cfg.PollInterval = 2 * time.Millisecond
	cfg.BlockInterval = time.Millisecond
	cfg.BackoffInterval = 5 * time.Millisecond

	led := ledger.New(filepath.Join(dir, "payments"))

	life := lifecycle.New(filepath.Join(dir, "test.lock"))
	if err := life.Start(false); err != nil {
		t.Fatalf("Unable to start lifecycle: %v", err)
	}
	t.Cleanup(life.Stop)

	fees := payout.NewFeeTable(0, nil, nil, nil, nil)

	dist, err := New(Args{
		Config:     cfg,
		Constants:  testConstants,
		Resolver:   resolver,
		Calculator: payout.NewCalculator(fees, nil, nil),
		Fees:       fees,
		Ledger:     led,
		Lifecycle:  life,
		Transfer:   transfer,
	})
	if err != nil {
		t.Fatalf("Unable to create distributor: %v", err)
	}

	return &testEnv{dist: dist, ledger: led, life: life, reports: cfg.ReportsDir}
}

func runAndWait(t *testing.T, dist *Distributor) {

	t.Helper()

	var wg sync.WaitGroup
	dist.Run(&wg)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("distributor did not shut down in time")
	}
}

func TestOneTimePaysSingleCycle(t *testing.T) {

	resolver := &fakeResolver{
		level: 100, // cycle 9; payable boundary is cycle 6
		records: map[int]*payout.RewardRecord{
			5: {
				Baker:          "tz1baker",
				Cycle:          5,
				TotalRewards:   1000,
				StakingBalance: 1000,
				Ratios:         map[string]float64{"tz1addrA": 0.6, "tz1addrB": 0.4},
			},
		},
	}

	rec := &transferRecorder{}

	env := newTestEnv(t, Config{
		RunMode:      RunOneTime,
		InitialCycle: 5,
		NumExecutors: 3,
	}, resolver, rec.fn)

	runAndWait(t, env.dist)

	// Three executors race on the queue, so compare without ordering
	got := rec.snapshot()
	sort.Slice(got, func(i, j int) bool { return got[i].Address < got[j].Address })

	want := []transferCall{
		{Address: "tz1addrA", Amount: 600},
		{Address: "tz1addrB", Amount: 400},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Transfer calls mismatch (-want +got):\n%s", diff)
	}

	for _, addr := range []string{"tz1addrA", "tz1addrB"} {
		key := ledger.Key{Cycle: 5, Address: addr, Kind: string(payout.KindDelegator)}
		if !env.ledger.Has(key) {
			t.Errorf("Missing payment marker for %s", addr)
		}
	}

	if !ledger.ReportExists(env.reports, 5) {
		t.Error("Cycle report was not written")
	}

	if env.life.IsRunning() {
		t.Error("Lifecycle still running after one-time run")
	}
}

func TestScannerSkipsMarkedPayments(t *testing.T) {

	resolver := &fakeResolver{
		level: 100,
		records: map[int]*payout.RewardRecord{
			5: {
				Baker:          "tz1baker",
				Cycle:          5,
				TotalRewards:   1000,
				StakingBalance: 1000,
				Ratios:         map[string]float64{"tz1addrA": 0.6, "tz1addrB": 0.4},
			},
		},
	}

	rec := &transferRecorder{}

	env := newTestEnv(t, Config{
		RunMode:      RunOneTime,
		InitialCycle: 5,
	}, resolver, rec.fn)

	// addrA was paid by a previous run that died before finishing
	preMarked := ledger.Key{Cycle: 5, Address: "tz1addrA", Kind: string(payout.KindDelegator)}
	if err := env.ledger.Mark(preMarked); err != nil {
		t.Fatalf("Unable to pre-mark payment: %v", err)
	}

	runAndWait(t, env.dist)

	want := []transferCall{
		{Address: "tz1addrB", Amount: 400},
	}

	if diff := cmp.Diff(want, rec.snapshot()); diff != "" {
		t.Errorf("Transfer calls mismatch (-want +got):\n%s", diff)
	}
}

func TestFailedTransferLeavesNoMarker(t *testing.T) {

	resolver := &fakeResolver{
		level: 100,
		records: map[int]*payout.RewardRecord{
			5: {
				Baker:          "tz1baker",
				Cycle:          5,
				TotalRewards:   1000,
				StakingBalance: 1000,
				Ratios:         map[string]float64{"tz1addrA": 0.6, "tz1addrB": 0.4},
			},
		},
	}

	rec := &transferRecorder{fail: map[string]bool{"tz1addrB": true}}

	env := newTestEnv(t, Config{
		RunMode:      RunOneTime,
		InitialCycle: 5,
	}, resolver, rec.fn)

	runAndWait(t, env.dist)

	if got := len(rec.snapshot()); got != 2 {
		t.Fatalf("Expected 2 transfer attempts, got %d", got)
	}

	keyA := ledger.Key{Cycle: 5, Address: "tz1addrA", Kind: string(payout.KindDelegator)}
	if !env.ledger.Has(keyA) {
		t.Error("Successful payment is missing its marker")
	}

	keyB := ledger.Key{Cycle: 5, Address: "tz1addrB", Kind: string(payout.KindDelegator)}
	if env.ledger.Has(keyB) {
		t.Error("Failed payment must not have a marker")
	}
}

func TestExistingReportSkipsCycle(t *testing.T) {

	resolver := &fakeResolver{
		level: 81, // cycle 8; payable boundary is cycle 5
		records: map[int]*payout.RewardRecord{
			5: {
				Baker:          "tz1baker",
				Cycle:          5,
				TotalRewards:   1000,
				StakingBalance: 1000,
				Ratios:         map[string]float64{"tz1addrA": 1.0},
			},
		},
	}

	rec := &transferRecorder{}

	env := newTestEnv(t, Config{
		RunMode:      RunPending,
		InitialCycle: 5,
	}, resolver, rec.fn)

	if err := os.MkdirAll(env.reports, 0755); err != nil {
		t.Fatal(err)
	}

	if err := ioutil.WriteFile(ledger.ReportPath(env.reports, 5), []byte("done\n"), 0644); err != nil {
		t.Fatal(err)
	}

	runAndWait(t, env.dist)

	if got := len(rec.snapshot()); got != 0 {
		t.Errorf("Expected no transfers for an already-reported cycle, got %d", got)
	}
}

func TestZeroRewardCycleProducesNothing(t *testing.T) {

	resolver := &fakeResolver{
		level: 100,
		records: map[int]*payout.RewardRecord{
			5: {
				Baker: "tz1baker",
				Cycle: 5,
			},
		},
	}

	rec := &transferRecorder{}

	env := newTestEnv(t, Config{
		RunMode:      RunOneTime,
		InitialCycle: 5,
	}, resolver, rec.fn)

	runAndWait(t, env.dist)

	if got := len(rec.snapshot()); got != 0 {
		t.Errorf("Expected no transfers for zero-reward cycle, got %d", got)
	}

	if ledger.ReportExists(env.reports, 5) {
		t.Error("Zero-reward cycle must not produce a report")
	}
}

func TestSmallQueueStillDrains(t *testing.T) {

	ratios := map[string]float64{
		"tz1d1": 0.2, "tz1d2": 0.2, "tz1d3": 0.2,
		"tz1d4": 0.2, "tz1d5": 0.1, "tz1d6": 0.1,
	}

	resolver := &fakeResolver{
		level: 100,
		records: map[int]*payout.RewardRecord{
			5: {
				Baker:          "tz1baker",
				Cycle:          5,
				TotalRewards:   600000,
				StakingBalance: 600000,
				Ratios:         ratios,
			},
		},
	}

	rec := &transferRecorder{}

	env := newTestEnv(t, Config{
		RunMode:      RunOneTime,
		InitialCycle: 5,
		QueueSize:    2,
	}, resolver, rec.fn)

	runAndWait(t, env.dist)

	if got := len(rec.snapshot()); got != len(ratios) {
		t.Errorf("Expected %d transfers through the small queue, got %d", len(ratios), got)
	}

	for addr := range ratios {
		key := ledger.Key{Cycle: 5, Address: addr, Kind: string(payout.KindDelegator)}
		if !env.ledger.Has(key) {
			t.Errorf("Missing payment marker for %s", addr)
		}
	}
}

func TestStopAbandonsQueuedBacklog(t *testing.T) {

	resolver := &fakeResolver{level: 100, records: map[int]*payout.RewardRecord{}}
	rec := &transferRecorder{}

	env := newTestEnv(t, Config{
		RunMode:      RunForever,
		InitialCycle: 5,
	}, resolver, rec.fn)

	// A backlog is waiting when the stop request lands
	for i := 0; i < 5; i++ {
		env.dist.queue <- payout.Payment{
			Address: fmt.Sprintf("tz1d%d", i),
			Cycle:   5,
			Amount:  100,
			Kind:    payout.KindDelegator,
		}
	}

	env.life.Stop()

	runAndWait(t, env.dist)

	// Stopped means stopped: the backlog stays unpaid and unmarked
	if got := len(rec.snapshot()); got != 0 {
		t.Errorf("Expected no transfers after stop, got %d", got)
	}

	for i := 0; i < 5; i++ {
		key := ledger.Key{Cycle: 5, Address: fmt.Sprintf("tz1d%d", i), Kind: string(payout.KindDelegator)}
		if env.ledger.Has(key) {
			t.Errorf("Abandoned job %d must not have a marker", i)
		}
	}
}

func TestStopInterruptsBlockWait(t *testing.T) {

	// Cycle 7 is not yet payable at level 95, so a FOREVER run sits in
	// the block-by-block wait for the cycle to end
	resolver := &fakeResolver{level: 95, records: map[int]*payout.RewardRecord{}}
	rec := &transferRecorder{}

	env := newTestEnv(t, Config{
		RunMode:      RunForever,
		InitialCycle: 7,
	}, resolver, rec.fn)

	var wg sync.WaitGroup
	env.dist.Run(&wg)

	time.Sleep(20 * time.Millisecond)
	env.life.Stop()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("distributor did not shut down in time")
	}

	if got := len(rec.snapshot()); got != 0 {
		t.Errorf("Expected no transfers, got %d", got)
	}
}

func TestParseRunMode(t *testing.T) {

	for v, want := range map[int]RunMode{1: RunForever, 2: RunPending, 3: RunOneTime} {
		got, err := ParseRunMode(v)
		if err != nil {
			t.Fatalf("ParseRunMode(%d): %v", v, err)
		}

		if got != want {
			t.Errorf("ParseRunMode(%d) = %v; want %v", v, got, want)
		}
	}

	if _, err := ParseRunMode(0); err == nil {
		t.Error("ParseRunMode(0) should fail")
	}

	if _, err := ParseRunMode(4); err == nil {
		t.Error("ParseRunMode(4) should fail")
	}
}
