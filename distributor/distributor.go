package distributor

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"baconpay/ledger"
	"baconpay/lifecycle"
	"baconpay/notifications"
	"baconpay/payout"
	"baconpay/storage"
	"baconpay/util"
)

const (
	defaultQueueSize    = 50
	defaultNumExecutors = 1

	defaultPollInterval    = 10 * time.Second
	defaultBackoffInterval = 3 * time.Minute
)

// RunMode governs when the scanner terminates itself.
type RunMode int

const (
	// RunForever keeps polling for new payable cycles indefinitely.
	RunForever RunMode = iota + 1

	// RunPending pays everything currently payable, then exits.
	RunPending

	// RunOneTime pays exactly one cycle, then exits.
	RunOneTime
)

func (m RunMode) String() string {
	switch m {
	case RunForever:
		return "FOREVER"
	case RunPending:
		return "PENDING"
	case RunOneTime:
		return "ONETIME"
	}

	return "UNKNOWN"
}

func ParseRunMode(v int) (RunMode, error) {

	switch v {
	case 1, 2, 3:
		return RunMode(v), nil
	}

	return 0, errors.Errorf("invalid run mode %d; must be 1, 2 or 3", v)
}

// RewardResolver is the external chain-query surface the scanner depends
// on. Implemented for real by tzclient; tests substitute a fake.
type RewardResolver interface {
	CurrentLevel() (int, error)
	LevelToCycle(level int) int
	RewardsForCycle(cycle int) (*payout.RewardRecord, error)
}

type Config struct {
	KeyAlias     string
	ReportsDir   string
	RunMode      RunMode
	InitialCycle int

	QueueSize    int
	NumExecutors int

	PollInterval    time.Duration
	BlockInterval   time.Duration
	BackoffInterval time.Duration
}

// Distributor is the cycle-driven production pipeline: one scanner
// goroutine discovers newly unfrozen cycles and feeds payment jobs
// through a bounded queue to the executor pool. The queue is the only
// shared mutable state between them besides the marker ledger.
type Distributor struct {
	cfg       Config
	constants *util.NetworkConstants

	resolver RewardResolver
	calc     *payout.Calculator
	fees     *payout.FeeTable
	ledger   *ledger.Ledger
	life     *lifecycle.Lifecycle
	store    *storage.Storage
	notify   *notifications.Handler
	transfer TransferFunc

	queue chan payout.Payment
}

type Args struct {
	Config    Config
	Constants *util.NetworkConstants

	Resolver      RewardResolver
	Calculator    *payout.Calculator
	Fees          *payout.FeeTable
	Ledger        *ledger.Ledger
	Lifecycle     *lifecycle.Lifecycle
	Storage       *storage.Storage
	Notifications *notifications.Handler
	Transfer      TransferFunc
}

func New(args Args) (*Distributor, error) {

	if args.Constants == nil || args.Resolver == nil || args.Calculator == nil ||
		args.Fees == nil || args.Ledger == nil || args.Lifecycle == nil || args.Transfer == nil {
		return nil, errors.New("distributor is missing a required collaborator")
	}

	cfg := args.Config

	if cfg.QueueSize == 0 {
		cfg.QueueSize = defaultQueueSize
	}

	if cfg.NumExecutors == 0 {
		cfg.NumExecutors = defaultNumExecutors
	}

	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}

	if cfg.BackoffInterval == 0 {
		cfg.BackoffInterval = defaultBackoffInterval
	}

	if cfg.BlockInterval == 0 {
		cfg.BlockInterval = time.Duration(args.Constants.TimeBetweenBlocks) * time.Second
	}

	return &Distributor{
		cfg:       cfg,
		constants: args.Constants,
		resolver:  args.Resolver,
		calc:      args.Calculator,
		fees:      args.Fees,
		ledger:    args.Ledger,
		life:      args.Lifecycle,
		store:     args.Storage,
		notify:    args.Notifications,
		transfer:  args.Transfer,
		queue:     make(chan payout.Payment, cfg.QueueSize),
	}, nil
}

// Run launches the scanner and the executor pool. With zero executors
// (dry run) jobs are produced but never paid.
func (d *Distributor) Run(wg *sync.WaitGroup) {

	wg.Add(1)
	go d.scanner(wg)

	for i := 0; i < d.cfg.NumExecutors; i++ {
		wg.Add(1)
		go d.executor(i, wg)
	}
}

func markerKey(item payout.Payment) ledger.Key {
	return ledger.Key{
		Cycle:   item.Cycle,
		Address: item.Address,
		Kind:    string(item.Kind),
	}
}
