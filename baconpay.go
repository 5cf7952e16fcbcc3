package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"

	"baconpay/distributor"
	"baconpay/ledger"
	"baconpay/lifecycle"
	"baconpay/notifications"
	"baconpay/payout"
	"baconpay/storage"
	"baconpay/tzclient"
	"baconpay/util"
	"baconpay/webserver"
)

// Overridden at build time via -ldflags
var (
	version    = "1.0"
	commitHash = "dev"
)

type BaconPayServer struct {
	*storage.Storage
	Flags
}

// Flags Server flags
type Flags struct {
	networkName string
	keyAlias    string
	configFile  string

	paymentsDir string
	reportsDir  string

	dryRun       bool
	runMode      int
	initialCycle int
	numExecutors int

	rpcURL       string
	backupRPCURL string

	webUIAddr string
	webUIPort int
	dataDir   string

	logDebug bool
	logTrace bool
}

func main() {
	var (
		err error
		wg  sync.WaitGroup
	)

	server := new(BaconPayServer)
	server.parseArgs()

	// Logging
	setupLogging(server.logDebug, server.logTrace)

	// Clean exits; triggerShutdown is also called when a finite run mode
	// finishes on its own
	shutdownChannel, triggerShutdown := setupCloseChannel()

	log.Infof("=== BaconPay v%s (%s) ===", version, commitHash)
	log.Infof("=== Network: %s ===", server.networkName)

	// Business config: shares, fees, transfer command
	config, err := LoadBusinessConfig(server.configFile)
	if err != nil {
		log.WithError(err).Fatal("Could not load configuration")
	}

	if err := config.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	runMode, err := distributor.ParseRunMode(server.runMode)
	if err != nil {
		log.WithError(err).Fatal("Invalid run mode")
	}

	// Network constants
	constants, err := util.GetNetworkConstants(server.networkName)
	if err != nil {
		log.WithError(err).Fatal("Unknown network")
	}

	log.WithFields(log.Fields{
		"BlocksPerCycle":    constants.BlocksPerCycle,
		"TimeBetweenBlocks": constants.TimeBetweenBlocks,
		"FreezeCycles":      constants.FreezeCycles,
	}).Debug("Loaded Network Constants")

	// Open/Init database
	server.Storage, err = storage.InitStorage(server.dataDir, server.networkName)
	if err != nil {
		log.WithError(err).Fatal("Could not open storage")
	}

	// Set up RPC client
	client, err := tzclient.New(server.rpcURL, server.backupRPCURL, config.BakingAddress, constants)
	if err != nil {
		log.WithError(err).Fatal("Could not create RPC client")
	}

	fees := payout.NewFeeTable(config.StandardFee, config.SpecialFees,
		config.Supporters, config.Founders, config.Owners)

	paymentLedger := ledger.New(server.paymentsDir)

	// The advisory lock guards the payment log against a second live
	// instance; dry runs pay nothing so they skip it
	life := lifecycle.New(filepath.Join(server.paymentsDir, "baconpay.lock"))
	if err := life.Start(!server.dryRun); err != nil {
		log.WithError(err).Fatal("Could not start")
	}

	reportsDir := server.reportsDir
	numExecutors := server.numExecutors

	if server.dryRun {
		// Calculate and report, but never pay
		log.Warn("DRY RUN: no payments will be made")
		reportsDir = "./dry"
		numExecutors = 0
	}

	// Cycle 0 means resume from wherever the last run stopped
	initialCycle := server.initialCycle
	if initialCycle == 0 {
		last, ok, err := paymentLedger.LastPaidCycle()
		if err != nil {
			log.WithError(err).Fatal("Could not scan payment log")
		}

		if ok {
			initialCycle = last + 1
			log.Infof("Resuming payments from cycle %d", initialCycle)
		}
	}

	notificationHandler := notifications.NewHandler(config.Notifications)

	// Start web API
	webserver.Start(webserver.WebServerArgs{
		Storage:         server.Storage,
		BindAddr:        server.webUIAddr,
		BindPort:        server.webUIPort,
		ShutdownChannel: shutdownChannel,
		WG:              &wg,
	})

	dist, err := distributor.New(distributor.Args{
		Config: distributor.Config{
			KeyAlias:     server.keyAlias,
			ReportsDir:   reportsDir,
			RunMode:      runMode,
			InitialCycle: initialCycle,
			NumExecutors: numExecutors,
		},
		Constants:     constants,
		Resolver:      client,
		Calculator:    payout.NewCalculator(fees, config.Founders, config.Owners),
		Fees:          fees,
		Ledger:        paymentLedger,
		Lifecycle:     life,
		Storage:       server.Storage,
		Notifications: notificationHandler,
		Transfer:      distributor.RunTransferCommand(config.TransferCommand, server.networkName, server.keyAlias),
	})
	if err != nil {
		log.WithError(err).Fatal("Could not create distributor")
	}

	var pipelineWG sync.WaitGroup
	dist.Run(&pipelineWG)

	// PENDING and ONETIME runs finish by themselves
	go func() {
		pipelineWG.Wait()
		triggerShutdown()
	}()

	<-shutdownChannel
	log.Warn("Shutting things down...")

	life.Stop()
	pipelineWG.Wait()

	// Wait for webserver to finish
	wg.Wait()

	// Clean close DB, logs
	server.Storage.Close()
	closeLogging()

	os.Exit(0)
}

func setupCloseChannel() (chan interface{}, func()) {

	// Create channels for signals
	signalChan := make(chan os.Signal, 1)
	closingChan := make(chan interface{}, 1)

	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	var once sync.Once
	trigger := func() {
		once.Do(func() {
			close(closingChan)
		})
	}

	go func() {
		<-signalChan
		trigger()
	}()

	return closingChan, trigger
}

func (s *BaconPayServer) parseArgs() {

	// Args
	flag.StringVar(&s.networkName, "network", util.NETWORK_MAINNET, fmt.Sprintf("Which network to use: %s", util.AvailableNetworks()))
	flag.StringVar(&s.keyAlias, "key", "payout", "Wallet alias of the payout key")
	flag.StringVar(&s.configFile, "config", "./baconpay.yaml", "Location of business configuration")

	flag.StringVar(&s.paymentsDir, "payments-dir", "./payments", "Location of the payment log")
	flag.StringVar(&s.reportsDir, "reports-dir", "./reports", "Location of per-cycle reports")

	flag.BoolVar(&s.dryRun, "dry-run", false, "Calculate and report, but do not pay")
	flag.IntVar(&s.runMode, "run-mode", 1, "1=forever, 2=pay pending and exit, 3=pay one cycle and exit")
	flag.IntVar(&s.initialCycle, "initial-cycle", 0, "First cycle to pay; 0 resumes from the payment log, negative offsets from the current cycle")
	flag.IntVar(&s.numExecutors, "executors", 1, "Number of concurrent payment executors")

	flag.StringVar(&s.rpcURL, "rpc-url", "http://127.0.0.1:8732", "URL of RPC server")
	flag.StringVar(&s.backupRPCURL, "backup-rpc-url", "", "URL of backup RPC server")

	flag.StringVar(&s.webUIAddr, "webuiaddr", "127.0.0.1", "Address on which to bind web API server")
	flag.IntVar(&s.webUIPort, "webuiport", 8082, "Port on which to bind web API server")

	flag.StringVar(&s.dataDir, "datadir", "./", "Location of database")

	flag.BoolVar(&s.logDebug, "debug", false, "Enable debug-level logging")
	flag.BoolVar(&s.logTrace, "trace", false, "Enable trace-level logging")

	printVersion := flag.Bool("version", false, "Show version and exit")

	flag.Parse()

	// Sanity
	if !util.IsValidNetwork(s.networkName) {
		log.Errorf("Unknown network: %s", s.networkName)
		flag.Usage()
		os.Exit(1)
	}

	// Handle print version and exit
	if *printVersion {
		log.Printf("BaconPay %s (%s)", version, commitHash)
		os.Exit(0)
	}
}
