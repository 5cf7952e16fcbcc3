package webserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	log "github.com/sirupsen/logrus"

	"baconpay/storage"
)

// WebServer exposes the read-only payout history over HTTP, plus the
// Prometheus scrape endpoint. It never mutates the pipeline.
type WebServer struct {
	storage *storage.Storage
}

type WebServerArgs struct {
	Storage  *storage.Storage
	BindAddr string
	BindPort int

	ShutdownChannel <-chan interface{}
	WG              *sync.WaitGroup
}

// Start launches the API server in the background and wires it to the
// process shutdown channel.
func Start(args WebServerArgs) {

	ws := &WebServer{
		storage: args.Storage,
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/health", ws.getHealth)
	router.HandleFunc("/api/payouts", ws.getPayouts)
	router.HandleFunc("/api/payouts/cycle", ws.getCyclePayouts)
	router.Handle("/metrics", promhttp.Handler())

	httpAddr := fmt.Sprintf("%s:%d", args.BindAddr, args.BindPort)
	httpSvr := &http.Server{
		Handler:      handlers.CombinedLoggingHandler(log.StandardLogger().Writer(), router),
		Addr:         httpAddr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	log.WithField("Addr", httpAddr).Info("BaconPay API Listening")

	args.WG.Add(1)

	go func() {
		if err := httpSvr.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Httpserver: ListenAndServe()")
		}

		log.Info("Httpserver: Shutdown")
	}()

	// Wait for shutdown signal on channel
	go func() {
		defer args.WG.Done()

		<-args.ShutdownChannel

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpSvr.Shutdown(ctx); err != nil {
			log.WithError(err).Error("Httpserver: Shutdown()")
		}
	}()
}
