package webserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pkg/errors"

	log "github.com/sirupsen/logrus"
)

type apiErrorMessage struct {
	Error string `json:"error"`
}

func apiError(err error, w http.ResponseWriter) {
	e, _ := json.Marshal(apiErrorMessage{err.Error()})
	http.Error(w, string(e), http.StatusBadRequest)
}

func apiReturnOk(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

func (ws *WebServer) getHealth(w http.ResponseWriter, r *http.Request) {
	apiReturnOk(w)
}

// getPayouts returns every stored cycle summary keyed by cycle.
func (ws *WebServer) getPayouts(w http.ResponseWriter, r *http.Request) {

	log.Trace("API - getPayouts")

	summaries, err := ws.storage.GetPayoutsSummaries()
	if err != nil {
		log.WithError(err).Error("API - getPayouts")
		apiError(errors.Wrap(err, "Unable to get summaries from DB"), w)

		return
	}

	payoutsData := map[string]interface{}{
		"status":    "ok",
		"summaries": summaries,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payoutsData); err != nil {
		log.WithError(err).Error("UI Return getPayouts Failure")
	}
}

// getCyclePayouts returns one cycle's executed payments keyed by address.
// The cycle comes from the 'c' query parameter.
func (ws *WebServer) getCyclePayouts(w http.ResponseWriter, r *http.Request) {

	log.Trace("API - getCyclePayouts")

	payoutsCycle, err := strconv.Atoi(r.URL.Query().Get("c"))
	if err != nil {
		log.WithError(err).Error("Unable to parse cycle")
		apiError(errors.Wrap(err, "Unable to parse cycle"), w)

		return
	}

	payments, err := ws.storage.GetCyclePayouts(payoutsCycle)
	if err != nil {
		log.WithError(err).Error("API - getCyclePayouts")
		apiError(errors.Wrap(err, "Unable to get cycle payouts from DB"), w)

		return
	}

	cyclePayoutsData := map[string]interface{}{
		"cycle":    payoutsCycle,
		"payments": payments,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(cyclePayoutsData); err != nil {
		log.WithError(err).Error("UI Return getCyclePayouts Failure")
	}
}
