package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bassins/bassins-api/internal/stats"
)

// metric is one Server-Timing entry; dur is in milliseconds.
type metric struct {
	name string
	dur  float64
}

// addServerTiming reports how long the store work behind a response took,
// e.g. "stats;dur=12.3".
func addServerTiming(w http.ResponseWriter, metrics ...metric) {
	if len(metrics) == 0 {
		return
	}
	parts := make([]string, 0, len(metrics))
	for _, m := range metrics {
		parts = append(parts, fmt.Sprintf("%s;dur=%.1f", m.name, m.dur))
	}
	w.Header().Add("Server-Timing", strings.Join(parts, ", "))
}

func timing(name string, start time.Time) metric {
	return metric{name: name, dur: float64(time.Since(start).Microseconds()) / 1000}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type messageBody struct {
	Message string `json:"message"`
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageBody{Message: msg})
}

// writeError maps engine failures to status codes: validation 400, no data
// 404, store trouble 503.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	var verr *stats.ValidationError
	switch {
	case errors.As(err, &verr):
		writeMessage(w, http.StatusBadRequest, "Paramètre invalide: "+verr.Error())
	case errors.Is(err, stats.ErrNotFound):
		writeMessage(w, http.StatusNotFound, notFoundMsg)
	case errors.Is(err, stats.ErrStoreUnavailable):
		h.log.WithRequest(r).WithError(err).Warn("record store unavailable")
		w.Header().Set("Retry-After", "5")
		writeMessage(w, http.StatusServiceUnavailable, "Base de données indisponible, réessayez plus tard")
	default:
		h.log.WithRequest(r).WithError(err).Error("request failed")
		writeMessage(w, http.StatusInternalServerError, "Erreur lors de la récupération des données")
	}
}
