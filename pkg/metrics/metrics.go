// Package metrics holds the process wide counters exposed on the admin
// endpoint.
package metrics

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// Counters records runtime statistics of the simulation and the relay.
// All methods are safe for concurrent use.
type Counters struct {
	TickCount   atomic.Int64
	TotalTickNs atomic.Int64
	Players     atomic.Int64

	SessionsOpened atomic.Int64
	SessionsClosed atomic.Int64

	InputsAccepted    atomic.Int64
	InputsDropped     atomic.Int64 // inbound queue full
	DecodeErrors      atomic.Int64
	OutboundDropped   atomic.Int64 // outbound queue full
	OutboundDeferred  atomic.Int64 // reliable, retried next tick
	UnknownRecipients atomic.Int64
	DatagramsSent     atomic.Int64
	DatagramsDropped  atomic.Int64 // peer send buffer full
	StreamsSent       atomic.Int64
	PeersStalled      atomic.Int64
}

func New() *Counters {
	return &Counters{}
}

func (m *Counters) AddTick(d time.Duration) {
	m.TickCount.Add(1)
	m.TotalTickNs.Add(d.Nanoseconds())
}

// Snapshot returns a read-only copy suitable for JSON output.
func (m *Counters) Snapshot() map[string]any {
	tick := m.TickCount.Load()
	total := m.TotalTickNs.Load()
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":         tick,
		"avg_tick_ms":        avgMs,
		"players":            m.Players.Load(),
		"sessions_opened":    m.SessionsOpened.Load(),
		"sessions_closed":    m.SessionsClosed.Load(),
		"inputs_accepted":    m.InputsAccepted.Load(),
		"inputs_dropped":     m.InputsDropped.Load(),
		"decode_errors":      m.DecodeErrors.Load(),
		"outbound_dropped":   m.OutboundDropped.Load(),
		"outbound_deferred":  m.OutboundDeferred.Load(),
		"unknown_recipients": m.UnknownRecipients.Load(),
		"datagrams_sent":     m.DatagramsSent.Load(),
		"datagrams_dropped":  m.DatagramsDropped.Load(),
		"streams_sent":       m.StreamsSent.Load(),
		"peers_stalled":      m.PeersStalled.Load(),
	}
}

// Source contributes an extra named section to the metrics payload.
type Source func() any

// Handler serves the counters plus every extra source as JSON.
func Handler(m *Counters, extra map[string]Source) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		payload := map[string]any{
			"metrics": m.Snapshot(),
		}
		for name, src := range extra {
			payload[name] = src()
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	})
}

// Health answers liveness probes.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
}

// Mux builds the admin routes.
func Mux(m *Counters, extra map[string]Source) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(m, extra))
	mux.HandleFunc("/healthz", Health)
	return mux
}
