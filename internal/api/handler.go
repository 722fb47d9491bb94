package api

import (
	"Go2NetBandwidth/internal/engine/aggregator"
	"Go2NetBandwidth/internal/engine/classifier"
	"Go2NetBandwidth/internal/model"
	"Go2NetBandwidth/internal/query"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// defaultHistoryWindow applies when a request carries no since parameter.
const defaultHistoryWindow = 24 * time.Hour

// SnapshotSource provides the most recently flushed snapshot.
type SnapshotSource interface {
	Latest() *model.Snapshot
}

// hostView is the JSON form of a host record.
type hostView struct {
	IP       string               `json:"ip"`
	Internal model.TrafficSummary `json:"internal"`
	External model.TrafficSummary `json:"external"`
}

type hostsResponse struct {
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Hosts     []hostView `json:"hosts"`
}

type historyResponse struct {
	IP     string               `json:"ip"`
	Since  time.Time            `json:"since"`
	Points []query.HistoryPoint `json:"points"`
}

// Handler holds the dependencies for API handlers. querier may be nil.
type Handler struct {
	latest     SnapshotSource
	aggregator *aggregator.Aggregator
	classifier *classifier.Classifier
	querier    query.Querier
	now        func() time.Time
}

// NewHandler creates the API handler.
func NewHandler(latest SnapshotSource, agg *aggregator.Aggregator, c *classifier.Classifier, q query.Querier) *Handler {
	return &Handler{latest: latest, aggregator: agg, classifier: c, querier: q, now: time.Now}
}

// Router registers every route on a new gorilla/mux router.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/health", h.healthHandler).Methods(http.MethodGet)
	v1.HandleFunc("/networks", h.networksHandler).Methods(http.MethodGet)
	v1.HandleFunc("/hosts", h.hostsHandler).Methods(http.MethodGet)
	v1.HandleFunc("/hosts/{ip}", h.hostHandler).Methods(http.MethodGet)
	v1.HandleFunc("/hosts/{ip}/current", h.currentHandler).Methods(http.MethodGet)
	v1.HandleFunc("/hosts/{ip}/history", h.historyHandler).Methods(http.MethodGet)
	v1.HandleFunc("/totals", h.totalsHandler).Methods(http.MethodGet)
	return r
}

func (h *Handler) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"status": "ok"}
	if h.aggregator != nil {
		resp["tracked_hosts"] = h.aggregator.Len()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) networksHandler(w http.ResponseWriter, r *http.Request) {
	networks := []string{}
	for _, n := range h.classifier.Networks() {
		networks = append(networks, n.String())
	}
	writeJSON(w, http.StatusOK, map[string][]string{"networks": networks})
}

// hostsHandler returns the latest flushed snapshot.
func (h *Handler) hostsHandler(w http.ResponseWriter, r *http.Request) {
	resp := hostsResponse{Hosts: []hostView{}}
	if snap := h.latest.Latest(); snap != nil {
		ts := snap.Timestamp
		resp.Timestamp = &ts
		for _, host := range snap.Hosts {
			resp.Hosts = append(resp.Hosts, toView(host))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// hostHandler returns one host from the latest flushed snapshot.
func (h *Handler) hostHandler(w http.ResponseWriter, r *http.Request) {
	addr, ok := parseIPVar(w, r)
	if !ok {
		return
	}
	if snap := h.latest.Latest(); snap != nil {
		for _, host := range snap.Hosts {
			if host.Address == addr {
				writeJSON(w, http.StatusOK, toView(host))
				return
			}
		}
	}
	http.Error(w, fmt.Sprintf("host %s not found in the latest snapshot", addr), http.StatusNotFound)
}

// currentHandler returns a host's counters for the interval still being accumulated.
func (h *Handler) currentHandler(w http.ResponseWriter, r *http.Request) {
	addr, ok := parseIPVar(w, r)
	if !ok {
		return
	}
	if h.aggregator == nil {
		http.Error(w, "live counters are not available", http.StatusServiceUnavailable)
		return
	}
	host, found := h.aggregator.Host(addr)
	if !found {
		http.Error(w, fmt.Sprintf("host %s has no traffic in the current interval", addr), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toView(host))
}

func (h *Handler) historyHandler(w http.ResponseWriter, r *http.Request) {
	addr, ok := parseIPVar(w, r)
	if !ok {
		return
	}
	since, ok := h.parseSince(w, r)
	if !ok {
		return
	}
	if h.querier == nil {
		http.Error(w, query.ErrNoBackend.Error(), http.StatusServiceUnavailable)
		return
	}

	points, err := h.querier.HostHistory(r.Context(), addr, since)
	if err != nil {
		h.queryError(w, err)
		return
	}
	if points == nil {
		points = []query.HistoryPoint{}
	}
	writeJSON(w, http.StatusOK, historyResponse{IP: addr.String(), Since: since, Points: points})
}

func (h *Handler) totalsHandler(w http.ResponseWriter, r *http.Request) {
	since, ok := h.parseSince(w, r)
	if !ok {
		return
	}
	if h.querier == nil {
		http.Error(w, query.ErrNoBackend.Error(), http.StatusServiceUnavailable)
		return
	}

	hosts, err := h.querier.HostTotals(r.Context(), since)
	if err != nil {
		h.queryError(w, err)
		return
	}
	resp := hostsResponse{Hosts: []hostView{}}
	for _, host := range hosts {
		resp.Hosts = append(resp.Hosts, toView(host))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) parseSince(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("since")
	if raw == "" {
		return h.now().Add(-defaultHistoryWindow), true
	}
	since, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid since parameter: %v", err), http.StatusBadRequest)
		return time.Time{}, false
	}
	return since, true
}

func (h *Handler) queryError(w http.ResponseWriter, err error) {
	if errors.Is(err, query.ErrNoBackend) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	log.Printf("API query failed: %v", err)
	http.Error(w, fmt.Sprintf("failed to query history: %v", err), http.StatusInternalServerError)
}

func parseIPVar(w http.ResponseWriter, r *http.Request) (model.Addr, bool) {
	addr, err := model.ParseAddr(mux.Vars(r)["ip"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return 0, false
	}
	return addr, true
}

func toView(h model.HostRecord) hostView {
	return hostView{IP: h.Address.String(), Internal: h.Internal, External: h.External}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("API failed to encode response: %v", err)
	}
}
