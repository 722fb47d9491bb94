package api

import (
	"Go2NetBandwidth/internal/engine/aggregator"
	"Go2NetBandwidth/internal/engine/classifier"
	"Go2NetBandwidth/internal/model"
	"Go2NetBandwidth/internal/query"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type staticSource struct {
	snapshot *model.Snapshot
}

func (s *staticSource) Latest() *model.Snapshot { return s.snapshot }

type fakeQuerier struct {
	gotIP    model.Addr
	gotSince time.Time
	points   []query.HistoryPoint
	totals   []model.HostRecord
	err      error
}

func (q *fakeQuerier) HostHistory(_ context.Context, ip model.Addr, since time.Time) ([]query.HistoryPoint, error) {
	q.gotIP, q.gotSince = ip, since
	return q.points, q.err
}

func (q *fakeQuerier) HostTotals(_ context.Context, since time.Time) ([]model.HostRecord, error) {
	q.gotSince = since
	return q.totals, q.err
}

func (q *fakeQuerier) Close() error { return nil }

func mustAddr(t *testing.T, s string) model.Addr {
	t.Helper()
	a, err := model.ParseAddr(s)
	if err != nil {
		t.Fatalf("ParseAddr(%q): %v", s, err)
	}
	return a
}

func newTestHandler(t *testing.T, src SnapshotSource, q query.Querier) (*Handler, *aggregator.Aggregator) {
	t.Helper()
	c := classifier.New()
	c.AddNetwork(mustAddr(t, "10.0.0.0"), mustAddr(t, "255.255.255.0"))
	agg := aggregator.New(c)
	h := NewHandler(src, agg, c, q)
	h.now = func() time.Time { return time.Unix(100000, 0) }
	return h, agg
}

func doGet(t *testing.T, h *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthAndNetworks(t *testing.T) {
	h, agg := newTestHandler(t, &staticSource{}, nil)
	agg.AddPacket(&model.IPHeader{Version: 4, Protocol: model.ProtoUDP, Src: mustAddr(t, "10.0.0.5"), Dst: mustAddr(t, "8.8.8.8"), Length: 60})

	rec := doGet(t, h, "/api/v1/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var health map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatalf("Failed to decode health: %v", err)
	}
	if health["status"] != "ok" || health["tracked_hosts"] != float64(1) {
		t.Errorf("Unexpected health response: %v", health)
	}

	rec = doGet(t, h, "/api/v1/networks")
	var networks map[string][]string
	if err := json.NewDecoder(rec.Body).Decode(&networks); err != nil {
		t.Fatalf("Failed to decode networks: %v", err)
	}
	if len(networks["networks"]) != 1 || networks["networks"][0] != "10.0.0.0/255.255.255.0" {
		t.Errorf("Unexpected networks: %v", networks)
	}
}

func TestHostsEndpoints(t *testing.T) {
	src := &staticSource{}
	h, agg := newTestHandler(t, src, nil)

	rec := doGet(t, h, "/api/v1/hosts")
	var empty hostsResponse
	if err := json.NewDecoder(rec.Body).Decode(&empty); err != nil {
		t.Fatalf("Failed to decode hosts: %v", err)
	}
	if empty.Timestamp != nil || len(empty.Hosts) != 0 {
		t.Errorf("Expected no hosts before the first flush, got %+v", empty)
	}

	agg.AddPacket(&model.IPHeader{Version: 4, Protocol: model.ProtoTCP, Src: mustAddr(t, "10.0.0.5"), Dst: mustAddr(t, "1.1.1.1"), Length: 100})
	src.snapshot = agg.Flush(time.Unix(5000, 0))

	rec = doGet(t, h, "/api/v1/hosts")
	var resp hostsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode hosts: %v", err)
	}
	if len(resp.Hosts) != 1 || resp.Hosts[0].IP != "10.0.0.5" || resp.Hosts[0].External.TCPBytes != 100 {
		t.Errorf("Unexpected hosts response: %+v", resp)
	}

	if rec := doGet(t, h, "/api/v1/hosts/10.0.0.5"); rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for a known host, got %d", rec.Code)
	}
	if rec := doGet(t, h, "/api/v1/hosts/10.0.0.99"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for an unknown host, got %d", rec.Code)
	}
	if rec := doGet(t, h, "/api/v1/hosts/not-an-ip"); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an invalid ip, got %d", rec.Code)
	}

	// The flush emptied the live table.
	if rec := doGet(t, h, "/api/v1/hosts/10.0.0.5/current"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for current interval after flush, got %d", rec.Code)
	}
	agg.AddPacket(&model.IPHeader{Version: 4, Protocol: model.ProtoICMP, Src: mustAddr(t, "8.8.8.8"), Dst: mustAddr(t, "10.0.0.5"), Length: 84})
	rec = doGet(t, h, "/api/v1/hosts/10.0.0.5/current")
	var current hostView
	if err := json.NewDecoder(rec.Body).Decode(&current); err != nil {
		t.Fatalf("Failed to decode current: %v", err)
	}
	if current.External.BytesReceived != 84 || current.External.ICMPBytes != 84 {
		t.Errorf("Unexpected current counters: %+v", current)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	h, _ := newTestHandler(t, &staticSource{}, nil)
	if rec := doGet(t, h, "/api/v1/hosts/10.0.0.5/history"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without a querier, got %d", rec.Code)
	}

	q := &fakeQuerier{points: []query.HistoryPoint{
		{Timestamp: time.Unix(1000, 0), External: model.TrafficSummary{BytesSent: 60}},
	}}
	h, _ = newTestHandler(t, &staticSource{}, q)

	rec := doGet(t, h, "/api/v1/hosts/10.0.0.5/history?since=2023-11-14T22:13:20Z")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp historyResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode history: %v", err)
	}
	if len(resp.Points) != 1 || resp.Points[0].External.BytesSent != 60 {
		t.Errorf("Unexpected history: %+v", resp)
	}
	if q.gotIP.String() != "10.0.0.5" || q.gotSince.Unix() != 1700000000 {
		t.Errorf("Querier called with %s since %s", q.gotIP, q.gotSince)
	}

	doGet(t, h, "/api/v1/hosts/10.0.0.5/history")
	if q.gotSince.Unix() != 100000-int64(defaultHistoryWindow/time.Second) {
		t.Errorf("Expected default window, got since %d", q.gotSince.Unix())
	}

	if rec := doGet(t, h, "/api/v1/hosts/10.0.0.5/history?since=yesterday"); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid since, got %d", rec.Code)
	}

	q.err = errors.New("connection refused")
	if rec := doGet(t, h, "/api/v1/hosts/10.0.0.5/history"); rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 on query failure, got %d", rec.Code)
	}
}

func TestTotalsEndpoint(t *testing.T) {
	q := &fakeQuerier{totals: []model.HostRecord{
		{Address: mustAddr(t, "10.0.0.5"), Internal: model.TrafficSummary{BytesSent: 7}},
	}}
	h, _ := newTestHandler(t, &staticSource{}, q)

	rec := doGet(t, h, "/api/v1/totals")
	var resp hostsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode totals: %v", err)
	}
	if len(resp.Hosts) != 1 || resp.Hosts[0].IP != "10.0.0.5" || resp.Hosts[0].Internal.BytesSent != 7 {
		t.Errorf("Unexpected totals: %+v", resp)
	}
}
