package web

import (
	"context"
	"encoding/json"
	"image/png"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reacttest/internal/config"
	"reacttest/internal/game"
	"reacttest/internal/lcd"
	"reacttest/internal/model"
	"reacttest/internal/render"
	"reacttest/internal/stats"
)

type fixedStatus game.Status

func (f fixedStatus) Status() game.Status { return game.Status(f) }

func newTestServer(cfg *config.Config) (*Server, *stats.History, *render.Canvas) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	h := stats.NewHistory(10)
	c := render.NewCanvas(128, 128)
	st := fixedStatus{State: "awaiting_match", Stimulus: "left", Rounds: 4}
	return NewServer(cfg, st, h, c), h, c
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(nil)
	rec := get(t, s.Handler(), "/health")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("/health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestState(t *testing.T) {
	s, _, _ := newTestServer(nil)
	rec := get(t, s.Handler(), "/api/state")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var st game.Status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.State != "awaiting_match" || st.Stimulus != "left" || st.Rounds != 4 {
		t.Errorf("state = %+v", st)
	}
}

func TestStateWithoutEngine(t *testing.T) {
	s := NewServer(config.DefaultConfig(), nil, stats.NewHistory(1), nil)
	if rec := get(t, s.Handler(), "/api/state"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestRounds(t *testing.T) {
	s, h, _ := newTestServer(nil)
	for i, st := range []model.Stimulus{model.Up, model.Cross, model.Right} {
		h.Add(model.Result{Stimulus: st, Millis: 100 * (i + 1), Digits: "00100"})
	}

	tests := []struct {
		path string
		want []int
	}{
		{"/api/rounds", []int{100, 200, 300}},
		{"/api/rounds?limit=2", []int{200, 300}},
		{"/api/rounds?limit=0", []int{}},
		{"/api/rounds?limit=bogus", []int{100, 200, 300}},
		{"/api/rounds?limit=-4", []int{}},
	}
	for _, tt := range tests {
		rec := get(t, s.Handler(), tt.path)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", tt.path, rec.Code)
		}
		var resp struct {
			Rounds []struct {
				Stimulus string `json:"stimulus"`
				Millis   int    `json:"millis"`
			} `json:"rounds"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		if len(resp.Rounds) != len(tt.want) {
			t.Errorf("%s: %d rounds, want %d", tt.path, len(resp.Rounds), len(tt.want))
			continue
		}
		for i, r := range resp.Rounds {
			if r.Millis != tt.want[i] {
				t.Errorf("%s: round %d = %d ms, want %d", tt.path, i, r.Millis, tt.want[i])
			}
		}
	}
}

func TestRoundsEncodeStimulusByName(t *testing.T) {
	s, h, _ := newTestServer(nil)
	h.Add(model.Result{Stimulus: model.Cross, Millis: -10})
	rec := get(t, s.Handler(), "/api/rounds")
	var resp struct {
		Rounds []map[string]any `json:"rounds"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if got := resp.Rounds[0]["stimulus"]; got != "cross" {
		t.Errorf("stimulus = %v, want \"cross\"", got)
	}
}

func TestStats(t *testing.T) {
	s, h, _ := newTestServer(nil)
	h.Add(model.Result{Stimulus: model.Up, Millis: 200})
	h.Add(model.Result{Stimulus: model.Up, Millis: 400})
	rec := get(t, s.Handler(), "/api/stats")
	var sum stats.Summary
	if err := json.NewDecoder(rec.Body).Decode(&sum); err != nil {
		t.Fatal(err)
	}
	if sum.Count != 2 || sum.BestMs != 200 || sum.WorstMs != 400 || sum.MeanMs != 300 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestPreview(t *testing.T) {
	s, _, c := newTestServer(nil)
	_ = c.SetPixel(63, 63, lcd.Magenta)

	rec := get(t, s.Handler(), "/preview.png")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if r, g, b, _ := img.At(63, 63).RGBA(); r != 0xFFFF || g != 0 || b != 0xFFFF {
		t.Errorf("pixel = %x %x %x, want magenta", r, g, b)
	}
}

func TestPreviewWithoutCanvas(t *testing.T) {
	s := NewServer(config.DefaultConfig(), nil, stats.NewHistory(1), nil)
	if rec := get(t, s.Handler(), "/preview.png"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestUnknownAPIPath(t *testing.T) {
	s, _, _ := newTestServer(nil)
	rec := get(t, s.Handler(), "/api/nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "s3cret"}
	s, _, _ := newTestServer(cfg)
	h := s.Handler()

	if rec := get(t, h, "/health"); rec.Code != http.StatusOK {
		t.Errorf("/health without auth = %d", rec.Code)
	}
	rec := get(t, h, "/api/state")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("/api/state without auth = %d", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate")
	}

	tests := []struct {
		user, pass string
		want       int
	}{
		{"admin", "s3cret", http.StatusOK},
		{"admin", "wrong", http.StatusUnauthorized},
		{"root", "s3cret", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
		req.SetBasicAuth(tt.user, tt.pass)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("%s/%s = %d, want %d", tt.user, tt.pass, rec.Code, tt.want)
		}
	}
}

func TestBasicAuthDisabledWhenIncomplete(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin"}
	s, _, _ := newTestServer(cfg)
	if rec := get(t, s.Handler(), "/api/state"); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with auth disabled", rec.Code)
	}
}

func TestStartServerShutsDown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skip("no loopback:", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	cfg := config.DefaultConfig()
	cfg.Listen = addr
	s, _, _ := newTestServer(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- StartServer(ctx, s) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get("http://" + addr + "/health")
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("StartServer() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
