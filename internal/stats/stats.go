// Package stats keeps the most recent round results in memory and
// summarizes them.
package stats

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	appLog "reacttest/internal/log"
	"reacttest/internal/model"
)

// History is a fixed-size ring of results. Safe for concurrent use.
type History struct {
	mu   sync.RWMutex
	buf  []model.Result
	next int
	full bool
}

// NewHistory keeps the last n results (n < 1 is treated as 1).
func NewHistory(n int) *History {
	if n < 1 {
		n = 1
	}
	return &History{buf: make([]model.Result, n)}
}

// Add records r, evicting the oldest result when full.
func (h *History) Add(r model.Result) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf[h.next] = r
	h.next = (h.next + 1) % len(h.buf)
	if h.next == 0 {
		h.full = true
	}
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.full {
		return len(h.buf)
	}
	return h.next
}

// Recent returns the stored results, oldest first.
func (h *History) Recent() []model.Result {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.full {
		return append([]model.Result(nil), h.buf[:h.next]...)
	}
	out := make([]model.Result, 0, len(h.buf))
	out = append(out, h.buf[h.next:]...)
	return append(out, h.buf[:h.next]...)
}

// Summary aggregates the results currently in the history.
type Summary struct {
	Count      int            `json:"count"`
	BestMs     int            `json:"best_ms"`
	WorstMs    int            `json:"worst_ms"`
	MeanMs     float64        `json:"mean_ms"`
	ByStimulus map[string]int `json:"by_stimulus"`
	Last       *model.Result  `json:"last,omitempty"`
}

func (h *History) Summary() Summary {
	rs := h.Recent()
	s := Summary{Count: len(rs), ByStimulus: map[string]int{}}
	if len(rs) == 0 {
		return s
	}
	total := 0
	s.BestMs, s.WorstMs = rs[0].Millis, rs[0].Millis
	for _, r := range rs {
		total += r.Millis
		if r.Millis < s.BestMs {
			s.BestMs = r.Millis
		}
		if r.Millis > s.WorstMs {
			s.WorstMs = r.Millis
		}
		s.ByStimulus[r.Stimulus.String()]++
	}
	s.MeanMs = float64(total) / float64(len(rs))
	last := rs[len(rs)-1]
	s.Last = &last
	return s
}

// Schedule starts a cron job that logs the summary on spec (standard cron
// syntax or a descriptor such as "@every 5m"). Stop the returned cron to
// end it.
func Schedule(spec string, h *History) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { logSummary(h) }); err != nil {
		return nil, fmt.Errorf("stats: bad summary schedule %q: %w", spec, err)
	}
	c.Start()
	appLog.Info("summary schedule started", "spec", spec)
	return c, nil
}

func logSummary(h *History) {
	s := h.Summary()
	if s.Count == 0 {
		appLog.Info("results summary", "count", 0)
		return
	}
	appLog.Info("results summary",
		"count", s.Count,
		"best_ms", s.BestMs,
		"worst_ms", s.WorstMs,
		"mean_ms", fmt.Sprintf("%.1f", s.MeanMs),
	)
}
