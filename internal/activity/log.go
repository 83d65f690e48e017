package activity

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	entriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "acip_activity_entries_total",
		Help: "Number of activity entries recorded, by status",
	}, []string{"status"})
	broadcastFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "acip_activity_broadcast_failures_total",
		Help: "Number of activity sink publish failures",
	})
)

// Log keeps per-case ordered activity entries and broadcasts each entry to
// the registered sinks.
type Log struct {
	mu         sync.Mutex
	entries    map[string][]Entry
	startTimes map[string]time.Time
	sinks      []Sink
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures the Log.
type Option func(*Log)

// WithLogger sets the logger used to report sink failures.
func WithLogger(l *slog.Logger) Option {
	return func(lg *Log) { lg.logger = l }
}

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(lg *Log) { lg.now = now }
}

// NewLog creates an activity log.
func NewLog(opts ...Option) *Log {
	l := &Log{
		entries:    make(map[string][]Entry),
		startTimes: make(map[string]time.Time),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RegisterSink adds a sink that receives every recorded entry.
func (l *Log) RegisterSink(s Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, s)
}

// Record appends an entry for the case and broadcasts it.
// A terminal status (success, warning, error) closes the matching started
// action and stamps the elapsed duration on the entry.
func (l *Log) Record(ctx context.Context, caseID string, actor Actor, action, detail string, status Status, data map[string]any) Entry {
	now := l.now().UTC()
	actionKey := fmt.Sprintf("%s:%s:%s", caseID, actor, action)

	l.mu.Lock()

	var durationMs int64
	switch status {
	case StatusStarted:
		l.startTimes[actionKey] = now
	case StatusSuccess, StatusWarning, StatusError:
		if start, ok := l.startTimes[actionKey]; ok {
			durationMs = now.Sub(start).Milliseconds()
			delete(l.startTimes, actionKey)
		}
	}

	entry := Entry{
		Sequence:   len(l.entries[caseID]) + 1,
		Timestamp:  now,
		CaseID:     caseID,
		Actor:      actor,
		Action:     action,
		Detail:     detail,
		Status:     status,
		DurationMs: durationMs,
		Data:       data,
	}
	l.entries[caseID] = append(l.entries[caseID], entry)

	sinks := make([]Sink, len(l.sinks))
	copy(sinks, l.sinks)
	l.mu.Unlock()

	entriesTotal.WithLabelValues(string(status)).Inc()

	for _, sink := range sinks {
		if err := sink.Publish(ctx, entry); err != nil {
			broadcastFailures.Inc()
			if l.logger != nil {
				l.logger.WarnContext(ctx, "activity broadcast failed",
					"case_id", caseID,
					"action", action,
					"error", err,
				)
			}
		}
	}

	return entry
}

// Entries returns the ordered activity entries for a case.
func (l *Log) Entries(caseID string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	src := l.entries[caseID]
	out := make([]Entry, len(src))
	copy(out, src)
	return out
}

// Clear removes the entries for a case.
func (l *Log) Clear(caseID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, caseID)
}
