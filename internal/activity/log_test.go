package activity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_Record(t *testing.T) {
	ctx := context.Background()

	t.Run("entries carry monotonic per-case sequence", func(t *testing.T) {
		log := NewLog()

		log.Record(ctx, "CASE-1", ActorSystem, "Case Received", "starting", StatusStarted, nil)
		log.Record(ctx, "CASE-1", ActorDocumentInspector, "Extracting Data", "analyzing", StatusInProgress, nil)
		log.Record(ctx, "CASE-2", ActorSystem, "Case Received", "starting", StatusStarted, nil)

		one := log.Entries("CASE-1")
		require.Len(t, one, 2)
		assert.Equal(t, 1, one[0].Sequence)
		assert.Equal(t, 2, one[1].Sequence)

		two := log.Entries("CASE-2")
		require.Len(t, two, 1)
		assert.Equal(t, 1, two[0].Sequence)
	})

	t.Run("terminal status stamps duration from matching start", func(t *testing.T) {
		current := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
		log := NewLog(WithClock(func() time.Time { return current }))

		log.Record(ctx, "CASE-1", ActorDocumentInspector, "Extracting Data", "go", StatusStarted, nil)

		current = current.Add(750 * time.Millisecond)
		entry := log.Record(ctx, "CASE-1", ActorDocumentInspector, "Extracting Data", "done", StatusSuccess, nil)

		assert.Equal(t, int64(750), entry.DurationMs)

		// Start time is consumed; a second completion has no duration.
		entry = log.Record(ctx, "CASE-1", ActorDocumentInspector, "Extracting Data", "done", StatusSuccess, nil)
		assert.Zero(t, entry.DurationMs)
	})

	t.Run("duration is tracked per case, actor and action", func(t *testing.T) {
		current := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
		log := NewLog(WithClock(func() time.Time { return current }))

		log.Record(ctx, "CASE-1", ActorDocumentInspector, "Extracting Data", "go", StatusStarted, nil)
		current = current.Add(time.Second)

		// Different actor, same action: no matching start.
		entry := log.Record(ctx, "CASE-1", ActorExternalVerifier, "Extracting Data", "done", StatusSuccess, nil)
		assert.Zero(t, entry.DurationMs)
	})

	t.Run("sink receives every entry", func(t *testing.T) {
		log := NewLog()

		var mu sync.Mutex
		var received []Entry
		log.RegisterSink(SinkFunc(func(_ context.Context, e Entry) error {
			mu.Lock()
			defer mu.Unlock()
			received = append(received, e)
			return nil
		}))

		log.Record(ctx, "CASE-1", ActorSystem, "Case Received", "starting", StatusStarted, nil)
		log.Record(ctx, "CASE-1", ActorSystem, "Case Complete", "done", StatusSuccess, nil)

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, received, 2)
		assert.Equal(t, "Case Received", received[0].Action)
	})

	t.Run("sink failure never blocks recording", func(t *testing.T) {
		log := NewLog()
		log.RegisterSink(SinkFunc(func(context.Context, Entry) error {
			return errors.New("broker unavailable")
		}))

		entry := log.Record(ctx, "CASE-1", ActorSystem, "Case Received", "starting", StatusStarted, nil)
		assert.Equal(t, 1, entry.Sequence)
		assert.Len(t, log.Entries("CASE-1"), 1)
	})

	t.Run("clear removes case entries", func(t *testing.T) {
		log := NewLog()
		log.Record(ctx, "CASE-1", ActorSystem, "Case Received", "starting", StatusStarted, nil)

		log.Clear("CASE-1")
		assert.Empty(t, log.Entries("CASE-1"))
	})
}

func TestActorDisplayName(t *testing.T) {
	assert.Equal(t, "Document Inspector", ActorDocumentInspector.DisplayName())
	assert.Equal(t, "Compliance Officer", ActorComplianceOfficer.DisplayName())
	assert.Equal(t, "reviewer-sarah", Actor("reviewer-sarah").DisplayName())
}
