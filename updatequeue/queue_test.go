package updatequeue

import (
	"testing"
	"time"

	"github.com/evalgo/semindex/model"
	"github.com/stretchr/testify/require"
)

func TestAddCoalescesTypeNamesForSameSubject(t *testing.T) {
	q := newQueue(10 * time.Millisecond)
	q.add("s1", "person", model.UpdateKindUpdate)
	q.add("s1", "organization", model.UpdateKindUpdate)

	subject, types, kind, ok := q.dequeue()
	require.True(t, ok)
	require.Equal(t, "s1", subject)
	require.Equal(t, model.UpdateKindUpdate, kind)
	require.ElementsMatch(t, []string{"person", "organization"}, types)
}

func TestDequeueWaitsForEligibility(t *testing.T) {
	q := newQueue(30 * time.Millisecond)
	start := time.Now()
	q.add("s1", "person", model.UpdateKindUpdate)

	_, _, _, ok := q.dequeue()
	elapsed := time.Since(start)
	require.True(t, ok)
	require.GreaterOrEqual(t, elapsed, 25*time.Millisecond)
}

func TestCloseUnblocksWaitingDequeue(t *testing.T) {
	q := newQueue(time.Hour)
	done := make(chan bool, 1)
	go func() {
		_, _, _, ok := q.dequeue()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.close()

	select {
	case ok := <-done:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not unblock after close")
	}
}

func TestSnapshotAndRestoreRoundTrip(t *testing.T) {
	q := newQueue(time.Hour)
	q.add("s1", "person", model.UpdateKindUpdate)
	q.add("s2", "organization", model.UpdateKindDelete)

	snap := q.snapshot()
	require.Len(t, snap.Entries, 2)

	restored := newQueue(time.Hour)
	restored.restore(snap)

	restored.mu.Lock()
	require.Len(t, restored.order, 2)
	restored.mu.Unlock()
}
