package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenWithEmptyURLReturnsNoopRecorder(t *testing.T) {
	r, err := Open("")
	require.NoError(t, err)
	require.NotNil(t, r)

	r.Record(EventIndexCreated, "person", "[]", "", "idx")

	events, err := r.RecentByType("person", 10)
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestNilRecorderRecordDoesNotPanic(t *testing.T) {
	var r *Recorder
	require.NotPanics(t, func() {
		r.Record(EventUpdateProcessed, "person", "[]", "subject-1", "update")
	})
}

func TestNilRecorderRecentByTypeReturnsEmpty(t *testing.T) {
	var r *Recorder
	events, err := r.RecentByType("person", 10)
	require.NoError(t, err)
	require.Empty(t, events)
}
