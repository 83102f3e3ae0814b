package updatequeue

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/evalgo/semindex/apperr"
	"github.com/natefinch/atomic"
)

// persist serializes the queue and sidecar map to h.persistPath using an
// atomic rename, so a crash mid-write never corrupts the durable file
// (§4.2 Persistence; grounded on the teacher's atomic.WriteFile usage for
// its own durable cache).
func (h *Handler) persist() error {
	if h.persistPath == "" {
		return nil
	}
	data, err := json.Marshal(h.queue.snapshot())
	if err != nil {
		return apperr.New(apperr.Config, "updatequeue.persist", err)
	}
	if err := atomic.WriteFile(h.persistPath, bytes.NewReader(data)); err != nil {
		return apperr.New(apperr.Transient, "updatequeue.persist", err)
	}
	return nil
}

// restore loads a previously persisted snapshot, if any, before workers
// start. A missing file is not an error: it means a first boot or a clean
// shutdown with nothing in flight.
func (h *Handler) restore() error {
	if h.persistPath == "" {
		return nil
	}
	data, err := os.ReadFile(h.persistPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return apperr.New(apperr.Config, "updatequeue.restore", err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return apperr.New(apperr.Config, "updatequeue.restore", err)
	}
	h.queue.restore(snap)
	return nil
}
