package updatequeue

import (
	"context"
	"sync"
	"time"

	"github.com/evalgo/semindex/builder"
	"github.com/evalgo/semindex/metrics"
	"github.com/evalgo/semindex/model"
	"github.com/evalgo/semindex/registry"
	"github.com/evalgo/semindex/search"
	"github.com/evalgo/semindex/telemetry"
	"github.com/sirupsen/logrus"
)

// DefaultWorkerCount is the size of the bounded worker pool draining the
// queue (§5 "N update workers (default 2)").
const DefaultWorkerCount = 2

// DefaultPersistInterval is how often the queue and sidecar map are
// flushed to disk (§4.2 Persistence).
const DefaultPersistInterval = 5 * time.Minute

// Config configures a Handler.
type Config struct {
	WaitInterval    time.Duration
	WorkerCount     int
	PersistPath     string
	PersistInterval time.Duration
	Mirror          Mirror
	Metrics         *metrics.Recorder
}

// Handler owns the debounced queue, the worker pool draining it, and the
// periodic durable persistence of both (§4.2).
type Handler struct {
	queue   *queue
	builder *builder.Builder
	reg     *registry.Registry
	search  *search.Pool

	workerCount     int
	persistPath     string
	persistInterval time.Duration
	mirror          Mirror
	metrics         *metrics.Recorder

	stopCh chan struct{}
	wg     sync.WaitGroup

	log *logrus.Entry
}

// New constructs a Handler. b materializes documents, reg resolves the
// SearchIndexes registered for a type, searchPool upserts/deletes
// documents.
func New(b *builder.Builder, reg *registry.Registry, searchPool *search.Pool, cfg Config) *Handler {
	waitInterval := cfg.WaitInterval
	if waitInterval <= 0 {
		waitInterval = DefaultWaitInterval
	}
	workerCount := cfg.WorkerCount
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount
	}
	persistInterval := cfg.PersistInterval
	if persistInterval <= 0 {
		persistInterval = DefaultPersistInterval
	}
	mirror := cfg.Mirror
	if mirror == nil {
		mirror = noopMirror{}
	}

	return &Handler{
		queue:           newQueue(waitInterval),
		builder:         b,
		reg:             reg,
		search:          searchPool,
		workerCount:     workerCount,
		persistPath:     cfg.PersistPath,
		persistInterval: persistInterval,
		mirror:          mirror,
		metrics:         cfg.Metrics,
		stopCh:          make(chan struct{}),
		log:             telemetry.Component("updatequeue"),
	}
}

// AddUpdate enqueues an update action for subject under typeName.
func (h *Handler) AddUpdate(subject, typeName string) {
	h.queue.add(subject, typeName, model.UpdateKindUpdate)
	h.mirror.MirrorAdd(subject, typeName, model.UpdateKindUpdate)
}

// AddDelete enqueues a delete action for subject under typeName.
func (h *Handler) AddDelete(subject, typeName string) {
	h.queue.add(subject, typeName, model.UpdateKindDelete)
	h.mirror.MirrorAdd(subject, typeName, model.UpdateKindDelete)
}

// Start restores any persisted queue state, then starts the worker pool
// and the persistence ticker. It returns once both are running.
func (h *Handler) Start(ctx context.Context) error {
	if err := h.restore(); err != nil {
		return err
	}

	for i := 0; i < h.workerCount; i++ {
		h.wg.Add(1)
		go h.workerLoop(ctx, i)
	}

	h.wg.Add(1)
	go h.persistLoop()

	return nil
}

// Stop closes the queue, waits for in-flight work to finish, and persists
// final state.
func (h *Handler) Stop(ctx context.Context) error {
	close(h.stopCh)
	h.queue.close()
	h.wg.Wait()
	return h.persist()
}

func (h *Handler) workerLoop(ctx context.Context, id int) {
	defer h.wg.Done()
	for {
		subject, typeNames, kind, ok := h.queue.dequeue()
		if !ok {
			return
		}
		h.process(ctx, subject, typeNames, kind)
	}
}

// process implements the worker handler contract of §4.2: for each
// affected type, for each SearchIndex currently registered under it,
// index operations run independently so one failing index never blocks
// another.
func (h *Handler) process(ctx context.Context, subject string, typeNames []string, kind model.UpdateKind) {
	for _, typeName := range typeNames {
		for _, idx := range h.reg.ListByType(typeName) {
			if err := h.processIndex(ctx, subject, typeName, idx, kind); err != nil {
				h.log.WithError(err).
					WithField("subject", subject).
					WithField("type", typeName).
					WithField("index", idx.Name).
					Warn("update processing failed, entry will not be re-enqueued")
				continue
			}
			h.metrics.Record(metrics.EventUpdateProcessed, typeName, idx.AllowedGroups.Canonicalize().Key(), subject, string(kind))
		}
	}
}

func (h *Handler) processIndex(ctx context.Context, subject, typeName string, idx *model.SearchIndex, kind model.UpdateKind) error {
	client, release, err := h.search.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	id := model.DocumentID(subject)

	if kind == model.UpdateKindDelete {
		return client.DeleteDocument(ctx, idx.Name, id)
	}

	doc, err := h.builder.BuildDocument(ctx, subject, typeName, idx.AllowedGroups)
	if err != nil {
		return err
	}
	if doc == nil {
		// The resource is no longer of the required type: treat as a
		// delete from this one index (§9 open question 2).
		return client.DeleteDocument(ctx, idx.Name, id)
	}
	return client.UpsertDocument(ctx, idx.Name, id, doc)
}

func (h *Handler) persistLoop() {
	defer h.wg.Done()
	if h.persistPath == "" {
		<-h.stopCh
		return
	}
	ticker := time.NewTicker(h.persistInterval)
	defer ticker.Stop()
	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			if err := h.persist(); err != nil {
				h.log.WithError(err).Warn("failed to persist update queue")
			}
		}
	}
}
