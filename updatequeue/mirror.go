package updatequeue

import (
	"context"
	"fmt"
	"time"

	"github.com/evalgo/semindex/model"
	"github.com/evalgo/semindex/telemetry"
	"github.com/redis/go-redis/v9"
)

// Mirror is the optional, best-effort distributed-coalescing hook
// (SPEC_FULL.md §9 "distributed coalescing"). It is never consulted for
// correctness: the in-process queue remains the sole authority over
// eligibility and dispatch. A Mirror only gives operators running more
// than one instance a shared view of what has been accepted.
type Mirror interface {
	MirrorAdd(subject, typeName string, kind model.UpdateKind)
}

type noopMirror struct{}

func (noopMirror) MirrorAdd(string, string, model.UpdateKind) {}

// RedisMirror mirrors accepted entries into a Redis set keyed by subject,
// after they've already been accepted into the local queue. Failures are
// logged and otherwise ignored: losing the mirror never blocks or fails
// local processing.
type RedisMirror struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisMirror wraps an existing go-redis client. keyPrefix namespaces
// the mirrored keys (e.g. "semindex:updatequeue:").
func NewRedisMirror(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisMirror {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisMirror{client: client, prefix: keyPrefix, ttl: ttl}
}

func (m *RedisMirror) MirrorAdd(subject, typeName string, kind model.UpdateKind) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := m.prefix + subject
	if err := m.client.SAdd(ctx, key, fmt.Sprintf("%s:%s", kind, typeName)).Err(); err != nil {
		telemetry.Component("updatequeue").WithError(err).Debug("redis mirror add failed, continuing")
		return
	}
	m.client.Expire(ctx, key, m.ttl)
}
