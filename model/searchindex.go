package model

import (
	"fmt"
	"sync"
)

// IndexStatus is the lifecycle state of a SearchIndex (§3 Lifecycles).
type IndexStatus string

const (
	StatusValid    IndexStatus = "valid"
	StatusInvalid  IndexStatus = "invalid"
	StatusUpdating IndexStatus = "updating"
)

// SearchIndex is one physical search-engine index, scoped to a document
// type and an authorization-group partition. Two indexes sharing the same
// (TypeName, AllowedGroups canonical key) are forbidden; the Index Registry
// enforces this at creation time.
type SearchIndex struct {
	mu sync.Mutex

	URI           string
	Name          string
	TypeName      string
	AllowedGroups AuthorizationGroupSet
	IsEager       bool
	status        IndexStatus
	gate          *ReadyGate
}

// NewSearchIndex constructs a SearchIndex in status invalid (the state a
// freshly created, not-yet-built index starts in per §4.4 fetchIndexes).
func NewSearchIndex(uri, name, typeName string, groups AuthorizationGroupSet, eager bool) *SearchIndex {
	idx := &SearchIndex{
		URI:           uri,
		Name:          name,
		TypeName:      typeName,
		AllowedGroups: groups,
		IsEager:       eager,
		status:        StatusInvalid,
		gate:          NewReadyGate(),
	}
	idx.gate.Set()
	return idx
}

// Status returns the current lifecycle status under the index's own mutex.
func (s *SearchIndex) Status() IndexStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Gate returns the index's readiness gate for callers that need to Wait on
// it directly (IndexManager.waitUntilReady).
func (s *SearchIndex) Gate() *ReadyGate {
	return s.gate
}

// TransitionToUpdating moves the index into status updating and resets its
// readiness gate, both under the index's mutex, so no waiter can observe a
// status of updating with a still-open gate.
func (s *SearchIndex) TransitionToUpdating() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusUpdating
	s.gate.Reset()
}

// TransitionTo moves the index into status (valid or invalid) and opens its
// readiness gate, both under the index's mutex.
func (s *SearchIndex) TransitionTo(status IndexStatus) {
	if status == StatusUpdating {
		s.TransitionToUpdating()
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.gate.Set()
}

// PartitionKey returns the (typeName, canonical group key) pair that
// uniquely identifies this index's slot in the Index Registry.
func (s *SearchIndex) PartitionKey() string {
	return PartitionKey(s.TypeName, s.AllowedGroups)
}

// PartitionKey computes the Index Registry lookup key for a (typeName,
// allowedGroups) pair without requiring a constructed SearchIndex.
func PartitionKey(typeName string, groups AuthorizationGroupSet) string {
	return fmt.Sprintf("%s\x00%s", typeName, groups.Key())
}

// UpdateKind discriminates the two actions an update queue entry can carry.
type UpdateKind string

const (
	UpdateKindUpdate UpdateKind = "update"
	UpdateKindDelete UpdateKind = "delete"
)
