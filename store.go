package corrdist

import (
	"errors"
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring"
)

// ErrMissingAssociation is returned when a distance query references a node
// that has no stored LocalPCA. This is never silently treated as zero
// distance: the caller either bound the distance function to the wrong
// dataset or queried before preprocessing finished.
var ErrMissingAssociation = errors.New("no local PCA association for node")

// AssociationState is the dataset-level lifecycle of an association store.
//
// The state is per dataset, not per point: Ready means every point of the
// bound dataset has a stored result.
type AssociationState int32

const (
	// StateUnset means no preprocessing pass has completed for this store.
	StateUnset AssociationState = iota

	// StateComputing means a preprocessing pass is in flight. Distance
	// queries must not run against points still being computed.
	StateComputing

	// StateReady means every point's LocalPCA has been stored.
	StateReady
)

// String returns a human-readable state name.
func (s AssociationState) String() string {
	switch s {
	case StateUnset:
		return "unset"
	case StateComputing:
		return "computing"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// AssociationStore maps node IDs to their LocalPCA results for one dataset
// session. It acts as a cache for the preprocessing pass: a Ready store is
// reused as-is by later pipeline stages unless recomputation is forced.
//
// Thread-safety: writes during a pass touch disjoint keys (each worker owns
// its node IDs) but still serialize through the mutex, since neither Go maps
// nor roaring bitmaps tolerate concurrent mutation. Reads after the pass are
// shared and contention-free in practice (RLock only).
type AssociationStore struct {
	// state is the dataset-level lifecycle position.
	state AssociationState

	// results maps node ID to its immutable LocalPCA.
	results map[uint32]*LocalPCA

	// computed tracks which node IDs hold results. The bitmap makes
	// missing-point enumeration during a resumed (non-forced) pass cheap
	// compared to probing the map per ID.
	computed *roaring.Bitmap

	// mu provides thread-safe access to the store.
	mu sync.RWMutex
}

// NewAssociationStore creates an empty store in the Unset state.
func NewAssociationStore() *AssociationStore {
	return &AssociationStore{
		state:    StateUnset,
		results:  make(map[uint32]*LocalPCA),
		computed: roaring.New(),
	}
}

// State returns the store's current lifecycle state.
func (s *AssociationStore) State() AssociationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsSet reports whether this kind of association has been fully computed for
// the bound dataset, i.e. the store is Ready.
func (s *AssociationStore) IsSet() bool {
	return s.State() == StateReady
}

// Set stores the LocalPCA for a node, overwriting any previous value.
func (s *AssociationStore) Set(id uint32, pca *LocalPCA) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[id] = pca
	s.computed.Add(id)
}

// Get returns the LocalPCA stored for a node.
// Returns ErrMissingAssociation if the node has none.
func (s *AssociationStore) Get(id uint32) (*LocalPCA, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pca, ok := s.results[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrMissingAssociation, id)
	}
	return pca, nil
}

// Has reports whether a result is stored for the node.
func (s *AssociationStore) Has(id uint32) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.computed.Contains(id)
}

// Len returns the number of stored results.
func (s *AssociationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

// beginComputing moves the store into Computing, clearing all stored results
// when reset is true (forced recomputation).
func (s *AssociationStore) beginComputing(reset bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateComputing
	if reset {
		s.results = make(map[uint32]*LocalPCA)
		s.computed = roaring.New()
	}
}

// markReady transitions Computing → Ready after a pass stored every point.
func (s *AssociationStore) markReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateReady
}

// abort returns the store to Unset after a failed pass. Individually computed
// results stay; they are valid on their own, and the next pass fills in what
// is missing. There is no exposed Failed state.
func (s *AssociationStore) abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateUnset
}
