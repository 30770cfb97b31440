package corrdist

import (
	"sync"
	"testing"
)

// TestNewVectorNodeUniqueIDs verifies concurrent construction never reuses
// an ID.
func TestNewVectorNodeUniqueIDs(t *testing.T) {
	const goroutines = 8
	const perGoroutine = 100

	var mu sync.Mutex
	seen := make(map[uint32]bool)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				n := NewVectorNode([]float32{1})
				mu.Lock()
				if seen[n.ID()] {
					t.Errorf("duplicate node ID %d", n.ID())
				}
				seen[n.ID()] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
}

// TestNodeAccessors covers the basic accessors.
func TestNodeAccessors(t *testing.T) {
	n := NewVectorNode([]float32{1, 2, 3})

	if n.Dim() != 3 {
		t.Errorf("Dim() = %d, want 3", n.Dim())
	}
	if got := n.Vector(); len(got) != 3 || got[1] != 2 {
		t.Errorf("Vector() = %v, want [1 2 3]", got)
	}

	other := NewVectorNode([]float32{4, 5, 6})
	if !n.ComparableTo(other) {
		t.Error("ComparableTo() = false for same-dimension nodes")
	}
	if n.ComparableTo(NewVectorNode([]float32{1})) {
		t.Error("ComparableTo() = true across dimensions")
	}
}

// TestNodeCopyIndependence verifies Copy detaches the vector but keeps the
// identity.
func TestNodeCopyIndependence(t *testing.T) {
	n := NewVectorNode([]float32{1, 2})
	c := n.Copy()

	if c.ID() != n.ID() {
		t.Errorf("Copy().ID() = %d, want %d", c.ID(), n.ID())
	}

	c.Vector()[0] = 42
	if n.Vector()[0] != 1 {
		t.Error("mutating the copy changed the original vector")
	}
}

// TestNodeFloat64 verifies widening, including reuse of the destination
// buffer.
func TestNodeFloat64(t *testing.T) {
	n := NewVectorNode([]float32{1.5, -2.5})

	widened := n.Float64(nil)
	if len(widened) != 2 || widened[0] != 1.5 || widened[1] != -2.5 {
		t.Errorf("Float64(nil) = %v, want [1.5 -2.5]", widened)
	}

	buf := make([]float64, 0, 2)
	reused := n.Float64(buf[:0])
	if &reused[0] != &buf[:1][0] {
		t.Error("Float64 reallocated despite sufficient capacity")
	}
}
