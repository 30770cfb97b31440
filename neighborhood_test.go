package corrdist

import (
	"errors"
	"testing"
)

// lineDataset builds a 1-D-ish dataset of points along the x-axis at integer
// spacing and returns it plus the nodes in insertion order.
func lineDataset(t *testing.T, count int) (*Dataset, []*Node) {
	t.Helper()
	ds := NewDataset(2)
	nodes := make([]*Node, count)
	for i := 0; i < count; i++ {
		n := NewVectorNode([]float32{float32(i), 0})
		if err := ds.Add(n); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		nodes[i] = n
	}
	return ds, nodes
}

// TestKNNProviderNeighborhood verifies size, ordering and membership of kNN
// neighborhoods.
func TestKNNProviderNeighborhood(t *testing.T) {
	ds, nodes := lineDataset(t, 10)

	provider, err := NewKNNProvider(3, Euclidean)
	if err != nil {
		t.Fatalf("NewKNNProvider() error = %v", err)
	}
	if provider.K() != 3 {
		t.Errorf("K() = %d, want 3", provider.K())
	}

	// Anchor at x=0: nearest three are itself, x=1, x=2.
	neighborhood, err := provider.Neighborhood(nodes[0], ds)
	if err != nil {
		t.Fatalf("Neighborhood() error = %v", err)
	}
	if len(neighborhood) != 3 {
		t.Fatalf("Neighborhood() returned %d nodes, want 3", len(neighborhood))
	}
	if neighborhood[0].ID() != nodes[0].ID() {
		t.Errorf("nearest neighbor ID = %d, want the anchor %d", neighborhood[0].ID(), nodes[0].ID())
	}
	for i := 1; i < len(neighborhood); i++ {
		if neighborhood[i].Vector()[0] != float32(i) {
			t.Errorf("neighbor[%d] at x=%v, want x=%v", i, neighborhood[i].Vector()[0], float32(i))
		}
	}
}

// TestKNNProviderClampsToDatasetSize verifies k larger than the dataset
// returns everything rather than failing.
func TestKNNProviderClampsToDatasetSize(t *testing.T) {
	ds, nodes := lineDataset(t, 4)

	provider, err := NewKNNProvider(100, Euclidean)
	if err != nil {
		t.Fatalf("NewKNNProvider() error = %v", err)
	}
	neighborhood, err := provider.Neighborhood(nodes[2], ds)
	if err != nil {
		t.Fatalf("Neighborhood() error = %v", err)
	}
	if len(neighborhood) != 4 {
		t.Errorf("Neighborhood() returned %d nodes, want all 4", len(neighborhood))
	}
}

// TestKNNProviderDeterministic verifies repeated calls return the same
// ordered neighborhood — the PCA result depends on it.
func TestKNNProviderDeterministic(t *testing.T) {
	ds := NewDataset(2)
	// Several points tied at the same distance from the anchor.
	anchor := NewVectorNode([]float32{0, 0})
	if err := ds.Add(anchor); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	for _, v := range [][]float32{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
		if err := ds.Add(NewVectorNode(v)); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	provider, err := NewKNNProvider(3, Euclidean)
	if err != nil {
		t.Fatalf("NewKNNProvider() error = %v", err)
	}

	first, err := provider.Neighborhood(anchor, ds)
	if err != nil {
		t.Fatalf("Neighborhood() error = %v", err)
	}
	for trial := 0; trial < 5; trial++ {
		again, err := provider.Neighborhood(anchor, ds)
		if err != nil {
			t.Fatalf("Neighborhood() error = %v", err)
		}
		for i := range first {
			if first[i].ID() != again[i].ID() {
				t.Fatalf("trial %d: neighborhood order changed at %d: %d vs %d",
					trial, i, first[i].ID(), again[i].ID())
			}
		}
	}
}

// TestRangeProviderNeighborhood verifies the epsilon cutoff and ordering.
func TestRangeProviderNeighborhood(t *testing.T) {
	ds, nodes := lineDataset(t, 10)

	provider, err := NewRangeProvider(2.5, Euclidean)
	if err != nil {
		t.Fatalf("NewRangeProvider() error = %v", err)
	}
	if provider.Epsilon() != 2.5 {
		t.Errorf("Epsilon() = %v, want 2.5", provider.Epsilon())
	}

	// Anchor at x=4: within radius 2.5 are x in [2, 6].
	neighborhood, err := provider.Neighborhood(nodes[4], ds)
	if err != nil {
		t.Fatalf("Neighborhood() error = %v", err)
	}
	if len(neighborhood) != 5 {
		t.Fatalf("Neighborhood() returned %d nodes, want 5", len(neighborhood))
	}
	if neighborhood[0].ID() != nodes[4].ID() {
		t.Errorf("nearest member ID = %d, want the anchor %d", neighborhood[0].ID(), nodes[4].ID())
	}
	for i := 1; i < len(neighborhood); i++ {
		dx := float64(neighborhood[i].Vector()[0]) - 4
		if dx > 2.5 || dx < -2.5 {
			t.Errorf("neighbor[%d] at x=%v outside radius", i, neighborhood[i].Vector()[0])
		}
	}
}

// TestProviderConstructionErrors exercises invalid provider parameters.
func TestProviderConstructionErrors(t *testing.T) {
	if _, err := NewKNNProvider(0, Euclidean); !errors.Is(err, ErrInvalidNeighborhoodSize) {
		t.Errorf("NewKNNProvider(0) error = %v, want ErrInvalidNeighborhoodSize", err)
	}
	if _, err := NewKNNProvider(-3, Euclidean); !errors.Is(err, ErrInvalidNeighborhoodSize) {
		t.Errorf("NewKNNProvider(-3) error = %v, want ErrInvalidNeighborhoodSize", err)
	}
	if _, err := NewKNNProvider(5, "manhattan"); !errors.Is(err, ErrUnknownDistanceKind) {
		t.Errorf("NewKNNProvider(bad metric) error = %v, want ErrUnknownDistanceKind", err)
	}
	if _, err := NewRangeProvider(0, Euclidean); !errors.Is(err, ErrInvalidEpsilon) {
		t.Errorf("NewRangeProvider(0) error = %v, want ErrInvalidEpsilon", err)
	}
	if _, err := NewRangeProvider(1, "manhattan"); !errors.Is(err, ErrUnknownDistanceKind) {
		t.Errorf("NewRangeProvider(bad metric) error = %v, want ErrUnknownDistanceKind", err)
	}
}

// TestNeighborhoodDimensionMismatch verifies anchors of the wrong
// dimensionality are rejected.
func TestNeighborhoodDimensionMismatch(t *testing.T) {
	ds, _ := lineDataset(t, 4)

	provider, err := NewKNNProvider(2, Euclidean)
	if err != nil {
		t.Fatalf("NewKNNProvider() error = %v", err)
	}

	anchor := NewVectorNode([]float32{1, 2, 3})
	if _, err := provider.Neighborhood(anchor, ds); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Neighborhood() error = %v, want ErrDimensionMismatch", err)
	}
}

// TestSanitizeK pins the shared k-limiting behavior.
func TestSanitizeK(t *testing.T) {
	tests := []struct {
		name       string
		k          int
		maxResults int
		want       int
	}{
		{"within bounds", 3, 10, 3},
		{"zero k", 0, 10, 10},
		{"negative k", -1, 10, 10},
		{"k above max", 15, 10, 10},
		{"exact max", 10, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeK(tt.k, tt.maxResults); got != tt.want {
				t.Errorf("sanitizeK(%d, %d) = %d, want %d", tt.k, tt.maxResults, got, tt.want)
			}
		})
	}
}
