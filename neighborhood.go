package corrdist

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidNeighborhoodSize is returned when a kNN provider is created with k <= 0.
var ErrInvalidNeighborhoodSize = errors.New("neighborhood size must be positive")

// ErrInvalidEpsilon is returned when a range provider is created with a non-positive radius.
var ErrInvalidEpsilon = errors.New("epsilon must be positive")

// NeighborhoodProvider selects, per anchor point, the ordered set of reference
// vectors used to estimate local structure. The local PCA result depends
// directly on this choice, so providers must be deterministic: the same anchor
// and dataset always produce the same ordered neighborhood.
//
// A neighborhood should contain at least dim+1 points for a well-conditioned
// scatter estimate. Smaller neighborhoods are tolerated — the PCA engine then
// reports fewer usable eigendirections rather than failing — but an empty
// neighborhood is an error at the consumer.
type NeighborhoodProvider interface {
	// Neighborhood returns the ordered reference set for anchor within ds,
	// nearest first under the provider's base metric. The anchor itself is a
	// member of the dataset and participates in its own neighborhood.
	Neighborhood(anchor *Node, ds *Dataset) ([]*Node, error)
}

// Compile-time checks that both providers implement NeighborhoodProvider
var (
	_ NeighborhoodProvider = (*KNNProvider)(nil)
	_ NeighborhoodProvider = (*RangeProvider)(nil)
)

// KNNProvider selects the k nearest neighbors of the anchor under a base
// metric, by exhaustive scan. Exhaustive search keeps recall at 100%, which
// matters here: the neighborhood feeds a covariance estimate, and an
// approximate neighbor set would silently bias the local structure.
//
// Time complexity per anchor: O(m*n + n*log(n)) where m is the
// dimensionality and n the dataset size.
type KNNProvider struct {
	k        int
	kind     DistanceKind
	distance Distance
}

// NewKNNProvider creates a kNN neighborhood provider.
// Returns ErrInvalidNeighborhoodSize if k <= 0, or ErrUnknownDistanceKind for
// an unrecognized base metric.
func NewKNNProvider(k int, kind DistanceKind) (*KNNProvider, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k=%d", ErrInvalidNeighborhoodSize, k)
	}
	distance, err := NewDistance(kind)
	if err != nil {
		return nil, err
	}
	return &KNNProvider{k: k, kind: kind, distance: distance}, nil
}

// K returns the configured neighborhood size.
func (p *KNNProvider) K() int {
	return p.k
}

// Neighborhood returns the k nodes nearest to anchor, nearest first.
// If the dataset holds fewer than k nodes, all of them are returned.
func (p *KNNProvider) Neighborhood(anchor *Node, ds *Dataset) ([]*Node, error) {
	candidates, err := rankByDistance(anchor, ds, p.distance)
	if err != nil {
		return nil, err
	}

	k := sanitizeK(p.k, len(candidates))
	neighbors := make([]*Node, k)
	for i := 0; i < k; i++ {
		neighbors[i] = candidates[i].node
	}
	return neighbors, nil
}

// RangeProvider selects every node within epsilon of the anchor under a base
// metric, ordered nearest first. Since the anchor is at distance zero from
// itself, a range neighborhood over a dataset containing the anchor is never
// empty.
type RangeProvider struct {
	epsilon  float32
	kind     DistanceKind
	distance Distance
}

// NewRangeProvider creates an epsilon-range neighborhood provider.
// Returns ErrInvalidEpsilon if epsilon <= 0, or ErrUnknownDistanceKind for an
// unrecognized base metric.
func NewRangeProvider(epsilon float32, kind DistanceKind) (*RangeProvider, error) {
	if epsilon <= 0 {
		return nil, fmt.Errorf("%w: epsilon=%v", ErrInvalidEpsilon, epsilon)
	}
	distance, err := NewDistance(kind)
	if err != nil {
		return nil, err
	}
	return &RangeProvider{epsilon: epsilon, kind: kind, distance: distance}, nil
}

// Epsilon returns the configured query radius.
func (p *RangeProvider) Epsilon() float32 {
	return p.epsilon
}

// Neighborhood returns all nodes within epsilon of anchor, nearest first.
func (p *RangeProvider) Neighborhood(anchor *Node, ds *Dataset) ([]*Node, error) {
	candidates, err := rankByDistance(anchor, ds, p.distance)
	if err != nil {
		return nil, err
	}

	neighbors := make([]*Node, 0, len(candidates))
	for _, c := range candidates {
		if c.distance > p.epsilon {
			break // candidates are sorted, nothing further qualifies
		}
		neighbors = append(neighbors, c.node)
	}
	return neighbors, nil
}

// rankedNode pairs a node with its distance to the current anchor.
type rankedNode struct {
	node     *Node
	distance float32
}

// rankByDistance scans the whole dataset and returns every node paired with
// its distance to the anchor, sorted ascending. Ties are broken by node ID so
// neighborhoods are deterministic across runs.
func rankByDistance(anchor *Node, ds *Dataset, distance Distance) ([]rankedNode, error) {
	if anchor.Dim() != ds.Dim() {
		return nil, fmt.Errorf("%w: anchor has %d, dataset has %d", ErrDimensionMismatch, anchor.Dim(), ds.Dim())
	}

	nodes, err := ds.Nodes()
	if err != nil {
		return nil, err
	}

	ranked := make([]rankedNode, len(nodes))
	for i, n := range nodes {
		ranked[i] = rankedNode{node: n, distance: distance.Calculate(anchor.Vector(), n.Vector())}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].distance != ranked[j].distance {
			return ranked[i].distance < ranked[j].distance
		}
		return ranked[i].node.ID() < ranked[j].node.ID()
	})

	return ranked, nil
}

// sanitizeK ensures k is within valid bounds [1, maxResults].
//
// If k is <= 0 or exceeds maxResults, it returns maxResults. This keeps
// neighborhood truncation consistent with how search result limiting behaves.
func sanitizeK(k, maxResults int) int {
	if k <= 0 || k > maxResults {
		return maxResults
	}
	return k
}
