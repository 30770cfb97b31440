package corrdist

import "sync/atomic"

// nodeIDCounter is a package-level counter for auto-incrementing node IDs
var nodeIDCounter uint32

// Node is one data point: a stable identity plus a fixed-length float32
// vector. Identity is distinct from value — two nodes may share coordinates
// and still be different points. The vector is treated as immutable once the
// node has been added to a Dataset; all downstream analysis (neighborhood
// selection, local PCA, distance queries) assumes it never changes.
type Node struct {
	id     uint32
	vector []float32
}

// NewVectorNode creates a new Node with an auto-incremented ID.
// The initializer is thread-safe and can be used concurrently.
func NewVectorNode(vector []float32) *Node {
	id := atomic.AddUint32(&nodeIDCounter, 1)
	return &Node{
		id:     id,
		vector: vector,
	}
}

// newNodeWithID creates a Node with an explicit ID. Used by quantized
// datasets to rebuild nodes from their stored representation without
// consuming fresh IDs.
func newNodeWithID(id uint32, vector []float32) *Node {
	return &Node{id: id, vector: vector}
}

// ID returns the ID of the node
func (n *Node) ID() uint32 {
	return n.id
}

// Vector returns the vector of the node
func (n *Node) Vector() []float32 {
	return n.vector
}

// Dim returns the dimensionality of the node's vector
func (n *Node) Dim() int {
	return len(n.vector)
}

// ComparableTo returns true if the node is comparable to another node.
// Two nodes are comparable if they have the same dimension.
func (n *Node) ComparableTo(other *Node) bool {
	return len(n.vector) == len(other.vector)
}

// Copy returns a copy of the node
func (n *Node) Copy() *Node {
	return &Node{
		id:     n.id,
		vector: append([]float32{}, n.vector...),
	}
}

// Float64 returns the node's vector widened to float64, appended to dst.
// All scatter-matrix and quadratic-form arithmetic runs in float64 even
// though vectors are stored as float32; this is the widening point.
//
// Passing a reusable dst slice avoids per-call allocation in loops:
//
//	buf := make([]float64, 0, dim)
//	for _, n := range neighborhood {
//	    buf = n.Float64(buf[:0])
//	    // ... consume buf ...
//	}
func (n *Node) Float64(dst []float64) []float64 {
	for _, v := range n.vector {
		dst = append(dst, float64(v))
	}
	return dst
}
