package corrdist

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNodeNotFound is returned when a dataset lookup references an unknown node ID.
var ErrNodeNotFound = errors.New("node not found in dataset")

// ErrDimensionMismatch is returned when a vector's dimensionality does not
// match the dataset's configured dimensionality.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Dataset is an in-memory collection of nodes, keyed by node ID and iterable
// in insertion order. It is the fixed snapshot the local PCA pass and the
// distance queries operate on: vectors are immutable once added, and the
// ordering of IDs() is stable across calls.
//
// Thread-safety: safe for concurrent use through a read-write mutex. The
// preprocessing pass holds only read access across many goroutines; Add
// operations are exclusive and expected to happen before preprocessing.
type Dataset struct {
	// dim is the dimensionality every vector in this dataset must have.
	dim int

	// quantizer, when non-nil, compresses vectors for storage. Full-precision
	// datasets keep nodes directly and skip the encode/decode round trip.
	quantizer Quantizer

	// order records node IDs in insertion order.
	order []uint32

	// nodes holds full-precision nodes. Populated only when quantizer is nil.
	nodes map[uint32]*Node

	// encoded holds quantized vector representations. Populated only when
	// quantizer is non-nil.
	encoded map[uint32]any

	// associations is the per-dataset local PCA store. Owning it here scopes
	// the association cache to one dataset session, so distance functions
	// bound later reuse results computed by earlier pipeline stages.
	associations *AssociationStore

	// mu provides thread-safe access to the dataset.
	mu sync.RWMutex
}

// NewDataset creates an empty full-precision dataset for vectors of the given
// dimensionality. Panics are avoided in favor of Add-time validation, so a
// dataset with dim <= 0 simply rejects every vector.
func NewDataset(dim int) *Dataset {
	return &Dataset{
		dim:          dim,
		nodes:        make(map[uint32]*Node),
		associations: NewAssociationStore(),
	}
}

// NewQuantizedDataset creates an empty dataset that stores vectors through the
// given quantization type. Use HalfPrecision to halve vector memory when the
// dataset is large; Get then decodes on demand.
func NewQuantizedDataset(dim int, qType QuantizerType) (*Dataset, error) {
	q, err := NewQuantizer(qType)
	if err != nil {
		return nil, err
	}
	return &Dataset{
		dim:          dim,
		quantizer:    q,
		encoded:      make(map[uint32]any),
		associations: NewAssociationStore(),
	}, nil
}

// Add inserts a node into the dataset.
// Returns ErrDimensionMismatch if the node's vector has the wrong length, and
// an error if the node's ID is already present.
func (d *Dataset) Add(n *Node) error {
	if n.Dim() != d.dim {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, d.dim, n.Dim())
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.quantizer != nil {
		if _, exists := d.encoded[n.ID()]; exists {
			return fmt.Errorf("node ID %d already present in dataset", n.ID())
		}
		stored, err := d.quantizer.Quantize(n.Vector())
		if err != nil {
			return err
		}
		d.encoded[n.ID()] = stored
	} else {
		if _, exists := d.nodes[n.ID()]; exists {
			return fmt.Errorf("node ID %d already present in dataset", n.ID())
		}
		d.nodes[n.ID()] = n
	}

	d.order = append(d.order, n.ID())
	return nil
}

// Get returns the node with the given ID.
// Full-precision datasets return the stored node without copying; quantized
// datasets decode a fresh node on every call.
// Returns ErrNodeNotFound for unknown IDs.
func (d *Dataset) Get(id uint32) (*Node, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.quantizer != nil {
		stored, ok := d.encoded[id]
		if !ok {
			return nil, fmt.Errorf("%w: id %d", ErrNodeNotFound, id)
		}
		vec, err := d.quantizer.Dequantize(stored)
		if err != nil {
			return nil, err
		}
		return newNodeWithID(id, vec), nil
	}

	n, ok := d.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrNodeNotFound, id)
	}
	return n, nil
}

// IDs returns all node IDs in insertion order. The returned slice is a copy.
func (d *Dataset) IDs() []uint32 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := make([]uint32, len(d.order))
	copy(ids, d.order)
	return ids
}

// Nodes returns all nodes in insertion order.
// For quantized datasets every node is decoded, so the result is a snapshot
// rather than a view of storage.
func (d *Dataset) Nodes() ([]*Node, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]*Node, 0, len(d.order))
	for _, id := range d.order {
		if d.quantizer != nil {
			vec, err := d.quantizer.Dequantize(d.encoded[id])
			if err != nil {
				return nil, err
			}
			result = append(result, newNodeWithID(id, vec))
		} else {
			result = append(result, d.nodes[id])
		}
	}
	return result, nil
}

// Len returns the number of nodes in the dataset
func (d *Dataset) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.order)
}

// Dim returns the dimensionality of vectors stored in this dataset
func (d *Dataset) Dim() int {
	return d.dim
}

// Associations returns the dataset's local PCA association store. Every
// distance function bound to this dataset shares it, so a Ready store
// computed by one pipeline stage is visible to the next.
func (d *Dataset) Associations() *AssociationStore {
	return d.associations
}

// Quantization returns the storage precision of this dataset.
func (d *Dataset) Quantization() QuantizerType {
	if d.quantizer != nil {
		return d.quantizer.Type()
	}
	return FullPrecision
}
