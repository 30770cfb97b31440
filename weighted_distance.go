package corrdist

import (
	"errors"
	"sync"
)

// ErrNotBound is returned when a distance query is issued before the distance
// function has been bound to a dataset.
var ErrNotBound = errors.New("distance function not bound to a dataset")

// DistanceConfig configures a LocallyWeightedDistance.
type DistanceConfig struct {
	// Preprocessor selects and configures the preprocessing strategy that
	// computes per-point local PCA results.
	Preprocessor PreprocessorConfig

	// Force recomputes every point's association on Bind even when the
	// dataset's store is already Ready. Without it, associations computed by
	// an earlier (possibly different) pipeline stage are reused untouched.
	Force bool
}

// DefaultDistanceConfig returns a configuration using the default kNN
// preprocessor without forced recomputation.
func DefaultDistanceConfig() DistanceConfig {
	return DistanceConfig{
		Preprocessor: DefaultPreprocessorConfig(),
	}
}

// LocallyWeightedDistance computes the locally adaptive quadratic-form
// distance between two points p and q of a bound dataset:
//
//	distance(p, q) = max( sqrt(δᵀ·M_p·δ), sqrt(δᵀ·M_q·δ) )   with δ = p − q
//
// where M_p and M_q are the points' local PCA weight matrices. The two
// directional terms are individually asymmetric — each point judges the
// displacement against its own local subspace — and the max makes the result
// symmetric: large whenever either point considers the other an outlier.
// Given strictly positive eigenspace weights the result is non-negative and
// zero iff the vectors coincide, a proper dissimilarity for density-based
// clustering.
//
// Thread-safety: Bind is exclusive; Distance is safe for unbounded concurrent
// use once Bind has returned.
type LocallyWeightedDistance struct {
	config       DistanceConfig
	preprocessor *Preprocessor

	// metrics receives one event per Distance call. Never nil.
	metrics MetricsSink

	// dataset and store are the bound session; both nil until Bind.
	dataset *Dataset
	store   *AssociationStore

	// mu guards rebinding against in-flight queries.
	mu sync.RWMutex
}

// NewLocallyWeightedDistance creates a distance function from the given
// configuration. The function is inert until bound to a dataset.
func NewLocallyWeightedDistance(config DistanceConfig) (*LocallyWeightedDistance, error) {
	preprocessor, err := NewPreprocessor(config.Preprocessor)
	if err != nil {
		return nil, err
	}
	return &LocallyWeightedDistance{
		config:       config,
		preprocessor: preprocessor,
		metrics:      nopMetrics{},
	}, nil
}

// SetMetrics injects a sink for the per-call distance-computation counter.
// Passing nil restores the discarding default. Not safe to call concurrently
// with Distance; inject before issuing queries.
func (l *LocallyWeightedDistance) SetMetrics(sink MetricsSink) {
	if sink == nil {
		sink = nopMetrics{}
	}
	l.metrics = sink
}

// Bind attaches the distance function to a dataset and ensures every point
// has a local PCA association, running the preprocessing pass when the
// dataset's store is not already Ready (or unconditionally when Force is
// configured).
//
// A failed pass leaves the function unbound and the store short of Ready;
// Bind can be retried, resuming from the points already computed.
func (l *LocallyWeightedDistance) Bind(ds *Dataset) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	store := ds.Associations()
	if l.config.Force || !store.IsSet() {
		if err := l.preprocessor.Run(ds, store, l.config.Force); err != nil {
			return err
		}
	}

	l.dataset = ds
	l.store = store
	return nil
}

// Dataset returns the bound dataset, or nil before Bind.
func (l *LocallyWeightedDistance) Dataset() *Dataset {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.dataset
}

// Distance computes the locally weighted distance between the points with
// the given IDs.
//
// Returns ErrNotBound before Bind, ErrNodeNotFound for IDs outside the
// dataset, and ErrMissingAssociation when a point has no stored local PCA
// (for example when querying while a forced recomputation is still running).
// A missing association is never treated as zero distance.
//
// The happy path performs no allocations for full-precision datasets: two
// map lookups per operand and an O(d²) flat-slice quadratic form per weight
// matrix.
func (l *LocallyWeightedDistance) Distance(p, q uint32) (float64, error) {
	l.metrics.DistanceComputed()

	l.mu.RLock()
	ds, store := l.dataset, l.store
	l.mu.RUnlock()

	if ds == nil {
		return 0, ErrNotBound
	}

	pcaP, err := store.Get(p)
	if err != nil {
		return 0, err
	}
	pcaQ, err := store.Get(q)
	if err != nil {
		return 0, err
	}

	nodeP, err := ds.Get(p)
	if err != nil {
		return 0, err
	}
	nodeQ, err := ds.Get(q)
	if err != nil {
		return 0, err
	}

	// δ enters both quadratic forms squared, so the p−q vs q−p orientation
	// cannot change either term; evaluate both with the same operand order.
	distP := pcaP.quadraticDistance(nodeP.Vector(), nodeQ.Vector())
	distQ := pcaQ.quadraticDistance(nodeP.Vector(), nodeQ.Vector())

	if distP > distQ {
		return distP, nil
	}
	return distQ, nil
}
