package corrdist

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// ErrUnknownPreprocessorKind is returned when an unknown preprocessor kind is
// provided to NewPreprocessor.
var ErrUnknownPreprocessorKind = errors.New("unknown preprocessor kind")

// PreprocessorKind names a preprocessing strategy. Strategies differ only in
// how they pick each point's neighborhood; the PCA analysis downstream is
// identical. Selection by kind string keeps the configuration surface flat
// for the surrounding system without resorting to dynamic class loading.
type PreprocessorKind string

const (
	// KNNQueryPreprocessor estimates local structure from each point's k
	// nearest neighbors. The default strategy.
	KNNQueryPreprocessor PreprocessorKind = "knn_query"

	// RangeQueryPreprocessor estimates local structure from all points
	// within an epsilon radius of each point.
	RangeQueryPreprocessor PreprocessorKind = "range_query"
)

// PreprocessorConfig configures a preprocessing pass.
type PreprocessorConfig struct {
	// Kind selects the neighborhood strategy.
	Kind PreprocessorKind

	// K is the neighborhood size for KNNQueryPreprocessor. When K <= 0 the
	// pass derives k = 3·dim from the bound dataset's dimensionality, the
	// usual rule of thumb for a well-conditioned local scatter estimate.
	K int

	// Epsilon is the query radius for RangeQueryPreprocessor. Must be
	// positive for that kind; ignored otherwise.
	Epsilon float32

	// Metric is the base metric used for neighborhood selection.
	Metric DistanceKind

	// PCA configures the local PCA engine.
	PCA PCAConfig

	// Workers bounds the parallelism of the pass. When <= 0 the pass uses
	// one worker per CPU.
	Workers int
}

// DefaultPreprocessorConfig returns a kNN-based configuration with derived
// neighborhood size, Euclidean base metric, and default PCA settings.
func DefaultPreprocessorConfig() PreprocessorConfig {
	return PreprocessorConfig{
		Kind:   KNNQueryPreprocessor,
		Metric: Euclidean,
		PCA:    DefaultPCAConfig(),
	}
}

// Preprocessor runs the one-time local PCA pass over a dataset, storing one
// LocalPCA per point in an AssociationStore.
//
// The pass is embarrassingly parallel: workers share the read-only dataset
// and each writes only its own points' results. Any per-point failure aborts
// the whole pass — remaining work is drained, the first error is returned,
// and the store never reaches Ready.
type Preprocessor struct {
	config PreprocessorConfig
	engine *LocalPCAEngine

	// provider is nil for kNN kind with derived K; Run then builds a
	// provider sized to the bound dataset.
	provider NeighborhoodProvider
}

// NewPreprocessor creates a preprocessor for the given configuration.
// Returns ErrUnknownPreprocessorKind for an unrecognized kind, and the
// underlying validation errors for bad PCA, metric, or neighborhood settings.
func NewPreprocessor(config PreprocessorConfig) (*Preprocessor, error) {
	engine, err := NewLocalPCAEngine(config.PCA)
	if err != nil {
		return nil, err
	}

	p := &Preprocessor{config: config, engine: engine}

	switch config.Kind {
	case KNNQueryPreprocessor:
		if config.K > 0 {
			provider, err := NewKNNProvider(config.K, config.Metric)
			if err != nil {
				return nil, err
			}
			p.provider = provider
		} else if _, err := NewDistance(config.Metric); err != nil {
			// Derived-K providers are built at Run time; validate the
			// metric now so misconfiguration fails at construction.
			return nil, err
		}
	case RangeQueryPreprocessor:
		provider, err := NewRangeProvider(config.Epsilon, config.Metric)
		if err != nil {
			return nil, err
		}
		p.provider = provider
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreprocessorKind, config.Kind)
	}

	return p, nil
}

// Kind returns the preprocessor's strategy kind.
func (p *Preprocessor) Kind() PreprocessorKind {
	return p.config.Kind
}

// Run executes the preprocessing pass against ds, populating store.
//
// With force set, every point is recomputed and previous results are
// discarded; otherwise only points without a stored result are processed, so
// an aborted earlier pass resumes where it left off. On success the store is
// Ready; on failure it returns to Unset with no partial Ready state.
func (p *Preprocessor) Run(ds *Dataset, store *AssociationStore, force bool) error {
	provider := p.provider
	if provider == nil {
		k := 3 * ds.Dim()
		if k < 1 {
			k = 1
		}
		var err error
		provider, err = NewKNNProvider(k, p.config.Metric)
		if err != nil {
			return err
		}
	}

	store.beginComputing(force)

	pending := ds.IDs()
	if !force {
		remaining := pending[:0]
		for _, id := range pending {
			if !store.Has(id) {
				remaining = append(remaining, id)
			}
		}
		pending = remaining
	}

	if err := p.runParallel(ds, store, provider, pending); err != nil {
		store.abort()
		return err
	}

	store.markReady()
	return nil
}

// runParallel fans the pending IDs out over a worker pool. The first error
// wins; later jobs are drained without work so close/Wait still line up.
func (p *Preprocessor) runParallel(ds *Dataset, store *AssociationStore, provider NeighborhoodProvider, pending []uint32) error {
	if len(pending) == 0 {
		return nil
	}

	workers := p.config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(pending) {
		workers = len(pending)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	jobs := make(chan uint32)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				mu.Lock()
				failed := firstErr != nil
				mu.Unlock()
				if failed {
					continue
				}

				if err := p.processPoint(ds, store, provider, id); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				}
			}
		}()
	}

	for _, id := range pending {
		jobs <- id
	}
	close(jobs)
	wg.Wait()

	return firstErr
}

// processPoint computes and stores one point's LocalPCA.
func (p *Preprocessor) processPoint(ds *Dataset, store *AssociationStore, provider NeighborhoodProvider, id uint32) error {
	node, err := ds.Get(id)
	if err != nil {
		return err
	}

	neighborhood, err := provider.Neighborhood(node, ds)
	if err != nil {
		return fmt.Errorf("neighborhood for node %d: %w", id, err)
	}

	pca, err := p.engine.ComputeLocalPCA(node, neighborhood)
	if err != nil {
		return fmt.Errorf("local PCA for node %d: %w", id, err)
	}

	store.Set(id, pca)
	return nil
}
