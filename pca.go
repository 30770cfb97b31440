package corrdist

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrEmptyNeighborhood is returned when local PCA is requested for an empty
// neighborhood. An empty neighborhood never produces a zero matrix silently.
var ErrEmptyNeighborhood = errors.New("empty neighborhood")

// ErrEigenDecomposition is returned when the symmetric eigendecomposition of
// a scatter matrix fails to converge. This is the only fatal numeric failure;
// small negative eigenvalues from floating point error are clamped instead.
var ErrEigenDecomposition = errors.New("eigendecomposition did not converge")

// ErrInvalidPCAConfig is returned when a PCA configuration fails validation.
var ErrInvalidPCAConfig = errors.New("invalid PCA configuration")

// CenteringKind selects the reference point the scatter matrix is computed
// about. Both variants are legitimate local PCA formulations; which one fits
// depends on whether the anchor should count as the neighborhood's center of
// mass or as an observation like any other.
type CenteringKind string

const (
	// CentroidCentering computes the scatter about the neighborhood's mean.
	// This is the classical sample covariance shape and the default.
	CentroidCentering CenteringKind = "centroid"

	// AnchorCentering computes the scatter about the anchor point itself,
	// measuring variance of the neighborhood as seen from the anchor.
	AnchorCentering CenteringKind = "anchor"
)

// eigenvalueEpsilon is the tolerance below which eigenvalues are treated as
// zero. The scatter matrix is PSD by construction, so anything negative is
// floating point noise.
const eigenvalueEpsilon = 1e-12

var (
	// DefaultVarianceThreshold is the fraction of total variance the strong
	// eigendirections must explain before the remaining directions are
	// classified as correlation (weak) directions.
	DefaultVarianceThreshold = 0.85

	// DefaultStrongWeight is the quadratic-form weight along high-variance
	// (intrinsic) directions.
	DefaultStrongWeight = 1.0

	// DefaultWeakWeight is the quadratic-form weight along low-variance
	// (correlation) directions. Deviation along a weak direction violates the
	// local correlation structure, so it is penalized far more heavily.
	DefaultWeakWeight = 100.0
)

// PCAConfig controls how a neighborhood's scatter structure is turned into a
// weight matrix.
type PCAConfig struct {
	// VarianceThreshold is the variance-explained fraction in (0, 1] used to
	// pick the correlation dimension.
	VarianceThreshold float64

	// StrongWeight is the eigenspace weight for the first d (high-variance)
	// directions. Must be positive.
	StrongWeight float64

	// WeakWeight is the eigenspace weight for the remaining (low-variance)
	// directions. Must be positive, and is expected to dominate StrongWeight.
	WeakWeight float64

	// Centering selects the scatter reference point.
	Centering CenteringKind
}

// DefaultPCAConfig returns the standard configuration: 0.85 variance
// threshold, weights 1/100, centroid centering.
func DefaultPCAConfig() PCAConfig {
	return PCAConfig{
		VarianceThreshold: DefaultVarianceThreshold,
		StrongWeight:      DefaultStrongWeight,
		WeakWeight:        DefaultWeakWeight,
		Centering:         CentroidCentering,
	}
}

func (c PCAConfig) validate() error {
	if c.VarianceThreshold <= 0 || c.VarianceThreshold > 1 {
		return fmt.Errorf("%w: variance threshold %v outside (0, 1]", ErrInvalidPCAConfig, c.VarianceThreshold)
	}
	if c.StrongWeight <= 0 {
		return fmt.Errorf("%w: strong weight %v must be positive", ErrInvalidPCAConfig, c.StrongWeight)
	}
	if c.WeakWeight <= 0 {
		return fmt.Errorf("%w: weak weight %v must be positive", ErrInvalidPCAConfig, c.WeakWeight)
	}
	switch c.Centering {
	case CentroidCentering, AnchorCentering:
	default:
		return fmt.Errorf("%w: unknown centering kind %q", ErrInvalidPCAConfig, c.Centering)
	}
	return nil
}

// LocalPCA is the immutable result of analyzing one anchor's neighborhood:
// the eigenstructure of the local scatter matrix, the chosen correlation
// dimension, and the derived weight matrix used by the quadratic-form
// distance. Created once during preprocessing and never modified afterwards,
// so it is safe to read from any number of goroutines.
type LocalPCA struct {
	// ambient is the dimensionality of the underlying vector space.
	ambient int

	// eigenvalues of the scatter matrix, descending, clamped to >= 0.
	eigenvalues []float64

	// eigenvectors holds the matching eigenvectors as columns, in the same
	// descending-eigenvalue order.
	eigenvectors *mat.Dense

	// dim is the correlation dimension: the number of eigenvalues classified
	// as strong. Always in [1, ambient].
	dim int

	// weights is the ambient×ambient weight matrix M = V·diag(w)·Vᵀ stored
	// flat in row-major order. Kept as a plain slice so the distance hot loop
	// indexes it without interface or bounds-check overhead from matrix
	// accessors.
	weights []float64
}

// Eigenvalues returns the scatter matrix's eigenvalues in descending order.
// The returned slice is a copy.
func (l *LocalPCA) Eigenvalues() []float64 {
	out := make([]float64, len(l.eigenvalues))
	copy(out, l.eigenvalues)
	return out
}

// Eigenvectors returns the orthonormal eigenvector matrix, one eigenvector
// per column, ordered to match Eigenvalues. The returned matrix is a copy.
func (l *LocalPCA) Eigenvectors() *mat.Dense {
	return mat.DenseCopyOf(l.eigenvectors)
}

// CorrelationDimension returns the number of strong (high-variance)
// eigendirections.
func (l *LocalPCA) CorrelationDimension() int {
	return l.dim
}

// WeightMatrix returns the symmetric positive-semidefinite weight matrix M
// (also called the similarity matrix) that defines this point's quadratic
// form. The returned matrix is a copy.
func (l *LocalPCA) WeightMatrix() *mat.SymDense {
	m := mat.NewSymDense(l.ambient, nil)
	for i := 0; i < l.ambient; i++ {
		for j := i; j < l.ambient; j++ {
			m.SetSym(i, j, l.weights[i*l.ambient+j])
		}
	}
	return m
}

// quadraticDistance evaluates sqrt((p-q)ᵀ·M·(p-q)) without allocating.
//
// This is the inner loop of the consuming clustering algorithm and may run
// millions of times per session, hence direct flat-slice indexing rather than
// gonum matrix multiplication. The displacement components are recomputed per
// row: still O(d²), and it keeps the function free of scratch buffers so
// concurrent callers never contend.
func (l *LocalPCA) quadraticDistance(p, q []float32) float64 {
	n := l.ambient
	var sum float64
	for i := 0; i < n; i++ {
		di := float64(p[i]) - float64(q[i])
		if di == 0 {
			continue
		}
		row := l.weights[i*n : (i+1)*n]
		var acc float64
		for j := 0; j < n; j++ {
			acc += row[j] * (float64(p[j]) - float64(q[j]))
		}
		sum += di * acc
	}
	// M is PSD, so any negative sum is rounding noise near zero.
	if sum < 0 {
		sum = 0
	}
	return math.Sqrt(sum)
}

// LocalPCAEngine turns neighborhoods into LocalPCA results. The engine is
// stateless apart from its configuration and safe for concurrent use; the
// preprocessing pass shares one engine across all workers.
type LocalPCAEngine struct {
	config PCAConfig
}

// NewLocalPCAEngine creates an engine with the given configuration.
// Returns ErrInvalidPCAConfig if the configuration fails validation.
func NewLocalPCAEngine(config PCAConfig) (*LocalPCAEngine, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &LocalPCAEngine{config: config}, nil
}

// Config returns the engine's configuration.
func (e *LocalPCAEngine) Config() PCAConfig {
	return e.config
}

// ComputeLocalPCA analyzes one anchor's neighborhood.
//
// The algorithm:
//  1. Compute the scatter matrix of the neighborhood about its centroid (or
//     about the anchor, per configuration), scaled by the neighborhood size.
//  2. Eigendecompose it and order eigenpairs by descending eigenvalue,
//     clamping tiny negative eigenvalues from floating point error to zero.
//  3. Pick the correlation dimension d: the smallest prefix of eigenvalues
//     whose cumulative sum reaches VarianceThreshold of the total.
//  4. Weight the first d eigendirections with StrongWeight and the remaining
//     ones with WeakWeight, and assemble M = V·diag(w)·Vᵀ.
//
// Degenerate neighborhoods (fewer than dim+1 points, or duplicated points)
// yield rank-deficient scatter matrices; the result then simply has fewer
// non-zero eigendirections. Only an empty neighborhood is an error
// (ErrEmptyNeighborhood), as is a non-converging eigendecomposition
// (ErrEigenDecomposition).
func (e *LocalPCAEngine) ComputeLocalPCA(anchor *Node, neighborhood []*Node) (*LocalPCA, error) {
	if len(neighborhood) == 0 {
		return nil, fmt.Errorf("%w: anchor %d", ErrEmptyNeighborhood, anchor.ID())
	}

	dim := anchor.Dim()
	for _, nb := range neighborhood {
		if nb.Dim() != dim {
			return nil, fmt.Errorf("%w: anchor has %d, neighbor %d has %d", ErrDimensionMismatch, dim, nb.ID(), nb.Dim())
		}
	}

	scatter := e.scatterMatrix(anchor, neighborhood, dim)

	var eig mat.EigenSym
	if ok := eig.Factorize(scatter, true); !ok {
		return nil, fmt.Errorf("%w: anchor %d", ErrEigenDecomposition, anchor.ID())
	}

	// gonum reports eigenpairs in ascending order; reverse into the
	// descending order the dimension selection walks.
	ascending := eig.Values(nil)
	var ascendingVecs mat.Dense
	eig.VectorsTo(&ascendingVecs)

	eigenvalues := make([]float64, dim)
	eigenvectors := mat.NewDense(dim, dim, nil)
	for k := 0; k < dim; k++ {
		src := dim - 1 - k
		v := ascending[src]
		if v < 0 {
			// PSD up to floating tolerance: clamp numeric noise.
			v = 0
		}
		eigenvalues[k] = v
		for i := 0; i < dim; i++ {
			eigenvectors.Set(i, k, ascendingVecs.At(i, src))
		}
	}

	d := correlationDimension(eigenvalues, e.config.VarianceThreshold)

	weights := buildWeightMatrix(eigenvectors, d, e.config.StrongWeight, e.config.WeakWeight)

	return &LocalPCA{
		ambient:      dim,
		eigenvalues:  eigenvalues,
		eigenvectors: eigenvectors,
		dim:          d,
		weights:      weights,
	}, nil
}

// scatterMatrix computes S = (1/n)·Σ (x−c)(x−c)ᵀ over the neighborhood, with
// c either the neighborhood centroid or the anchor.
func (e *LocalPCAEngine) scatterMatrix(anchor *Node, neighborhood []*Node, dim int) *mat.SymDense {
	center := make([]float64, dim)
	switch e.config.Centering {
	case AnchorCentering:
		center = anchor.Float64(center[:0])
	default:
		for _, nb := range neighborhood {
			vec := nb.Vector()
			for i := range center {
				center[i] += float64(vec[i])
			}
		}
		inv := 1.0 / float64(len(neighborhood))
		for i := range center {
			center[i] *= inv
		}
	}

	scatter := mat.NewSymDense(dim, nil)
	centered := make([]float64, dim)
	centeredVec := mat.NewVecDense(dim, centered)
	for _, nb := range neighborhood {
		vec := nb.Vector()
		for i := range centered {
			centered[i] = float64(vec[i]) - center[i]
		}
		scatter.SymRankOne(scatter, 1, centeredVec)
	}

	inv := 1.0 / float64(len(neighborhood))
	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			scatter.SetSym(i, j, scatter.At(i, j)*inv)
		}
	}
	return scatter
}

// correlationDimension returns the smallest d such that the top d eigenvalues
// cover at least threshold of the total eigenvalue sum. Eigenvalues must be
// descending and non-negative. A zero total (all neighbors coincide) degrades
// to d = 1: one direction trivially explains all of no variance.
func correlationDimension(eigenvalues []float64, threshold float64) int {
	var total float64
	for _, v := range eigenvalues {
		total += v
	}
	if total <= eigenvalueEpsilon {
		return 1
	}

	var cumulative float64
	for i, v := range eigenvalues {
		cumulative += v
		if cumulative/total >= threshold {
			return i + 1
		}
	}
	// Rounding may leave the loop short of the threshold by a hair.
	return len(eigenvalues)
}

// buildWeightMatrix assembles M = V·diag(w)·Vᵀ as a flat row-major slice,
// where w assigns strongWeight to the first d columns of V and weakWeight to
// the rest. V is orthonormal, so M is symmetric PSD with eigenvalues exactly
// {strongWeight, weakWeight}.
func buildWeightMatrix(eigenvectors *mat.Dense, d int, strongWeight, weakWeight float64) []float64 {
	n, _ := eigenvectors.Dims()
	weights := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			var sum float64
			for k := 0; k < n; k++ {
				w := weakWeight
				if k < d {
					w = strongWeight
				}
				sum += w * eigenvectors.At(i, k) * eigenvectors.At(j, k)
			}
			weights[i*n+j] = sum
			weights[j*n+i] = sum
		}
	}
	return weights
}
