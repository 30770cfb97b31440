/*
Package corrdist provides a locally adaptive distance function for
density- and correlation-based clustering over vector datasets.

For every point in a dataset, corrdist estimates the local intrinsic
dimensionality and principal directions of variance by running a PCA on
the point's neighborhood (a "local PCA"). From that analysis it derives a
positive-semidefinite weight matrix that penalizes deviation along
directions of low local variance, and uses the per-point weight matrices
to answer distance queries through a quadratic form:

	distance(p, q) = max( sqrt(δᵀ·M_p·δ), sqrt(δᵀ·M_q·δ) )   with δ = p − q

Each point's weight matrix encodes that point's own local notion of which
directions are expected (low weight) versus surprising (high weight).
Taking the max of the two directional evaluations yields a symmetric,
non-negative dissimilarity that is large whenever either point considers
the other an outlier relative to its local subspace — exactly the shape a
density-based clusterer wants as input.

# Quick Start

Build a dataset, bind a locally weighted distance function to it (which
runs the one-time preprocessing pass), and issue distance queries:

	package main

	import (
	    "fmt"
	    "log"

	    "github.com/wizenheimer/corrdist"
	)

	func main() {
	    ds := corrdist.NewDataset(384)
	    // ... add vectors via ds.Add(corrdist.NewVectorNode(vec)) ...

	    lwd, err := corrdist.NewLocallyWeightedDistance(corrdist.DefaultDistanceConfig())
	    if err != nil {
	        log.Fatal(err)
	    }

	    // One-time preprocessing: local PCA for every point, in parallel.
	    if err := lwd.Bind(ds); err != nil {
	        log.Fatal(err)
	    }

	    // Hot path: repeated, allocation-free distance queries.
	    d, err := lwd.Distance(1, 2)
	    if err != nil {
	        log.Fatal(err)
	    }
	    fmt.Printf("distance = %.4f\n", d)
	}

# Pipeline

Three components cooperate, in dependency order:

NeighborhoodProvider: selects, per anchor point, the ordered set of
reference vectors used to estimate local structure. Two providers are
built in — brute-force k-nearest-neighbor and epsilon-range — both over a
configurable base metric (Euclidean by default).

	provider, _ := corrdist.NewKNNProvider(25, corrdist.Euclidean)

LocalPCAEngine: consumes a neighborhood and produces a LocalPCA per
anchor point: eigenvalues and eigenvectors of the neighborhood's scatter
matrix, the correlation dimension (the smallest prefix of descending
eigenvalues explaining a configured fraction of total variance, 0.85 by
default), and the derived weight matrix M = V·diag(w)·Vᵀ where strong
(high-variance) directions receive a small weight and weak (correlation)
directions a large one.

Preprocessor: runs the engine over every point of the dataset on a
worker pool, populating an association store keyed by point identity.
The pass is embarrassingly parallel: each worker reads a shared,
immutable dataset and writes only its own points' results. Any per-point
failure aborts the whole pass; no partial state is ever published.

# Caching and Force Semantics

Associations live in a per-dataset store with a three-state lifecycle:
Unset → Computing → Ready. Binding a distance function to a dataset that
is already Ready is a no-op, so associations computed by an earlier
pipeline stage are reused. Setting Force in the configuration recomputes
and overwrites every point's association unconditionally.

# Vector Storage

Datasets hold float32 vectors at full precision by default. For large
datasets a half-precision (float16) backing store halves memory at a
small accuracy cost:

	ds, _ := corrdist.NewQuantizedDataset(384, corrdist.HalfPrecision)

All linear algebra (scatter matrices, eigendecomposition, quadratic
forms) runs in float64 regardless of the storage precision.

# Diagnostics

Every Distance call increments a monotonic counter through an injectable
metrics sink, so the surrounding system can profile how many distance
computations a clustering run performs:

	var counter corrdist.CallCounter
	lwd.SetMetrics(&counter)
	// ... after clustering ...
	fmt.Println(counter.Count())

# Thread Safety

The preprocessing pass is internally parallel and is safe against a
shared read-only dataset. Once Bind returns, Distance is safe for
concurrent use from any number of goroutines; it performs no writes
besides the atomic counter increment.
*/
package corrdist
