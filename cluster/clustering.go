package cluster

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/bioforge/organclock/pkg/errors"
	"github.com/bioforge/organclock/pkg/log"
)

// Clustering methods accepted by PerformClustering.
const (
	MethodKMeans = "kmeans"
	MethodDBSCAN = "dbscan"
)

// Label sentinels. Noise is assigned by DBSCAN to outlier points;
// NotClustered marks rows excluded from clustering entirely (incomplete
// gap profiles) and is distinct from noise.
const (
	Noise        = -1
	NotClustered = -2
)

// Options parameterizes PerformClustering.
type Options struct {
	// K is the cluster count for k-means.
	K int
	// MaxIter bounds k-means iterations; 0 means 300.
	MaxIter int
	// Eps is the DBSCAN neighborhood radius.
	Eps float64
	// MinSamples is the DBSCAN core point threshold.
	MinSamples int
	// Seed drives the k-means++ initialization.
	Seed int64
}

// Result is the output of one clustering run.
type Result struct {
	// Labels holds one cluster id per row: 0..k-1, or Noise for DBSCAN
	// outliers.
	Labels []int

	// Centers is k × n_features for k-means, nil for DBSCAN.
	Centers *mat.Dense

	// Inertia is the within-cluster sum of squares for k-means.
	Inertia float64

	// NoiseFraction is the share of Noise labels for DBSCAN.
	NoiseFraction float64
}

// PerformClustering clusters the rows of X with the named method.
func PerformClustering(X *mat.Dense, method string, opts Options) (*Result, error) {
	n, _ := X.Dims()
	if n == 0 {
		return nil, errors.NewModelError("PerformClustering", "empty data", errors.ErrEmptyData)
	}

	switch method {
	case MethodKMeans:
		return kmeans(X, opts)
	case MethodDBSCAN:
		return dbscan(X, opts)
	default:
		return nil, errors.NewValidationError("method", "unknown clustering method, use kmeans or dbscan", method)
	}
}

// kmeans runs Lloyd's algorithm with k-means++ seeding.
func kmeans(X *mat.Dense, opts Options) (*Result, error) {
	n, c := X.Dims()
	if opts.K <= 0 || opts.K > n {
		return nil, errors.NewValidationError("k", "cluster count must be in [1, n_samples]", opts.K)
	}
	maxIter := opts.MaxIter
	if maxIter <= 0 {
		maxIter = 300
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	centers := kmeansPlusPlusInit(X, opts.K, rng)
	labels := make([]int, n)

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i := 0; i < n; i++ {
			best, bestDist := 0, math.Inf(1)
			for k := 0; k < opts.K; k++ {
				d := rowSqDist(X, i, centers, k, c)
				if d < bestDist {
					best, bestDist = k, d
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		counts := make([]int, opts.K)
		next := mat.NewDense(opts.K, c, nil)
		for i := 0; i < n; i++ {
			k := labels[i]
			counts[k]++
			for j := 0; j < c; j++ {
				next.Set(k, j, next.At(k, j)+X.At(i, j))
			}
		}
		for k := 0; k < opts.K; k++ {
			if counts[k] == 0 {
				// Reseed an empty cluster at a random point.
				i := rng.Intn(n)
				for j := 0; j < c; j++ {
					next.Set(k, j, X.At(i, j))
				}
				continue
			}
			for j := 0; j < c; j++ {
				next.Set(k, j, next.At(k, j)/float64(counts[k]))
			}
		}
		centers = next
	}

	inertia := 0.0
	for i := 0; i < n; i++ {
		inertia += rowSqDist(X, i, centers, labels[i], c)
	}

	log.With("cluster").Info().
		Int("k", opts.K).
		Float64("inertia", inertia).
		Msg("kmeans converged")
	return &Result{Labels: labels, Centers: centers, Inertia: inertia}, nil
}

// kmeansPlusPlusInit picks initial centers with probability proportional
// to squared distance from the nearest chosen center.
func kmeansPlusPlusInit(X *mat.Dense, k int, rng *rand.Rand) *mat.Dense {
	n, c := X.Dims()
	centers := mat.NewDense(k, c, nil)

	first := rng.Intn(n)
	for j := 0; j < c; j++ {
		centers.Set(0, j, X.At(first, j))
	}

	dists := make([]float64, n)
	for chosen := 1; chosen < k; chosen++ {
		total := 0.0
		for i := 0; i < n; i++ {
			best := math.Inf(1)
			for kk := 0; kk < chosen; kk++ {
				if d := rowSqDist(X, i, centers, kk, c); d < best {
					best = d
				}
			}
			dists[i] = best
			total += best
		}

		idx := n - 1
		if total > 0 {
			target := rng.Float64() * total
			acc := 0.0
			for i := 0; i < n; i++ {
				acc += dists[i]
				if acc >= target {
					idx = i
					break
				}
			}
		} else {
			idx = rng.Intn(n)
		}
		for j := 0; j < c; j++ {
			centers.Set(chosen, j, X.At(idx, j))
		}
	}
	return centers
}

func rowSqDist(X *mat.Dense, i int, centers *mat.Dense, k, c int) float64 {
	d := 0.0
	for j := 0; j < c; j++ {
		diff := X.At(i, j) - centers.At(k, j)
		d += diff * diff
	}
	return d
}

// dbscan is a straightforward density clustering with Euclidean distance.
// Points in no dense region are labeled Noise.
func dbscan(X *mat.Dense, opts Options) (*Result, error) {
	n, c := X.Dims()
	if opts.Eps <= 0 {
		return nil, errors.NewValidationError("eps", "must be positive", opts.Eps)
	}
	if opts.MinSamples <= 0 {
		return nil, errors.NewValidationError("min_samples", "must be positive", opts.MinSamples)
	}

	const unvisited = -3
	labels := make([]int, n)
	for i := range labels {
		labels[i] = unvisited
	}
	epsSq := opts.Eps * opts.Eps

	neighbors := func(i int) []int {
		var out []int
		for j := 0; j < n; j++ {
			d := 0.0
			for f := 0; f < c; f++ {
				diff := X.At(i, f) - X.At(j, f)
				d += diff * diff
			}
			if d <= epsSq {
				out = append(out, j)
			}
		}
		return out
	}

	clusterID := 0
	for i := 0; i < n; i++ {
		if labels[i] != unvisited {
			continue
		}
		seeds := neighbors(i)
		if len(seeds) < opts.MinSamples {
			labels[i] = Noise
			continue
		}

		labels[i] = clusterID
		for pos := 0; pos < len(seeds); pos++ {
			j := seeds[pos]
			if labels[j] == Noise {
				labels[j] = clusterID
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = clusterID
			jn := neighbors(j)
			if len(jn) >= opts.MinSamples {
				seeds = append(seeds, jn...)
			}
		}
		clusterID++
	}

	noise := 0
	for _, l := range labels {
		if l == Noise {
			noise++
		}
	}
	fraction := float64(noise) / float64(n)

	log.With("cluster").Info().
		Int("clusters", clusterID).
		Float64("noise_fraction", fraction).
		Msg("dbscan complete")
	return &Result{Labels: labels, NoiseFraction: fraction}, nil
}
