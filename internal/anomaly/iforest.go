// Package anomaly flags irregular transaction amounts with an isolation forest.
//
// The forest follows the usual construction: each tree is grown on a random
// subsample drawn without replacement, splits pick a uniform threshold between
// the node's minimum and maximum, and growth stops at ceil(log2(subsample)).
// A point's anomaly score is 2^(-E[h(x)]/c(psi)); points scoring above 0.5 are
// outliers, which is the automatic contamination rule.
package anomaly

import (
	"math"
	"math/rand"
)

const (
	DefaultSeed       int64 = 42
	DefaultTrees            = 100
	DefaultMaxSamples       = 256

	// Threshold on the anomaly score above which a point is an outlier.
	Threshold = 0.5

	// Scores this close to the threshold are inliers. Identical inputs give
	// a mean path length equal to c(psi) up to summation error.
	scoreTolerance = 1e-9

	eulerGamma = 0.5772156649015329
)

// Detector is a seeded isolation forest. It holds no state between calls, so
// equal inputs always yield equal flags.
type Detector struct {
	seed       int64
	trees      int
	maxSamples int
}

// Option customizes a Detector.
type Option func(*Detector)

// WithTrees sets the number of trees in the forest.
func WithTrees(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.trees = n
		}
	}
}

// WithMaxSamples sets the subsample size per tree.
func WithMaxSamples(n int) Option {
	return func(d *Detector) {
		if n > 1 {
			d.maxSamples = n
		}
	}
}

// NewDetector creates a detector with the given seed.
func NewDetector(seed int64, opts ...Option) *Detector {
	d := &Detector{
		seed:       seed,
		trees:      DefaultTrees,
		maxSamples: DefaultMaxSamples,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Scores fits a forest on values and returns the anomaly score of each value.
// Fewer than two values cannot be isolated; every score is then zero.
func (d *Detector) Scores(values []float64) []float64 {
	scores := make([]float64, len(values))
	n := len(values)
	psi := min(d.maxSamples, n)
	if psi < 2 {
		return scores
	}

	rng := rand.New(rand.NewSource(d.seed))
	heightLimit := int(math.Ceil(math.Log2(float64(psi))))
	norm := averagePathLength(psi)

	depths := make([]float64, n)
	for range d.trees {
		sample := rng.Perm(n)[:psi]
		root := grow(rng, values, sample, 0, heightLimit)
		for i, v := range values {
			depths[i] += root.pathLength(v, 0)
		}
	}

	for i := range values {
		mean := depths[i] / float64(d.trees)
		scores[i] = math.Pow(2, -mean/norm)
	}
	return scores
}

// Detect returns, for each value, whether it is an outlier.
func (d *Detector) Detect(values []float64) []bool {
	flags := make([]bool, len(values))
	for i, s := range d.Scores(values) {
		flags[i] = s > Threshold+scoreTolerance
	}
	return flags
}

type node struct {
	left, right *node
	threshold   float64
	size        int // samples reaching a leaf
}

func (n *node) isLeaf() bool {
	return n.left == nil
}

func grow(rng *rand.Rand, values []float64, idx []int, depth, limit int) *node {
	if depth >= limit || len(idx) <= 1 {
		return &node{size: len(idx)}
	}

	lo, hi := values[idx[0]], values[idx[0]]
	for _, i := range idx[1:] {
		lo = math.Min(lo, values[i])
		hi = math.Max(hi, values[i])
	}
	if lo == hi {
		return &node{size: len(idx)}
	}

	threshold := lo + rng.Float64()*(hi-lo)
	var left, right []int
	for _, i := range idx {
		if values[i] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &node{
		threshold: threshold,
		left:      grow(rng, values, left, depth+1, limit),
		right:     grow(rng, values, right, depth+1, limit),
	}
}

func (n *node) pathLength(v float64, depth int) float64 {
	if n.isLeaf() {
		return float64(depth) + averagePathLength(n.size)
	}
	if v <= n.threshold {
		return n.left.pathLength(v, depth+1)
	}
	return n.right.pathLength(v, depth+1)
}

// averagePathLength is c(n), the mean path length of an unsuccessful search
// in a binary search tree of n points.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		fn := float64(n)
		return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
	}
}
