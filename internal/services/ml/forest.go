package ml

import (
	"context"
	"errors"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ForestConfig controls the random forest regressor.
type ForestConfig struct {
	Trees           int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	Seed            int64
	Workers         int
}

func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		Trees:           100,
		MaxDepth:        5,
		MinSamplesSplit: 5,
		MinSamplesLeaf:  3,
		Seed:            42,
	}
}

type node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
	Leaf      bool    `json:"leaf"`
}

// Tree is a CART regression tree stored as a flat node list; node 0 is the root.
type Tree struct {
	Nodes []node `json:"nodes"`
}

func (t *Tree) Predict(row []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Forest averages bootstrap-trained regression trees.
type Forest struct {
	Trees       []*Tree   `json:"trees"`
	Importances []float64 `json:"importances"`
}

// FitForest trains cfg.Trees trees in parallel. Each tree draws its seed from
// a master generator seeded with cfg.Seed, so results do not depend on
// scheduling.
func FitForest(ctx context.Context, X [][]float64, y []float64, cfg ForestConfig) (*Forest, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, errors.New("forest: empty or mismatched training data")
	}
	if cfg.Trees <= 0 {
		cfg.Trees = DefaultForestConfig().Trees
	}
	if cfg.MinSamplesLeaf < 1 {
		cfg.MinSamplesLeaf = 1
	}
	if cfg.MinSamplesSplit < 2 {
		cfg.MinSamplesSplit = 2
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	master := rand.New(rand.NewSource(cfg.Seed))
	seeds := make([]int64, cfg.Trees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	d := len(X[0])
	trees := make([]*Tree, cfg.Trees)
	imps := make([][]float64, cfg.Trees)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range trees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(seeds[i]))
			idx := make([]int, len(X))
			for k := range idx {
				idx[k] = rng.Intn(len(X))
			}
			b := &builder{X: X, y: y, cfg: cfg, imp: make([]float64, d)}
			b.build(idx, 0)
			trees[i] = &Tree{Nodes: b.nodes}
			imps[i] = normalise(b.imp)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := make([]float64, d)
	for _, imp := range imps {
		for j, v := range imp {
			total[j] += v
		}
	}
	return &Forest{Trees: trees, Importances: normalise(total)}, nil
}

func (f *Forest) Predict(row []float64) float64 {
	var sum float64
	for _, t := range f.Trees {
		sum += t.Predict(row)
	}
	return sum / float64(len(f.Trees))
}

// FeatureImportance pairs a column with its normalised impurity decrease.
type FeatureImportance struct {
	Feature    string
	Importance float64
}

// TopFeatures returns the k most important columns, highest first.
func (f *Forest) TopFeatures(columns []string, k int) []FeatureImportance {
	out := make([]FeatureImportance, 0, len(f.Importances))
	for j, v := range f.Importances {
		if j < len(columns) {
			out = append(out, FeatureImportance{Feature: columns[j], Importance: v})
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Importance > out[b].Importance })
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

func normalise(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	out := make([]float64, len(v))
	if sum <= 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / sum
	}
	return out
}

type builder struct {
	X     [][]float64
	y     []float64
	cfg   ForestConfig
	nodes []node
	imp   []float64
}

// build grows the subtree over idx and returns its node index.
func (b *builder) build(idx []int, depth int) int {
	var sum, sumSq float64
	for _, i := range idx {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	n := float64(len(idx))
	mean := sum / n
	sse := sumSq - sum*sum/n

	id := len(b.nodes)
	b.nodes = append(b.nodes, node{Leaf: true, Value: mean})

	if depth >= b.cfg.MaxDepth || len(idx) < b.cfg.MinSamplesSplit || sse <= 1e-12 {
		return id
	}
	feature, threshold, gain, ok := b.bestSplit(idx, sse)
	if !ok {
		return id
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	b.imp[feature] += gain

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[id] = node{Feature: feature, Threshold: threshold, Left: l, Right: r, Value: mean}
	return id
}

// bestSplit scans every feature for the threshold minimising the summed
// squared error of the children, honouring the minimum leaf size.
func (b *builder) bestSplit(idx []int, parentSSE float64) (int, float64, float64, bool) {
	minLeaf := b.cfg.MinSamplesLeaf
	if len(idx) < 2*minLeaf {
		return 0, 0, 0, false
	}
	sorted := make([]int, len(idx))
	bestFeature, bestThreshold, bestSSE := -1, 0.0, parentSSE

	var totalSum, totalSq float64
	for _, i := range idx {
		totalSum += b.y[i]
		totalSq += b.y[i] * b.y[i]
	}

	for f := range b.X[idx[0]] {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool { return b.X[sorted[a]][f] < b.X[sorted[c]][f] })

		var leftSum, leftSq float64
		for k := 0; k < len(sorted)-1; k++ {
			yi := b.y[sorted[k]]
			leftSum += yi
			leftSq += yi * yi
			nl := k + 1
			nr := len(sorted) - nl
			if nl < minLeaf {
				continue
			}
			if nr < minLeaf {
				break
			}
			lo, hi := b.X[sorted[k]][f], b.X[sorted[k+1]][f]
			if lo >= hi {
				continue
			}
			rightSum, rightSq := totalSum-leftSum, totalSq-leftSq
			sse := (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
			if sse < bestSSE-1e-12 {
				bestFeature, bestThreshold, bestSSE = f, lo+(hi-lo)/2, sse
			}
		}
	}
	if bestFeature < 0 {
		return 0, 0, 0, false
	}
	return bestFeature, bestThreshold, parentSSE - bestSSE, true
}
