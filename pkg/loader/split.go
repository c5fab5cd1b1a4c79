package loader

import (
	"fmt"
	"math/rand/v2"
)

// Fold is one train/test partition of row indices.
type Fold struct {
	Train []int
	Test  []int
}

func perm(n int, seed uint64) []int {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return r.Perm(n)
}

// KFoldSplit assigns the shuffled indices round-robin to k test folds.
// The same seed always yields the same folds.
func KFoldSplit(n, k int, seed uint64) ([]Fold, error) {
	if k < 2 || k > n {
		return nil, fmt.Errorf("k-fold: need 2 <= k <= %d, got %d", n, k)
	}
	indices := perm(n, seed)
	tests := make([][]int, k)
	for i := range n {
		tests[i%k] = append(tests[i%k], indices[i])
	}
	folds := make([]Fold, k)
	for f := range k {
		train := make([]int, 0, n-len(tests[f]))
		for g := range k {
			if g != f {
				train = append(train, tests[g]...)
			}
		}
		folds[f] = Fold{Train: train, Test: tests[f]}
	}
	return folds, nil
}
