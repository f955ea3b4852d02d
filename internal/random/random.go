// Package random produces unbiased permutations for question and option order.
package random

import (
	"math/rand"
	"sync"
	"time"
)

// Source yields index permutations.
type Source interface {
	Perm(n int) []int
}

// Randomizer is a goroutine-safe Fisher–Yates permutation source.
type Randomizer struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomizer seeds a Randomizer. A zero seed uses the current time.
func NewRandomizer(seed int64) *Randomizer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Randomizer{rnd: rand.New(rand.NewSource(seed))}
}

// Perm returns a uniformly random permutation of [0, n).
func (r *Randomizer) Perm(n int) []int {
	if n <= 0 {
		return []int{}
	}
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := n - 1; i > 0; i-- {
		j := r.rnd.Intn(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm
}

// Shuffle returns a shuffled copy of in; in is never mutated.
func Shuffle[T any](src Source, in []T) []T {
	return Permute(src.Perm(len(in)), in)
}

// Permute applies perm to in, so parallel slices can share one permutation.
// out[i] = in[perm[i]].
func Permute[T any](perm []int, in []T) []T {
	out := make([]T, len(perm))
	for i, idx := range perm {
		out[i] = in[idx]
	}
	return out
}

// RandomElements returns n distinct elements of in, n capped at len(in).
func RandomElements[T any](src Source, in []T, n int) []T {
	if n <= 0 {
		return []T{}
	}
	if n > len(in) {
		n = len(in)
	}
	return Shuffle(src, in)[:n]
}
