package core

import (
	"fmt"
	"sync"
)

// BatchInverse inverts every element of values in a single field inversion
// plus O(n) multiplications, using the standard Montgomery trick: build
// prefix products, invert the final product once, then walk backwards
// peeling off each element's inverse. Grounded on the prefix-product /
// back-substitution shape of the example prover's BatchInversion, adapted to
// this package's Montgomery FieldElement.
func BatchInverse(values []*FieldElement) ([]*FieldElement, error) {
	if len(values) == 0 {
		return nil, nil
	}
	f := values[0].field

	prefix := make([]*FieldElement, len(values))
	acc := f.One()
	for i, v := range values {
		if v.IsZero() {
			return nil, fmt.Errorf("core: BatchInverse given a zero element at index %d", i)
		}
		prefix[i] = acc
		acc = acc.Mul(v)
	}

	accInv, err := acc.Inv()
	if err != nil {
		return nil, err
	}

	out := make([]*FieldElement, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		out[i] = accInv.Mul(prefix[i])
		accInv = accInv.Mul(values[i])
	}
	return out, nil
}

// ParallelBatchInverse splits the work across a TaskManager's workers once
// there is enough of it to be worth the goroutine overhead, mirroring the
// n>=1000 threshold the example prover uses for its parallel batch helpers.
// Each chunk still does its own serial prefix-product pass and inverts its
// own elements independently; only the chunks themselves run concurrently,
// and no pass across chunk boundaries is needed.
func ParallelBatchInverse(tm *TaskManager, values []*FieldElement) ([]*FieldElement, error) {
	const parallelThreshold = 1000
	if len(values) < parallelThreshold || tm == nil {
		return BatchInverse(values)
	}

	numChunks := tm.Workers()
	if numChunks > len(values) {
		numChunks = len(values)
	}
	chunkSize := (len(values) + numChunks - 1) / numChunks

	var mu sync.Mutex
	var firstErr error

	chunkBounds := make([][2]int, 0, numChunks)
	for start := 0; start < len(values); start += chunkSize {
		end := start + chunkSize
		if end > len(values) {
			end = len(values)
		}
		chunkBounds = append(chunkBounds, [2]int{start, end})
	}

	// Each chunk's inversion is independent of the others — BatchInverse's
	// prefix-product trick only needs to see its own chunk.
	out := make([]*FieldElement, len(values))
	tm.ParallelFor(len(chunkBounds), func(i int) {
		start, end := chunkBounds[i][0], chunkBounds[i][1]
		local, err := BatchInverse(values[start:end])
		if err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			return
		}
		copy(out[start:end], local)
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
