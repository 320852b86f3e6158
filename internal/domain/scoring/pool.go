package scoring

import (
	"sync"

	"github.com/panjf2000/ants/v2"
)

// Pool fans candidate scoring out over a bounded set of goroutines.
// A nil Pool, or one built with size <= 0, scores sequentially.
type Pool struct {
	p *ants.Pool
}

// NewPool creates a pool with the given number of workers.
func NewPool(size int) (*Pool, error) {
	if size <= 0 {
		return &Pool{}, nil
	}
	p, err := ants.NewPool(size, ants.WithPreAlloc(false))
	if err != nil {
		return nil, err
	}
	return &Pool{p: p}, nil
}

// Size returns the worker count, or 0 for a sequential pool.
func (p *Pool) Size() int {
	if p == nil || p.p == nil {
		return 0
	}
	return p.p.Cap()
}

// Release stops the workers. It is safe to call on a nil or sequential pool.
func (p *Pool) Release() {
	if p == nil || p.p == nil {
		return
	}
	p.p.Release()
}

// ScoreAll scores every candidate with s and returns the results in input
// order. Each task writes only its own slot.
func ScoreAll[T, C any](p *Pool, s Strategy[T, C], candidates []T, c C) []Scored[T] {
	out := make([]Scored[T], len(candidates))
	if p == nil || p.p == nil || len(candidates) < 2 {
		for i, cand := range candidates {
			out[i] = Scored[T]{Candidate: cand, Result: s.Score(cand, c)}
		}
		return out
	}

	var wg sync.WaitGroup
	wg.Add(len(candidates))
	for i := range candidates {
		task := func() {
			defer wg.Done()
			out[i] = Scored[T]{Candidate: candidates[i], Result: s.Score(candidates[i], c)}
		}
		if err := p.p.Submit(task); err != nil {
			// pool closed or overloaded
			task()
		}
	}
	wg.Wait()
	return out
}
