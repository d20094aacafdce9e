package search

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Candidate is one scored decryption.
type Candidate[K any] struct {
	Plaintext string
	Key       K
	Score     float64

	// Evaluated counts the keys scored to produce this candidate; zero marks
	// a run that never started.
	Evaluated int64
	// Accepted counts moves the run kept.
	Accepted int64
}

// Best returns the highest-scoring candidate, preferring the earliest on
// ties. Candidates with a NaN score or no evaluations are skipped. ok is false
// when nothing qualifies.
func Best[K any](candidates []Candidate[K]) (best Candidate[K], ok bool) {
	for _, c := range candidates {
		if c.Evaluated == 0 || math.IsNaN(c.Score) {
			continue
		}
		if !ok || c.Score > best.Score {
			best, ok = c, true
		}
	}
	return best, ok
}

// Outcome is the reduction of an ensemble.
type Outcome[K any] struct {
	Best      Candidate[K]
	Found     bool
	Runs      int
	Evaluated int64
	Accepted  int64
}

// RunFunc performs run i of an ensemble. On cancellation it should return
// the best candidate found so far together with the context error.
type RunFunc[K any] func(ctx context.Context, run int) (Candidate[K], error)

// Ensemble executes runs independent searches with at most limit running at
// once (limit <= 0 means GOMAXPROCS) and reduces them to the best candidate.
// Candidates from runs that returned an error still take part in the
// reduction, so a cancelled ensemble reports the best found so far along with
// the first error.
func Ensemble[K any](ctx context.Context, runs, limit int, fn RunFunc[K]) (Outcome[K], error) {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	results := make([]Candidate[K], runs)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := 0; i < runs; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := fn(gctx, i)
			results[i] = c
			return err
		})
	}
	err := g.Wait()

	out := Outcome[K]{Runs: runs}
	for _, c := range results {
		out.Evaluated += c.Evaluated
		out.Accepted += c.Accepted
	}
	out.Best, out.Found = Best(results)
	return out, err
}
