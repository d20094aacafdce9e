// Package substitution breaks monoalphabetic substitution ciphers by hill
// climbing over letter mappings, starting from a frequency-analysis seed and
// restarting from random mappings.
package substitution

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/RowanDark/cryptbreak/internal/alphabet"
	"github.com/RowanDark/cryptbreak/internal/cipher"
	"github.com/RowanDark/cryptbreak/internal/freq"
	"github.com/RowanDark/cryptbreak/internal/logging"
	"github.com/RowanDark/cryptbreak/internal/metrics"
	"github.com/RowanDark/cryptbreak/internal/ngram"
	"github.com/RowanDark/cryptbreak/internal/search"
)

const (
	DefaultIterations = 10000
	DefaultRestarts   = 10

	// MaxIterations and MaxRestarts bound the work one search may claim.
	MaxIterations = 100_000_000
	MaxRestarts   = 1000

	engineName = "substitution"
)

// ErrInvalidOptions reports an unusable search budget.
var ErrInvalidOptions = errors.New("invalid substitution options")

// Mode describes how a result was produced.
type Mode string

const (
	ModeHillClimb Mode = "hill_climb"
	ModeFrequency Mode = "frequency"
)

// Options tune a search. Start from DefaultOptions; the zero value is not
// usable because Restarts must be at least one.
type Options struct {
	// Iterations is the number of swaps tried per pass.
	Iterations int
	// Restarts is the total number of passes. Pass 0 starts from the
	// frequency seed, the others from random mappings.
	Restarts int
	// Seed makes the search reproducible when non-zero.
	Seed uint64
	// Parallelism caps concurrent passes; zero means GOMAXPROCS.
	Parallelism int
	// FrequencyOnly returns the seed decryption without climbing.
	FrequencyOnly bool
	// Order is the reference letter order, most frequent first. Empty means
	// freq.DefaultOrder.
	Order string
}

// DefaultOptions returns the standard search budget.
func DefaultOptions() Options {
	return Options{Iterations: DefaultIterations, Restarts: DefaultRestarts}
}

func (o Options) validate() error {
	if o.Iterations < 0 || o.Iterations > MaxIterations {
		return fmt.Errorf("%w: iterations must be in [0, %d], got %d", ErrInvalidOptions, MaxIterations, o.Iterations)
	}
	if o.Restarts < 1 || o.Restarts > MaxRestarts {
		return fmt.Errorf("%w: restarts must be in [1, %d], got %d", ErrInvalidOptions, MaxRestarts, o.Restarts)
	}
	if o.Parallelism < 0 {
		return fmt.Errorf("%w: parallelism must not be negative, got %d", ErrInvalidOptions, o.Parallelism)
	}
	return nil
}

// Result is the best decryption found.
type Result struct {
	RunID     string
	Plaintext string
	Mapping   cipher.Mapping
	Score     float64
	// SeedScore is the score of the frequency-seed decryption. Score is never
	// lower.
	SeedScore float64
	Mode      Mode
	Passes    int
	Evaluated int64
	Accepted  int64
}

// MappingTable renders the recovered key as a cipher -> plain listing.
func (r Result) MappingTable() string {
	return r.Mapping.Table()
}

// Engine runs substitution searches against a language model. It holds no
// per-search state and is safe for concurrent use.
type Engine struct {
	model  ngram.Model
	logger *logging.AuditLogger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sends search events to logger.
func WithLogger(logger *logging.AuditLogger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an engine scoring with model.
func New(model ngram.Model, opts ...Option) *Engine {
	e := &Engine{model: model}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Break searches for the mapping whose decryption of ciphertext scores
// highest. If ctx ends first, the best result so far is returned together
// with the context error.
func (e *Engine) Break(ctx context.Context, ciphertext string, opts Options) (Result, error) {
	if err := opts.validate(); err != nil {
		return Result{}, err
	}
	raw, err := freq.SeedMapping(ciphertext, opts.Order)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	seed := cipher.Mapping(raw)
	codes := alphabet.Codes(ciphertext)
	seedScore := e.model.ScoreCodes(seed.Apply(make([]byte, 0, len(codes)), codes))

	start := time.Now()
	res := Result{
		RunID:     logging.NewRunID(),
		Mapping:   seed,
		Score:     seedScore,
		SeedScore: seedScore,
		Mode:      ModeHillClimb,
		Evaluated: 1,
	}
	if opts.FrequencyOnly {
		res.Mode = ModeFrequency
	}
	e.emit(res.RunID, logging.EventSearchStarted, map[string]any{
		"mode":       string(res.Mode),
		"letters":    len(codes),
		"iterations": opts.Iterations,
		"restarts":   opts.Restarts,
		"ciphertext": logging.Excerpt(ciphertext),
	})

	var runErr error
	if !opts.FrequencyOnly {
		out, err := search.Ensemble(ctx, opts.Restarts, opts.Parallelism, func(ctx context.Context, pass int) (search.Candidate[cipher.Mapping], error) {
			r := search.NewRand(opts.Seed, pass)
			begin := seed
			if pass > 0 {
				// Perm(26) is a valid mapping by construction.
				begin, _ = cipher.FromPerm(r.Perm(alphabet.Size))
			}
			c, err := e.climb(ctx, r, begin, codes, opts.Iterations)
			e.emit(res.RunID, logging.EventPassFinished, map[string]any{
				"pass":     pass,
				"score":    c.Score,
				"accepted": c.Accepted,
			})
			return c, err
		})
		runErr = err
		res.Passes = out.Runs
		res.Evaluated += out.Evaluated
		res.Accepted = out.Accepted
		if out.Found && out.Best.Score > res.Score {
			res.Mapping = out.Best.Key
			res.Score = out.Best.Score
		}
	}
	res.Plaintext = res.Mapping.Decrypt(ciphertext)

	metrics.ObserveSearch(metrics.Search{
		Engine:    engineName,
		Mode:      string(res.Mode),
		Evaluated: res.Evaluated,
		Accepted:  res.Accepted,
		Duration:  time.Since(start),
		Score:     res.Score,
	})
	if runErr != nil {
		e.emit(res.RunID, logging.EventSearchCancelled, map[string]any{"error": runErr.Error(), "score": res.Score})
		return res, runErr
	}
	e.emit(res.RunID, logging.EventSearchFinished, map[string]any{
		"score":      res.Score,
		"seed_score": res.SeedScore,
		"mapping":    res.Mapping.String(),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return res, nil
}

// climb hill-climbs from start, keeping only strictly better swaps.
func (e *Engine) climb(ctx context.Context, r *rand.Rand, start cipher.Mapping, codes []byte, iterations int) (search.Candidate[cipher.Mapping], error) {
	buf := make([]byte, 0, len(codes))
	current := start
	score := e.model.ScoreCodes(current.Apply(buf, codes))
	c := search.Candidate[cipher.Mapping]{Evaluated: 1}

	budget := search.Budget{Iterations: iterations}
	for i := 0; !budget.Exhausted(ctx, i); i++ {
		a, b := search.Pair(r, alphabet.Size)
		next := current.SwapPlain(byte(a), byte(b))
		s := e.model.ScoreCodes(next.Apply(buf, codes))
		c.Evaluated++
		if s > score {
			current, score = next, s
			c.Accepted++
		}
	}

	c.Key, c.Score = current, score
	return c, ctx.Err()
}

func (e *Engine) emit(runID string, event logging.EventType, meta map[string]any) {
	if e.logger == nil {
		return
	}
	meta["engine"] = engineName
	_ = e.logger.Emit(logging.AuditEvent{
		RunID:     runID,
		EventType: event,
		Decision:  logging.DecisionInfo,
		Metadata:  meta,
	})
}
