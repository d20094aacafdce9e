// Package permutation breaks columnar transposition ciphers. Short keys are
// searched exhaustively; longer keys by an ensemble of simulated-annealing
// trials.
package permutation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/RowanDark/cryptbreak/internal/alphabet"
	"github.com/RowanDark/cryptbreak/internal/cipher"
	"github.com/RowanDark/cryptbreak/internal/logging"
	"github.com/RowanDark/cryptbreak/internal/metrics"
	"github.com/RowanDark/cryptbreak/internal/ngram"
	"github.com/RowanDark/cryptbreak/internal/search"
)

const (
	DefaultTemperature = 50.0
	DefaultCoolingRate = 0.99
	DefaultIterations  = 100000
	DefaultAttempts    = 20
	DefaultExactLimit  = 8

	// MaxExactLimit bounds exhaustive search at 10! keys.
	MaxExactLimit = 10
	// MaxKeyLength, MaxAttempts and MaxIterations bound the memory and time a
	// single search may claim.
	MaxKeyLength  = 4096
	MaxAttempts   = 1000
	MaxIterations = 100_000_000

	engineName = "permutation"
)

var (
	// ErrInvalidKeyLength reports a key length that cannot describe a grid.
	ErrInvalidKeyLength = errors.New("invalid key length")
	// ErrInvalidOptions reports an unusable search configuration.
	ErrInvalidOptions = errors.New("invalid permutation options")
)

// Mode names the search strategy used for a result.
type Mode string

const (
	ModeExact  Mode = "exact"
	ModeAnneal Mode = "anneal"
)

// Options tune a search. Start from DefaultOptions.
type Options struct {
	// Temperature is the starting annealing temperature.
	Temperature float64
	// CoolingRate multiplies the temperature after every step.
	CoolingRate float64
	// Iterations is the step budget of one annealing trial.
	Iterations int
	// Attempts is the number of independent annealing trials.
	Attempts int
	// ExactLimit is the largest key length searched exhaustively.
	ExactLimit int
	// Seed makes the search reproducible when non-zero.
	Seed uint64
	// Parallelism caps concurrent workers; zero means GOMAXPROCS.
	Parallelism int
}

// DefaultOptions returns the standard search configuration.
func DefaultOptions() Options {
	return Options{
		Temperature: DefaultTemperature,
		CoolingRate: DefaultCoolingRate,
		Iterations:  DefaultIterations,
		Attempts:    DefaultAttempts,
		ExactLimit:  DefaultExactLimit,
	}
}

func (o Options) validate() error {
	switch {
	case math.IsNaN(o.Temperature) || o.Temperature <= 0:
		return fmt.Errorf("%w: temperature must be positive, got %v", ErrInvalidOptions, o.Temperature)
	case math.IsNaN(o.CoolingRate) || o.CoolingRate <= 0 || o.CoolingRate > 1:
		return fmt.Errorf("%w: cooling rate must be in (0, 1], got %v", ErrInvalidOptions, o.CoolingRate)
	case o.Iterations < 0 || o.Iterations > MaxIterations:
		return fmt.Errorf("%w: iterations must be in [0, %d], got %d", ErrInvalidOptions, MaxIterations, o.Iterations)
	case o.Attempts < 0 || o.Attempts > MaxAttempts:
		return fmt.Errorf("%w: attempts must be in [0, %d], got %d", ErrInvalidOptions, MaxAttempts, o.Attempts)
	case o.ExactLimit < 0 || o.ExactLimit > MaxExactLimit:
		return fmt.Errorf("%w: exact limit must be in [0, %d], got %d", ErrInvalidOptions, MaxExactLimit, o.ExactLimit)
	case o.Parallelism < 0:
		return fmt.Errorf("%w: parallelism must not be negative, got %d", ErrInvalidOptions, o.Parallelism)
	}
	return nil
}

// Result is the best decryption found.
type Result struct {
	RunID     string
	Plaintext string
	Key       cipher.Key
	Score     float64
	Mode      Mode
	Evaluated int64
	Accepted  int64
}

// Engine runs transposition searches against a language model. It is safe
// for concurrent use.
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

// Break searches for the keyLength-column key whose decryption of ciphertext
// scores highest. Non-letters are stripped before decoding. A key longer than
// the text leaves some columns empty and still yields a result. If ctx ends
// first the best result so far is returned together with the context error.
func (e *Engine) Break(ctx context.Context, ciphertext string, keyLength int, opts Options) (Result, error) {
	if keyLength <= 0 || keyLength > MaxKeyLength {
		return Result{}, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidKeyLength, keyLength, MaxKeyLength)
	}
	codes := alphabet.Codes(ciphertext)
	if err := opts.validate(); err != nil {
		return Result{}, err
	}

	mode := ModeAnneal
	if keyLength <= opts.ExactLimit {
		mode = ModeExact
	}
	runID := logging.NewRunID()
	start := time.Now()
	e.emit(runID, logging.EventSearchStarted, map[string]any{
		"mode":       string(mode),
		"letters":    len(codes),
		"key_length": keyLength,
		"ciphertext": logging.Excerpt(ciphertext),
	})

	var (
		out search.Outcome[cipher.Key]
		err error
	)
	if mode == ModeExact {
		out, err = e.exact(ctx, codes, keyLength, opts)
	} else {
		out, err = e.anneal(ctx, codes, keyLength, runID, opts)
	}

	res := Result{
		RunID:     runID,
		Mode:      mode,
		Evaluated: out.Evaluated,
		Accepted:  out.Accepted,
	}
	if out.Found {
		res.Key = out.Best.Key
		res.Score = out.Best.Score
		grid := cipher.NewColumnar(len(codes), keyLength)
		res.Plaintext = alphabet.String(grid.DecryptInto(nil, codes, res.Key))
	}

	metrics.ObserveSearch(metrics.Search{
		Engine:    engineName,
		Mode:      string(mode),
		Evaluated: res.Evaluated,
		Accepted:  res.Accepted,
		Duration:  time.Since(start),
		Score:     res.Score,
	})
	if err != nil {
		e.emit(runID, logging.EventSearchCancelled, map[string]any{"error": err.Error(), "score": res.Score})
		return res, err
	}
	e.emit(runID, logging.EventSearchFinished, map[string]any{
		"score":      res.Score,
		"key":        res.Key.String(),
		"evaluated":  res.Evaluated,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return res, nil
}

// exact scores every key. Work is split by the key's first element, so the
// lowest-index tie-break of the ensemble yields the lexicographically first
// optimum.
func (e *Engine) exact(ctx context.Context, codes []byte, n int, opts Options) (search.Outcome[cipher.Key], error) {
	return search.Ensemble(ctx, n, opts.Parallelism, func(ctx context.Context, first int) (search.Candidate[cipher.Key], error) {
		grid := cipher.NewColumnar(len(codes), n)
		buf := make([]byte, len(codes))
		var best search.Candidate[cipher.Key]

		budget := search.Budget{Iterations: math.MaxInt}
		i := 0
		var err error
		enumerateFrom(n, first, func(key cipher.Key) bool {
			if budget.Exhausted(ctx, i) {
				err = ctx.Err()
				return false
			}
			i++
			s := e.model.ScoreCodes(grid.DecryptInto(buf, codes, key))
			best.Evaluated++
			if best.Evaluated == 1 || s > best.Score {
				best.Key = key.Clone()
				best.Score = s
				best.Accepted++
			}
			return true
		})
		return best, err
	})
}

// anneal runs independent simulated-annealing trials. With no iterations or
// no attempts, a single random key from stream 0 is scored.
func (e *Engine) anneal(ctx context.Context, codes []byte, n int, runID string, opts Options) (search.Outcome[cipher.Key], error) {
	attempts, iterations := opts.Attempts, opts.Iterations
	if attempts == 0 || iterations == 0 {
		attempts, iterations = 1, 0
	}
	return search.Ensemble(ctx, attempts, opts.Parallelism, func(ctx context.Context, trial int) (search.Candidate[cipher.Key], error) {
		c, err := e.trial(ctx, codes, n, trial, iterations, opts)
		e.emit(runID, logging.EventPassFinished, map[string]any{
			"trial":    trial,
			"score":    c.Score,
			"accepted": c.Accepted,
		})
		return c, err
	})
}

func (e *Engine) trial(ctx context.Context, codes []byte, n, trial, iterations int, opts Options) (search.Candidate[cipher.Key], error) {
	r := search.NewRand(opts.Seed, trial)
	grid := cipher.NewColumnar(len(codes), n)
	buf := make([]byte, len(codes))

	key := cipher.Key(r.Perm(n))
	current := e.model.ScoreCodes(grid.DecryptInto(buf, codes, key))
	best := search.Candidate[cipher.Key]{Key: key.Clone(), Score: current, Evaluated: 1}
	if n < 2 {
		return best, nil
	}

	schedule := search.NewSchedule(opts.Temperature, opts.CoolingRate)
	budget := search.Budget{Iterations: iterations}
	for i := 0; !budget.Exhausted(ctx, i); i++ {
		a, b := search.Pair(r, n)
		key[a], key[b] = key[b], key[a]
		s := e.model.ScoreCodes(grid.DecryptInto(buf, codes, key))
		best.Evaluated++
		if search.Accept(current, s, schedule.Value(), r.Float64()) {
			current = s
			best.Accepted++
			if s > best.Score {
				best.Score = s
				copy(best.Key, key)
			}
		} else {
			key[a], key[b] = key[b], key[a]
		}
		schedule.Cool()
	}
	return best, ctx.Err()
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
