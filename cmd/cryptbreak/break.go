package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RowanDark/cryptbreak/internal/permutation"
	"github.com/RowanDark/cryptbreak/internal/substitution"
)

func runSub(args []string, stdout, stderr io.Writer) int {
	cfg, ok := loadConfig(stderr)
	if !ok {
		return 1
	}

	fs := flag.NewFlagSet("sub", flag.ContinueOnError)
	fs.SetOutput(stderr)
	input := registerInput(fs)
	iterations := fs.Int("iterations", cfg.Substitution.Iterations, "hill-climbing steps per pass")
	restarts := fs.Int("restarts", cfg.Substitution.Restarts, "number of independent passes")
	seed := fs.Uint64("seed", cfg.Seed, "random seed (0 picks one)")
	freqOnly := fs.Bool("freq-only", false, "stop after the frequency-analysis seed")
	timeout := fs.Duration("timeout", 0, "stop searching after this long and report the best so far")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(stderr, "sub takes no positional arguments")
		return 2
	}
	ciphertext, err := input.read()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return inputExitCode(err)
	}

	sess, err := openSession(cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer sess.Close()

	opts := sess.substitutionOptions()
	opts.Iterations = *iterations
	opts.Restarts = *restarts
	opts.Seed = *seed
	opts.FrequencyOnly = *freqOnly

	ctx, cancel := searchContext(*timeout)
	defer cancel()

	engine := substitution.New(sess.scorer(), substitution.WithLogger(sess.logger.WithComponent("substitution")))
	res, err := engine.Break(ctx, ciphertext, opts)
	if errors.Is(err, substitution.ErrInvalidOptions) {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if res.Plaintext == "" && err != nil {
		fmt.Fprintf(stderr, "substitution search failed: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "run:        %s\n", res.RunID)
	fmt.Fprintf(stdout, "mode:       %s (%d passes)\n", res.Mode, res.Passes)
	fmt.Fprintf(stdout, "score:      %.4f (seed %.4f)\n", res.Score, res.SeedScore)
	fmt.Fprintf(stdout, "plaintext:  %s\n", res.Plaintext)
	fmt.Fprint(stdout, res.MappingTable())
	return searchExitCode(err, stderr)
}

func runPerm(args []string, stdout, stderr io.Writer) int {
	cfg, ok := loadConfig(stderr)
	if !ok {
		return 1
	}

	fs := flag.NewFlagSet("perm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	input := registerInput(fs)
	keyLength := fs.Int("key-length", 0, "number of transposition columns (required)")
	temperature := fs.Float64("temperature", cfg.Permutation.Temperature, "initial annealing temperature")
	cooling := fs.Float64("cooling", cfg.Permutation.CoolingRate, "temperature multiplier per step, in (0, 1]")
	iterations := fs.Int("iterations", cfg.Permutation.Iterations, "annealing steps per attempt")
	attempts := fs.Int("attempts", cfg.Permutation.Attempts, "independent annealing attempts")
	exactLimit := fs.Int("exact-limit", cfg.Permutation.ExactLimit, "largest key length searched exhaustively")
	seed := fs.Uint64("seed", cfg.Seed, "random seed (0 picks one)")
	timeout := fs.Duration("timeout", 0, "stop searching after this long and report the best so far")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(stderr, "perm takes no positional arguments")
		return 2
	}
	if *keyLength <= 0 {
		fmt.Fprintln(stderr, "-key-length must be a positive integer")
		return 2
	}
	ciphertext, err := input.read()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return inputExitCode(err)
	}

	sess, err := openSession(cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer sess.Close()

	opts := sess.permutationOptions()
	opts.Temperature = *temperature
	opts.CoolingRate = *cooling
	opts.Iterations = *iterations
	opts.Attempts = *attempts
	opts.ExactLimit = *exactLimit
	opts.Seed = *seed

	ctx, cancel := searchContext(*timeout)
	defer cancel()

	engine := permutation.New(sess.scorer(), permutation.WithLogger(sess.logger.WithComponent("permutation")))
	res, err := engine.Break(ctx, ciphertext, *keyLength, opts)
	if errors.Is(err, permutation.ErrInvalidOptions) || errors.Is(err, permutation.ErrInvalidKeyLength) {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if res.Key == nil && err != nil {
		fmt.Fprintf(stderr, "permutation search failed: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "run:        %s\n", res.RunID)
	fmt.Fprintf(stdout, "mode:       %s (%d keys evaluated)\n", res.Mode, res.Evaluated)
	fmt.Fprintf(stdout, "score:      %.4f\n", res.Score)
	fmt.Fprintf(stdout, "key:        %s\n", res.Key)
	fmt.Fprintf(stdout, "plaintext:  %s\n", res.Plaintext)
	return searchExitCode(err, stderr)
}

// searchContext cancels on SIGINT/SIGTERM and, when timeout is positive,
// after timeout.
func searchContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// searchExitCode reports how a search that produced a result ended. A
// deadline counts as an exhausted budget; any other error is an interrupt.
func searchExitCode(err error, stderr io.Writer) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.DeadlineExceeded):
		fmt.Fprintln(stderr, "time budget exhausted; best result so far shown")
		return 0
	default:
		fmt.Fprintf(stderr, "search interrupted: %v; best result so far shown\n", err)
		return 1
	}
}
