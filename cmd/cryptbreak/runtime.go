package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/RowanDark/cryptbreak/internal/cipher"
	"github.com/RowanDark/cryptbreak/internal/config"
	"github.com/RowanDark/cryptbreak/internal/freq"
	"github.com/RowanDark/cryptbreak/internal/logging"
	"github.com/RowanDark/cryptbreak/internal/ngram"
	"github.com/RowanDark/cryptbreak/internal/permutation"
	"github.com/RowanDark/cryptbreak/internal/substitution"
)

// session holds what every analysis command needs: the resolved config, the
// reference letter profile, and the audit sink. The language model is the
// process-wide ngram.Default scorer.
type session struct {
	cfg     config.Config
	profile freq.Profile
	logger  *logging.AuditLogger
}

func loadConfig(stderr io.Writer) (config.Config, bool) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return config.Config{}, false
	}
	return cfg, true
}

// openSession loads the quadgram table named by cfg, installs it as the
// process-wide scorer and opens the audit log.
func openSession(cfg config.Config) (*session, error) {
	logger, err := newAuditLogger(cfg.AuditLog)
	if err != nil {
		return nil, err
	}

	table, err := ngram.LoadFile(cfg.Quadgrams)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	ngram.SetDefault(table)
	_ = logger.Emit(logging.AuditEvent{
		EventType: logging.EventTableLoaded,
		Decision:  logging.DecisionInfo,
		Metadata: map[string]any{
			"path":  cfg.Quadgrams,
			"grams": table.Len(),
			"floor": table.Floor(),
		},
	})

	profile := freq.EnglishProfile()
	if path := strings.TrimSpace(cfg.Unigrams); path != "" {
		profile, err = freq.LoadUnigramFile(path)
		if err != nil {
			_ = logger.Close()
			return nil, err
		}
	}

	return &session{cfg: cfg, profile: profile, logger: logger}, nil
}

func (s *session) scorer() *ngram.Scorer {
	return ngram.Default()
}

func (s *session) Close() error {
	return s.logger.Close()
}

func (s *session) substitutionOptions() substitution.Options {
	return substitution.Options{
		Iterations:  s.cfg.Substitution.Iterations,
		Restarts:    s.cfg.Substitution.Restarts,
		Seed:        s.cfg.Seed,
		Parallelism: s.cfg.Parallelism,
		Order:       s.profile.Order,
	}
}

func (s *session) permutationOptions() permutation.Options {
	return permutation.Options{
		Temperature: s.cfg.Permutation.Temperature,
		CoolingRate: s.cfg.Permutation.CoolingRate,
		Iterations:  s.cfg.Permutation.Iterations,
		Attempts:    s.cfg.Permutation.Attempts,
		ExactLimit:  s.cfg.Permutation.ExactLimit,
		Seed:        s.cfg.Seed,
		Parallelism: s.cfg.Parallelism,
	}
}

func (s *session) detector() cipher.Detector {
	return cipher.NewFrequencyDetectorWithProfile(s.profile)
}

// newAuditLogger writes audit events to path, or discards them when no path
// is configured.
func newAuditLogger(path string) (*logging.AuditLogger, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return logging.Discard(), nil
	}
	logger, err := logging.NewAuditLogger("cryptbreak", logging.WithoutStdout(), logging.WithFile(path))
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return logger, nil
}

// inputFlags registers the shared -in and -text flags.
type inputFlags struct {
	in   *string
	text *string
}

func registerInput(fs *flag.FlagSet) inputFlags {
	return inputFlags{
		in:   fs.String("in", "", "read ciphertext from file (- for stdin)"),
		text: fs.String("text", "", "ciphertext given inline"),
	}
}

var (
	errNoInput       = errors.New("one of -in or -text is required")
	errInputConflict = errors.New("-in and -text are mutually exclusive")
)

// inputExitCode maps a read failure to the usage or runtime exit code.
func inputExitCode(err error) int {
	if errors.Is(err, errNoInput) || errors.Is(err, errInputConflict) {
		return 2
	}
	return 1
}

func (f inputFlags) read() (string, error) {
	in := strings.TrimSpace(*f.in)
	switch {
	case in != "" && *f.text != "":
		return "", errInputConflict
	case in == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	case in != "":
		data, err := os.ReadFile(in)
		if err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return string(data), nil
	case *f.text != "":
		return *f.text, nil
	default:
		return "", errNoInput
	}
}
