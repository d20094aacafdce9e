package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/RowanDark/cryptbreak/internal/env"
	"github.com/RowanDark/cryptbreak/internal/permutation"
	"github.com/RowanDark/cryptbreak/internal/substitution"
)

// Config captures the cryptbreak configuration resolved from defaults,
// optional files, and environment overrides.
type Config struct {
	Quadgrams    string             `yaml:"quadgrams"`
	Unigrams     string             `yaml:"unigrams"`
	Substitution SubstitutionConfig `yaml:"substitution"`
	Permutation  PermutationConfig  `yaml:"permutation"`
	Parallelism  int                `yaml:"parallelism"`
	Seed         uint64             `yaml:"seed"`
	Server       ServerConfig       `yaml:"server"`
	AuditLog     string             `yaml:"audit_log"`
}

// SubstitutionConfig sets the hill-climbing budget.
type SubstitutionConfig struct {
	Iterations int `yaml:"iterations"`
	Restarts   int `yaml:"restarts"`
}

// PermutationConfig sets the transposition search parameters.
type PermutationConfig struct {
	Temperature float64 `yaml:"temperature"`
	CoolingRate float64 `yaml:"cooling_rate"`
	Iterations  int     `yaml:"iterations"`
	Attempts    int     `yaml:"attempts"`
	ExactLimit  int     `yaml:"exact_limit"`
}

// ServerConfig controls the gRPC and metrics listeners.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MaxConns    int    `yaml:"max_conns"`
	MetricsAddr string `yaml:"metrics_addr"`
	Token       string `yaml:"token"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Quadgrams: "english_quadgrams.txt",
		Unigrams:  "",
		Substitution: SubstitutionConfig{
			Iterations: substitution.DefaultIterations,
			Restarts:   substitution.DefaultRestarts,
		},
		Permutation: PermutationConfig{
			Temperature: permutation.DefaultTemperature,
			CoolingRate: permutation.DefaultCoolingRate,
			Iterations:  permutation.DefaultIterations,
			Attempts:    permutation.DefaultAttempts,
			ExactLimit:  permutation.DefaultExactLimit,
		},
		Parallelism: runtime.GOMAXPROCS(0),
		Seed:        0,
		Server: ServerConfig{
			Addr:        "127.0.0.1:50061",
			MaxConns:    64,
			MetricsAddr: "",
		},
		AuditLog: "",
	}
}

// Load resolves the configuration using defaults, configuration files, and
// environment overrides. Files are applied in order, later ones winning:
//  1. ~/.cryptbreak/config.yml
//  2. ./cryptbreak.yml
//
// Environment variables prefixed with CRYPTBREAK_ have the highest
// precedence; the legacy CBREAK_ prefix is still honoured.
func Load() (Config, error) {
	cfg := Default()

	if err := loadHomeConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadLocalConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects budgets the engines cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Substitution.Iterations < 0 || c.Substitution.Iterations > substitution.MaxIterations {
		errs = append(errs, fmt.Errorf("substitution.iterations must be between 0 and %d", substitution.MaxIterations))
	}
	if c.Substitution.Restarts < 1 || c.Substitution.Restarts > substitution.MaxRestarts {
		errs = append(errs, fmt.Errorf("substitution.restarts must be between 1 and %d", substitution.MaxRestarts))
	}
	if c.Permutation.Temperature <= 0 {
		errs = append(errs, fmt.Errorf("permutation.temperature must be positive"))
	}
	if c.Permutation.CoolingRate <= 0 || c.Permutation.CoolingRate > 1 {
		errs = append(errs, fmt.Errorf("permutation.cooling_rate must be in (0, 1]"))
	}
	if c.Permutation.Iterations < 0 || c.Permutation.Iterations > permutation.MaxIterations {
		errs = append(errs, fmt.Errorf("permutation.iterations must be between 0 and %d", permutation.MaxIterations))
	}
	if c.Permutation.Attempts < 0 || c.Permutation.Attempts > permutation.MaxAttempts {
		errs = append(errs, fmt.Errorf("permutation.attempts must be between 0 and %d", permutation.MaxAttempts))
	}
	if c.Permutation.ExactLimit < 0 || c.Permutation.ExactLimit > permutation.MaxExactLimit {
		errs = append(errs, fmt.Errorf("permutation.exact_limit must be between 0 and %d", permutation.MaxExactLimit))
	}
	if c.Parallelism < 0 {
		errs = append(errs, fmt.Errorf("parallelism must not be negative"))
	}
	if c.Server.MaxConns < 0 {
		errs = append(errs, fmt.Errorf("server.max_conns must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func loadHomeConfig(cfg *Config) error {
	home, err := os.UserHomeDir()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("determine home directory: %w", err)
	}
	return loadFile(cfg, filepath.Join(home, ".cryptbreak", "config.yml"))
}

func loadLocalConfig(cfg *Config) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}
	return loadFile(cfg, filepath.Join(wd, "cryptbreak.yml"))
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := applyFileConfig(cfg, data); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// fileConfig mirrors Config with pointer fields so a file only overrides the
// keys it sets.
type fileConfig struct {
	Quadgrams    *string                 `yaml:"quadgrams"`
	Unigrams     *string                 `yaml:"unigrams"`
	Substitution *fileSubstitutionConfig `yaml:"substitution"`
	Permutation  *filePermutationConfig  `yaml:"permutation"`
	Parallelism  *int                    `yaml:"parallelism"`
	Seed         *uint64                 `yaml:"seed"`
	Server       *fileServerConfig       `yaml:"server"`
	AuditLog     *string                 `yaml:"audit_log"`
}

type fileSubstitutionConfig struct {
	Iterations *int `yaml:"iterations"`
	Restarts   *int `yaml:"restarts"`
}

type filePermutationConfig struct {
	Temperature *float64 `yaml:"temperature"`
	CoolingRate *float64 `yaml:"cooling_rate"`
	Iterations  *int     `yaml:"iterations"`
	Attempts    *int     `yaml:"attempts"`
	ExactLimit  *int     `yaml:"exact_limit"`
}

type fileServerConfig struct {
	Addr        *string `yaml:"addr"`
	MaxConns    *int    `yaml:"max_conns"`
	MetricsAddr *string `yaml:"metrics_addr"`
	Token       *string `yaml:"token"`
}

func applyFileConfig(cfg *Config, data []byte) error {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}

	if fc.Quadgrams != nil {
		cfg.Quadgrams = strings.TrimSpace(*fc.Quadgrams)
	}
	if fc.Unigrams != nil {
		cfg.Unigrams = strings.TrimSpace(*fc.Unigrams)
	}
	if fc.Parallelism != nil {
		cfg.Parallelism = *fc.Parallelism
	}
	if fc.Seed != nil {
		cfg.Seed = *fc.Seed
	}
	if fc.AuditLog != nil {
		cfg.AuditLog = strings.TrimSpace(*fc.AuditLog)
	}
	if s := fc.Substitution; s != nil {
		if s.Iterations != nil {
			cfg.Substitution.Iterations = *s.Iterations
		}
		if s.Restarts != nil {
			cfg.Substitution.Restarts = *s.Restarts
		}
	}
	if p := fc.Permutation; p != nil {
		if p.Temperature != nil {
			cfg.Permutation.Temperature = *p.Temperature
		}
		if p.CoolingRate != nil {
			cfg.Permutation.CoolingRate = *p.CoolingRate
		}
		if p.Iterations != nil {
			cfg.Permutation.Iterations = *p.Iterations
		}
		if p.Attempts != nil {
			cfg.Permutation.Attempts = *p.Attempts
		}
		if p.ExactLimit != nil {
			cfg.Permutation.ExactLimit = *p.ExactLimit
		}
	}
	if s := fc.Server; s != nil {
		if s.Addr != nil {
			cfg.Server.Addr = strings.TrimSpace(*s.Addr)
		}
		if s.MaxConns != nil {
			cfg.Server.MaxConns = *s.MaxConns
		}
		if s.MetricsAddr != nil {
			cfg.Server.MetricsAddr = strings.TrimSpace(*s.MetricsAddr)
		}
		if s.Token != nil {
			cfg.Server.Token = strings.TrimSpace(*s.Token)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	strs := []struct {
		name string
		dst  *string
	}{
		{"QUADGRAMS", &cfg.Quadgrams},
		{"UNIGRAMS", &cfg.Unigrams},
		{"SERVER_ADDR", &cfg.Server.Addr},
		{"METRICS_ADDR", &cfg.Server.MetricsAddr},
		{"AUDIT_LOG", &cfg.AuditLog},
		{"TOKEN", &cfg.Server.Token},
	}
	for _, s := range strs {
		if val, ok := env.Setting(s.name); ok {
			*s.dst = val
		}
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"SUB_ITERATIONS", &cfg.Substitution.Iterations},
		{"SUB_RESTARTS", &cfg.Substitution.Restarts},
		{"PERM_ITERATIONS", &cfg.Permutation.Iterations},
		{"PERM_ATTEMPTS", &cfg.Permutation.Attempts},
		{"PERM_EXACT_LIMIT", &cfg.Permutation.ExactLimit},
		{"PARALLELISM", &cfg.Parallelism},
		{"MAX_CONNS", &cfg.Server.MaxConns},
	}
	for _, i := range ints {
		if val, ok := env.Setting(i.name); ok {
			parsed, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("parse CRYPTBREAK_%s: %w", i.name, err)
			}
			*i.dst = parsed
		}
	}

	floats := []struct {
		name string
		dst  *float64
	}{
		{"PERM_TEMPERATURE", &cfg.Permutation.Temperature},
		{"PERM_COOLING_RATE", &cfg.Permutation.CoolingRate},
	}
	for _, f := range floats {
		if val, ok := env.Setting(f.name); ok {
			parsed, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("parse CRYPTBREAK_%s: %w", f.name, err)
			}
			*f.dst = parsed
		}
	}

	if val, ok := env.Setting("SEED"); ok {
		parsed, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return fmt.Errorf("parse CRYPTBREAK_SEED: %w", err)
		}
		cfg.Seed = parsed
	}
	return nil
}
