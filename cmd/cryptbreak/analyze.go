package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/RowanDark/cryptbreak/internal/alphabet"
)

func runDetect(args []string, stdout, stderr io.Writer) int {
	cfg, ok := loadConfig(stderr)
	if !ok {
		return 1
	}

	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	input := registerInput(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(stderr, "detect takes no positional arguments")
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

	results, err := sess.detector().Detect(context.Background(), []byte(ciphertext))
	if err != nil {
		fmt.Fprintf(stderr, "detect: %v\n", err)
		return 1
	}
	for _, r := range results {
		fmt.Fprintf(stdout, "%-14s %5.2f  %s\n", r.Kind, r.Confidence, r.Reasoning)
		if r.Operation != "" {
			fmt.Fprintf(stdout, "%-14s        try: %s\n", "", r.Operation)
		}
	}
	return 0
}

func runScore(args []string, stdout, stderr io.Writer) int {
	cfg, ok := loadConfig(stderr)
	if !ok {
		return 1
	}

	fs := flag.NewFlagSet("score", flag.ContinueOnError)
	fs.SetOutput(stderr)
	input := registerInput(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(stderr, "score takes no positional arguments")
		return 2
	}
	text, err := input.read()
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

	letters := len(alphabet.Letters(text))
	score := sess.scorer().Score(text)
	fmt.Fprintf(stdout, "score:    %.4f\n", score)
	fmt.Fprintf(stdout, "letters:  %d\n", letters)
	if letters >= 4 {
		fmt.Fprintf(stdout, "per gram: %.4f\n", score/float64(letters-3))
	}
	return 0
}
