package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/RowanDark/cryptbreak/internal/cipher"
)

// runApply runs registered cipher operations over the input, for example to
// decrypt with a key printed by perm or sub.
func runApply(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("apply", flag.ContinueOnError)
	fs.SetOutput(stderr)
	input := registerInput(fs)
	ops := fs.String("op", "", "comma-separated operations to run in order")
	key := fs.String("key", "", "transposition key, e.g. 2,0,1")
	mapping := fs.String("mapping", "", "substitution mapping, 26 plaintext letters in ciphertext order")
	reverse := fs.Bool("reverse", false, "run the inverse of the chain")
	list := fs.Bool("list", false, "list the available operations")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(stderr, "apply takes no positional arguments")
		return 2
	}

	if *list {
		for _, op := range cipher.ListOperations() {
			fmt.Fprintf(stdout, "%-22s %-10s %s\n", op.Name(), op.Type(), op.Description())
		}
		return 0
	}

	params := map[string]interface{}{}
	if *key != "" {
		params["key"] = *key
	}
	if *mapping != "" {
		params["mapping"] = *mapping
	}
	pipeline := &cipher.Pipeline{Reversible: true}
	for _, name := range strings.Split(*ops, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := cipher.GetOperation(name); !ok {
			fmt.Fprintf(stderr, "unknown operation %q (see apply -list)\n", name)
			return 2
		}
		pipeline.Operations = append(pipeline.Operations, cipher.OperationConfig{Name: name, Parameters: params})
	}
	if len(pipeline.Operations) == 0 {
		fmt.Fprintln(stderr, "-op is required")
		return 2
	}

	text, err := input.read()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return inputExitCode(err)
	}

	if *reverse {
		if pipeline, err = pipeline.Reverse(); err != nil {
			fmt.Fprintf(stderr, "apply: %v\n", err)
			return 2
		}
	}
	out, err := pipeline.Execute(context.Background(), []byte(text))
	if err != nil {
		fmt.Fprintf(stderr, "apply: %v\n", err)
		return applyExitCode(err)
	}
	fmt.Fprintln(stdout, string(out))
	return 0
}

func applyExitCode(err error) int {
	switch {
	case errors.Is(err, cipher.ErrMissingParameter),
		errors.Is(err, cipher.ErrInvalidKey),
		errors.Is(err, cipher.ErrInvalidMapping):
		return 2
	default:
		return 1
	}
}
