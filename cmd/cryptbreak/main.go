package main

import (
	"fmt"
	"io"
	"os"
)

const productName = "cryptbreak"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	switch args[0] {
	case "sub":
		return runSub(args[1:], stdout, stderr)
	case "perm":
		return runPerm(args[1:], stdout, stderr)
	case "detect":
		return runDetect(args[1:], stdout, stderr)
	case "score":
		return runScore(args[1:], stdout, stderr)
	case "apply":
		return runApply(args[1:], stdout, stderr)
	case "serve":
		return runServe(args[1:], stdout, stderr)
	case "self-update":
		return runSelfUpdate(args[1:], stdout, stderr)
	case "version", "--version", "-version":
		return runVersion(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", args[0])
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "%s breaks classical ciphers using quadgram statistics\n\n", productName)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  cryptbreak sub    [-in file|-text s] [-iterations n] [-restarts n] [-seed n] [-freq-only]")
	fmt.Fprintln(w, "  cryptbreak perm   [-in file|-text s] -key-length n [-temperature t] [-cooling r] [-iterations n] [-attempts n] [-seed n]")
	fmt.Fprintln(w, "  cryptbreak detect [-in file|-text s]")
	fmt.Fprintln(w, "  cryptbreak score  [-in file|-text s]")
	fmt.Fprintln(w, "  cryptbreak apply  [-in file|-text s] -op name[,name...] [-key k] [-mapping m] [-reverse] | -list")
	fmt.Fprintln(w, "  cryptbreak serve  [-addr host:port] [-max-conns n] [-metrics-addr host:port]")
	fmt.Fprintln(w, "  cryptbreak self-update -url URL -sha256 HEX [-patch] | -rollback -backup path")
	fmt.Fprintln(w, "  cryptbreak version")
}
