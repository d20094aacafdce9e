// Command updater prepares self-update artifacts: it prints the SHA-256
// that `cryptbreak self-update -sha256` expects and, given the previous
// release, writes a bsdiff patch for `self-update -patch`.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/RowanDark/cryptbreak/internal/updater"
)

func main() {
	oldPath := flag.String("old", "", "previous release binary (omit to skip the patch)")
	newPath := flag.String("new", "", "new release binary")
	outPath := flag.String("out", "", "where to write the patch (defaults to <new>.patch)")
	flag.Parse()

	if *newPath == "" {
		fatal(fmt.Errorf("-new is required"))
	}
	patchPath := *outPath
	if *oldPath != "" && patchPath == "" {
		patchPath = *newPath + ".patch"
	}

	rel, err := updater.BuildPatch(*oldPath, *newPath, patchPath)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("sha256: %s\n", rel.SHA256)
	fmt.Printf("size:   %d\n", rel.Size)
	if rel.PatchPath != "" {
		fmt.Printf("patch:  %s (%d bytes)\n", rel.PatchPath, rel.PatchBytes)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
