package updater

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/kr/binarydist"
)

// Release describes a published build: the checksum self-update verifies
// and, when a patch was produced, its size.
type Release struct {
	SHA256     string
	Size       int64
	PatchPath  string
	PatchBytes int64
}

// Diff writes a bsdiff patch that turns oldBinary into newBinary.
func Diff(oldBinary, newBinary io.Reader, patch io.Writer) error {
	if err := binarydist.Diff(oldBinary, newBinary, patch); err != nil {
		return fmt.Errorf("bsdiff: %w", err)
	}
	return nil
}

// BuildPatch hashes newPath and, when oldPath is set, writes the patch from
// oldPath to newPath at patchPath.
func BuildPatch(oldPath, newPath, patchPath string) (Release, error) {
	newData, err := os.ReadFile(newPath)
	if err != nil {
		return Release{}, fmt.Errorf("read new binary: %w", err)
	}
	sum := sha256.Sum256(newData)
	rel := Release{SHA256: hex.EncodeToString(sum[:]), Size: int64(len(newData))}
	if oldPath == "" {
		return rel, nil
	}
	if patchPath == "" {
		return Release{}, fmt.Errorf("patch output path is required")
	}

	old, err := os.Open(oldPath)
	if err != nil {
		return Release{}, fmt.Errorf("open old binary: %w", err)
	}
	defer old.Close()

	var buf bytes.Buffer
	if err := Diff(old, bytes.NewReader(newData), &buf); err != nil {
		return Release{}, err
	}
	if err := os.WriteFile(patchPath, buf.Bytes(), 0o644); err != nil {
		return Release{}, fmt.Errorf("write patch: %w", err)
	}
	rel.PatchPath = patchPath
	rel.PatchBytes = int64(buf.Len())
	return rel, nil
}
