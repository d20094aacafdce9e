// Package updater replaces the running cryptbreak binary with a downloaded
// build, either a full executable or a bsdiff patch against the current one.
package updater

import (
	"bytes"
	"context"
	"crypto"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	update "github.com/inconshreveable/go-update"

	"github.com/RowanDark/cryptbreak/internal/logging"
)

// Options describes one self-update.
type Options struct {
	// URL serves the new binary, or a patch when Patch is set.
	URL string
	// Checksum is the hex SHA-256 of the resulting binary.
	Checksum string
	// Patch marks URL as a bsdiff patch against the current binary.
	Patch bool
	// TargetPath is the binary to replace; empty means os.Executable.
	TargetPath string
	// BackupPath keeps the replaced binary for Rollback; empty discards it.
	BackupPath string
	// Version is reported in the User-Agent header.
	Version    string
	HTTPClient *http.Client
	Logger     *logging.AuditLogger
}

// Result reports what was written.
type Result struct {
	TargetPath string
	BackupPath string
	Bytes      int
	Patched    bool
}

// Apply downloads opts.URL and swaps it in for the target binary. The target
// is only replaced when the resulting binary matches opts.Checksum; on failure
// go-update restores the original.
func Apply(ctx context.Context, opts Options) (Result, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return Result{}, errors.New("update URL is required")
	}
	checksum, err := DecodeHex(opts.Checksum)
	if err != nil {
		return Result{}, fmt.Errorf("decode checksum: %w", err)
	}
	target, err := resolveTarget(opts.TargetPath)
	if err != nil {
		return Result{}, err
	}
	info, err := os.Stat(target)
	if err != nil {
		return Result{}, fmt.Errorf("stat executable: %w", err)
	}

	updOpts := update.Options{
		TargetPath:  target,
		TargetMode:  info.Mode(),
		Checksum:    checksum,
		OldSavePath: opts.BackupPath,
		Hash:        crypto.SHA256,
	}
	if err := updOpts.CheckPermissions(); err != nil {
		return Result{}, fmt.Errorf("insufficient permissions to update %s: %w", target, err)
	}

	data, err := download(ctx, opts.httpClient(), opts.URL, opts.Version)
	if err != nil {
		return Result{}, err
	}
	kind := "full"
	if opts.Patch {
		kind = "patch"
		updOpts.Patcher = update.NewBSDiffPatcher()
	}
	if err := update.Apply(bytes.NewReader(data), updOpts); err != nil {
		if rerr := update.RollbackError(err); rerr != nil {
			return Result{}, fmt.Errorf("apply %s update: %v (rollback failed: %v)", kind, err, rerr)
		}
		return Result{}, fmt.Errorf("apply %s update: %w", kind, err)
	}

	res := Result{TargetPath: target, BackupPath: opts.BackupPath, Bytes: len(data), Patched: opts.Patch}
	if opts.Logger != nil {
		_ = opts.Logger.Emit(logging.AuditEvent{
			EventType: logging.EventUpdateApplied,
			Decision:  logging.DecisionAllow,
			Metadata: map[string]any{
				"url":    opts.URL,
				"kind":   kind,
				"target": target,
				"bytes":  len(data),
			},
		})
	}
	return res, nil
}

// Rollback restores the binary saved at backupPath over targetPath. The
// current binary is kept at backupPath in exchange, so a second Rollback
// undoes the first.
func Rollback(targetPath, backupPath string) error {
	if strings.TrimSpace(backupPath) == "" {
		return errors.New("no rollback backup recorded")
	}
	backup, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("read backup binary: %w", err)
	}
	target, err := resolveTarget(targetPath)
	if err != nil {
		return err
	}
	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("stat executable: %w", err)
	}
	sum := sha256.Sum256(backup)
	err = update.Apply(bytes.NewReader(backup), update.Options{
		TargetPath:  target,
		TargetMode:  info.Mode(),
		OldSavePath: backupPath,
		Checksum:    sum[:],
		Hash:        crypto.SHA256,
	})
	if err != nil {
		if rerr := update.RollbackError(err); rerr != nil {
			return fmt.Errorf("rollback failed: %v (rollback error: %v)", err, rerr)
		}
		return fmt.Errorf("rollback failed: %w", err)
	}
	return nil
}

// DecodeHex decodes a SHA-256 checksum from a hex string into raw bytes.
func DecodeHex(sum string) ([]byte, error) {
	cleaned := strings.TrimSpace(sum)
	if len(cleaned) == 0 {
		return nil, errors.New("empty checksum")
	}
	if len(cleaned) != 2*sha256.Size {
		return nil, fmt.Errorf("invalid checksum length %d", len(cleaned))
	}
	b, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("decode checksum: %w", err)
	}
	return b, nil
}

func resolveTarget(path string) (string, error) {
	if strings.TrimSpace(path) != "" {
		return path, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("determine executable path: %w", err)
	}
	return exe, nil
}

func download(ctx context.Context, client *http.Client, targetURL, version string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("construct request: %w", err)
	}
	if strings.TrimSpace(version) == "" {
		version = "dev"
	}
	req.Header.Set("User-Agent", fmt.Sprintf("cryptbreak/%s (%s/%s)", version, runtime.GOOS, runtime.GOARCH))
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", targetURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		return nil, fmt.Errorf("download %s: unexpected status %d: %s", targetURL, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", targetURL, err)
	}
	return data, nil
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{Timeout: 60 * time.Second}
}
