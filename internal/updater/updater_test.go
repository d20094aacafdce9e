package updater

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/RowanDark/cryptbreak/internal/logging"
)

type artifactServer struct {
	server *httptest.Server
	full   []byte
	patch  []byte
	agents []string
}

func newArtifactServer(t *testing.T, full, patch []byte) *artifactServer {
	t.Helper()
	as := &artifactServer{full: full, patch: patch}
	mux := http.NewServeMux()
	mux.HandleFunc("/full", func(w http.ResponseWriter, r *http.Request) {
		as.agents = append(as.agents, r.UserAgent())
		w.Write(as.full)
	})
	mux.HandleFunc("/patch", func(w http.ResponseWriter, r *http.Request) {
		w.Write(as.patch)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	as.server = httptest.NewServer(mux)
	t.Cleanup(as.server.Close)
	return as
}

func hexSum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func writeTarget(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cryptbreak")
	if err := os.WriteFile(path, data, 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func skipOnWindows(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Windows self-update semantics require elevated permissions in tests")
	}
}

func TestApplyFullAndRollback(t *testing.T) {
	skipOnWindows(t)
	oldBinary := []byte("cryptbreak 1.0.0")
	newBinary := []byte("cryptbreak 1.1.0")
	srv := newArtifactServer(t, newBinary, nil)

	target := writeTarget(t, oldBinary)
	backup := filepath.Join(t.TempDir(), "cryptbreak.previous")

	buf := &bytes.Buffer{}
	logger := logging.MustNewAuditLogger("updater", logging.WithoutStdout(), logging.WithWriter(buf))

	res, err := Apply(context.Background(), Options{
		URL:        srv.server.URL + "/full",
		Checksum:   hexSum(newBinary),
		TargetPath: target,
		BackupPath: backup,
		Version:    "1.0.0",
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Patched || res.Bytes != len(newBinary) {
		t.Fatalf("unexpected result %+v", res)
	}
	if got, _ := os.ReadFile(target); !bytes.Equal(got, newBinary) {
		t.Fatalf("target not updated: %q", got)
	}
	if got, _ := os.ReadFile(backup); !bytes.Equal(got, oldBinary) {
		t.Fatalf("backup mismatch: %q", got)
	}
	if len(srv.agents) != 1 || !strings.HasPrefix(srv.agents[0], "cryptbreak/1.0.0") {
		t.Fatalf("unexpected user agents %v", srv.agents)
	}
	if !strings.Contains(buf.String(), `"event_type":"update_applied"`) {
		t.Fatalf("expected update_applied event, got %s", buf.String())
	}

	if err := Rollback(target, backup); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if got, _ := os.ReadFile(target); !bytes.Equal(got, oldBinary) {
		t.Fatalf("rollback did not restore previous binary: %q", got)
	}
}

func TestApplyPatch(t *testing.T) {
	skipOnWindows(t)
	oldBinary := []byte("cryptbreak 1.0.0 with a few more bytes of payload")
	newBinary := []byte("cryptbreak 1.2.0 with a few more bytes of payload!")

	var patch bytes.Buffer
	if err := Diff(bytes.NewReader(oldBinary), bytes.NewReader(newBinary), &patch); err != nil {
		t.Fatalf("Diff: %v", err)
	}
	srv := newArtifactServer(t, nil, patch.Bytes())
	target := writeTarget(t, oldBinary)

	res, err := Apply(context.Background(), Options{
		URL:        srv.server.URL + "/patch",
		Checksum:   hexSum(newBinary),
		Patch:      true,
		TargetPath: target,
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !res.Patched {
		t.Fatal("expected patched result")
	}
	if got, _ := os.ReadFile(target); !bytes.Equal(got, newBinary) {
		t.Fatalf("patch not applied: %q", got)
	}
}

func TestApplyChecksumMismatchLeavesTarget(t *testing.T) {
	skipOnWindows(t)
	oldBinary := []byte("cryptbreak 1.0.0")
	srv := newArtifactServer(t, []byte("tampered"), nil)
	target := writeTarget(t, oldBinary)

	_, err := Apply(context.Background(), Options{
		URL:        srv.server.URL + "/full",
		Checksum:   hexSum([]byte("cryptbreak 1.1.0")),
		TargetPath: target,
	})
	if err == nil {
		t.Fatal("expected checksum error")
	}
	if got, _ := os.ReadFile(target); !bytes.Equal(got, oldBinary) {
		t.Fatalf("target modified despite failed update: %q", got)
	}
}

func TestApplyErrors(t *testing.T) {
	skipOnWindows(t)
	srv := newArtifactServer(t, nil, nil)
	target := writeTarget(t, []byte("x"))
	valid := hexSum([]byte("y"))

	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"missing url", Options{Checksum: valid, TargetPath: target}, "URL is required"},
		{"bad checksum", Options{URL: srv.server.URL + "/full", Checksum: "abc", TargetPath: target}, "checksum"},
		{"missing target", Options{URL: srv.server.URL + "/full", Checksum: valid, TargetPath: filepath.Join(t.TempDir(), "nope")}, "stat executable"},
		{"not found", Options{URL: srv.server.URL + "/missing", Checksum: valid, TargetPath: target}, "unexpected status 404"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(context.Background(), tt.opts)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}

	if err := Rollback(target, ""); err == nil {
		t.Fatal("expected error without backup path")
	}
}
