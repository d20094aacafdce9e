package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/RowanDark/cryptbreak/internal/breaksvc"
	"github.com/RowanDark/cryptbreak/internal/logging"
	"github.com/RowanDark/cryptbreak/internal/permutation"
	"github.com/RowanDark/cryptbreak/internal/substitution"
	"github.com/RowanDark/cryptbreak/internal/testutil"
)

// isolate points config resolution at empty directories and the corpus
// quadgram table.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", filepath.Join(dir, "home"))
	t.Chdir(dir)
	t.Setenv("CRYPTBREAK_QUADGRAMS", testutil.WriteQuadgramFile(t))
	t.Setenv("CRYPTBREAK_SEED", "7")
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunDispatch(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no args", nil, 2},
		{"unknown", []string{"frobnicate"}, 2},
		{"help", []string{"help"}, 0},
		{"version extra args", []string{"version", "extra"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, _, stderr := runCLI(t, tt.args...); code != tt.want {
				t.Fatalf("expected exit %d, got %d (stderr %q)", tt.want, code, stderr)
			}
		})
	}
}

func TestRunVersion(t *testing.T) {
	code, stdout, _ := runCLI(t, "version")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if strings.TrimSpace(stdout) != "cryptbreak dev" {
		t.Fatalf("unexpected version output %q", stdout)
	}
}

func TestRunPermRecoversKey(t *testing.T) {
	isolate(t)
	code, stdout, stderr := runCLI(t, "perm", "-text", "EORLWLHLOD", "-key-length", "3")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, stderr)
	}
	if !strings.Contains(stdout, "key:        [2,0,1]") {
		t.Fatalf("expected key [2,0,1], got %q", stdout)
	}
	if !strings.Contains(stdout, "plaintext:  HELLOWORLD") {
		t.Fatalf("expected HELLOWORLD, got %q", stdout)
	}
	if !strings.Contains(stdout, "mode:       exact") {
		t.Fatalf("expected exact mode, got %q", stdout)
	}
}

func TestRunApplyUsesRecoveredKey(t *testing.T) {
	isolate(t)
	code, stdout, stderr := runCLI(t, "apply", "-text", "EORLWLHLOD", "-op", "columnar_decrypt", "-key", "[2,0,1]")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, stderr)
	}
	if strings.TrimSpace(stdout) != "HELLOWORLD" {
		t.Fatalf("expected HELLOWORLD, got %q", stdout)
	}

	code, stdout, stderr = runCLI(t, "apply", "-text", "hello world", "-op", "columnar_decrypt", "-key", "2,0,1", "-reverse")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, stderr)
	}
	if strings.TrimSpace(stdout) != "EORLWLHLOD" {
		t.Fatalf("expected EORLWLHLOD, got %q", stdout)
	}
}

func TestRunApplyList(t *testing.T) {
	code, stdout, _ := runCLI(t, "apply", "-list")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	for _, name := range []string{"columnar_decrypt", "substitution_decrypt", "normalize_letters"} {
		if !strings.Contains(stdout, name) {
			t.Errorf("expected %s in listing, got %q", name, stdout)
		}
	}
}

func TestRunApplyUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing op", []string{"apply", "-text", "ABC"}},
		{"unknown op", []string{"apply", "-text", "ABC", "-op", "rot13"}},
		{"missing key", []string{"apply", "-text", "ABC", "-op", "columnar_decrypt"}},
		{"bad key", []string{"apply", "-text", "ABC", "-op", "columnar_decrypt", "-key", "0,0,1"}},
		{"bad mapping", []string{"apply", "-text", "ABC", "-op", "substitution_decrypt", "-mapping", "ABC"}},
		{"irreversible", []string{"apply", "-text", "ABC", "-op", "normalize_letters", "-reverse"}},
		{"no input", []string{"apply", "-op", "normalize_letters"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, _, stderr := runCLI(t, tt.args...); code != 2 {
				t.Fatalf("expected exit 2, got %d (stderr %q)", code, stderr)
			}
		})
	}
}

func TestRunPermUsageErrors(t *testing.T) {
	isolate(t)
	tests := []struct {
		name string
		args []string
	}{
		{"missing key length", []string{"perm", "-text", "EORLWLHLOD"}},
		{"key length above limit", []string{"perm", "-text", "ABC", "-key-length", "5000"}},
		{"bad cooling", []string{"perm", "-text", "EORLWLHLOD", "-key-length", "3", "-cooling", "1.5"}},
		{"no input", []string{"perm", "-key-length", "3"}},
		{"both inputs", []string{"perm", "-key-length", "3", "-text", "ABC", "-in", "x.txt"}},
		{"positional", []string{"perm", "-key-length", "3", "stray"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, _, stderr := runCLI(t, tt.args...); code != 2 {
				t.Fatalf("expected exit 2, got %d (stderr %q)", code, stderr)
			}
		})
	}
}

func TestRunSubFrequencyOnly(t *testing.T) {
	isolate(t)
	code, stdout, stderr := runCLI(t, "sub", "-text", "QXMMCVCKMB", "-freq-only")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, stderr)
	}
	if !strings.Contains(stdout, "plaintext:  ISEETNTOEA") {
		t.Fatalf("unexpected output %q", stdout)
	}
	if !strings.Contains(stdout, "M -> E") {
		t.Fatalf("expected mapping table, got %q", stdout)
	}
}

func TestRunSubFromFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "cipher.txt")
	if err := os.WriteFile(path, []byte("QXMMC VCKMB"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	code, stdout, stderr := runCLI(t, "sub", "-in", path, "-iterations", "500", "-restarts", "2")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, stderr)
	}
	if !strings.Contains(stdout, "(2 passes)") {
		t.Fatalf("expected two passes, got %q", stdout)
	}
	if code, _, _ := runCLI(t, "sub", "-in", filepath.Join(t.TempDir(), "missing.txt")); code != 1 {
		t.Fatalf("expected exit 1 for unreadable input, got %d", code)
	}
	if code, _, _ := runCLI(t, "sub", "-text", "ABC", "-restarts", "0"); code != 2 {
		t.Fatalf("expected exit 2 for zero restarts, got %d", code)
	}
}

func TestRunScoreAndDetect(t *testing.T) {
	isolate(t)
	code, stdout, _ := runCLI(t, "score", "-text", "Hello world")
	if code != 0 {
		t.Fatalf("score exit %d", code)
	}
	if !strings.Contains(stdout, "letters:  10") {
		t.Fatalf("unexpected score output %q", stdout)
	}

	code, stdout, _ = runCLI(t, "detect", "-text", "XQZ JK")
	if code != 0 {
		t.Fatalf("detect exit %d", code)
	}
	if !strings.HasPrefix(stdout, "unknown") {
		t.Fatalf("expected unknown classification, got %q", stdout)
	}
}

func TestMissingQuadgramTable(t *testing.T) {
	isolate(t)
	t.Setenv("CRYPTBREAK_QUADGRAMS", filepath.Join(t.TempDir(), "absent.txt"))
	code, _, stderr := runCLI(t, "score", "-text", "HELLO")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr, "open quadgram file") {
		t.Fatalf("unexpected stderr %q", stderr)
	}
}

func TestAuditLogRecordsSearch(t *testing.T) {
	isolate(t)
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	t.Setenv("CRYPTBREAK_AUDIT_LOG", logPath)

	if code, _, stderr := runCLI(t, "perm", "-text", "EORLWLHLOD", "-key-length", "3"); code != 0 {
		t.Fatalf("perm exit %d (stderr %q)", code, stderr)
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	for _, want := range []string{`"event_type":"table_loaded"`, `"event_type":"search_finished"`, `"component":"permutation"`} {
		if !bytes.Contains(data, []byte(want)) {
			t.Fatalf("audit log missing %s:\n%s", want, data)
		}
	}
}

func TestRunSelfUpdate(t *testing.T) {
	isolate(t)
	newBinary := []byte("#!/bin/sh\necho cryptbreak v2\n")
	sum := sha256.Sum256(newBinary)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(newBinary)
	}))
	defer srv.Close()

	dir := t.TempDir()
	target := filepath.Join(dir, "cryptbreak")
	if err := os.WriteFile(target, []byte("#!/bin/sh\necho cryptbreak v1\n"), 0o755); err != nil {
		t.Fatalf("write target: %v", err)
	}
	backup := filepath.Join(dir, "cryptbreak.old")

	code, stdout, stderr := runCLI(t, "self-update", "-url", srv.URL, "-sha256", hex.EncodeToString(sum[:]), "-target", target, "-backup", backup)
	if code != 0 {
		t.Fatalf("self-update exit %d (stderr %q)", code, stderr)
	}
	if !strings.Contains(stdout, "previous binary saved to") {
		t.Fatalf("unexpected output %q", stdout)
	}
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	if !bytes.Equal(got, newBinary) {
		t.Fatalf("target not replaced: %q", got)
	}

	if code, _, stderr := runCLI(t, "self-update", "-rollback", "-target", target, "-backup", backup); code != 0 {
		t.Fatalf("rollback exit %d (stderr %q)", code, stderr)
	}
	got, err = os.ReadFile(target)
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	if !strings.Contains(string(got), "v1") {
		t.Fatalf("rollback did not restore v1: %q", got)
	}
}

func TestRunSelfUpdateUsage(t *testing.T) {
	tests := [][]string{
		{"self-update"},
		{"self-update", "-url", "http://example.invalid/bin"},
		{"self-update", "-url", "http://example.invalid/bin", "-sha256", "abc"},
		{"self-update", "-rollback"},
	}
	for _, args := range tests {
		if code, _, _ := runCLI(t, args...); code != 2 {
			t.Fatalf("%v: expected exit 2, got %d", args, code)
		}
	}
}

func TestServeBootsAndShutsDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	logger, err := logging.NewAuditLogger("cryptbreak_test", logging.WithoutStdout(), logging.WithWriter(&bytes.Buffer{}))
	if err != nil {
		t.Fatalf("NewAuditLogger: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- serve(ctx, lis, serveConfig{
			service: breaksvc.Config{
				Scorer:       testutil.Scorer(t),
				Substitution: substitution.DefaultOptions(),
				Permutation:  permutation.DefaultOptions(),
				Logger:       logger,
			},
			maxConns:    4,
			metricsAddr: "127.0.0.1:0",
			grace:       time.Second,
		})
	}()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("failed to create gRPC client: %v", err)
	}
	callCtx, callCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer callCancel()
	req, err := structpb.NewStruct(map[string]any{"text": "HELLO WORLD"})
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	resp, err := breaksvc.NewClient(conn).Score(callCtx, req)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if resp.GetFields()["letters"].GetNumberValue() != 10 {
		t.Fatalf("unexpected response %v", resp)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("failed to close client connection: %v", err)
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down after context cancellation")
	}
}
