package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/RowanDark/cryptbreak/internal/updater"
)

func runSelfUpdate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("self-update", flag.ContinueOnError)
	fs.SetOutput(stderr)
	url := fs.String("url", "", "URL of the new binary, or of a bsdiff patch with -patch")
	checksum := fs.String("sha256", "", "hex SHA-256 of the resulting binary")
	patch := fs.Bool("patch", false, "treat -url as a bsdiff patch against the current binary")
	target := fs.String("target", "", "binary to replace (defaults to the running executable)")
	backup := fs.String("backup", "", "keep the replaced binary here for -rollback")
	rollback := fs.Bool("rollback", false, "restore the binary saved at -backup")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(stderr, "self-update takes no positional arguments")
		return 2
	}

	if *rollback {
		if strings.TrimSpace(*backup) == "" {
			fmt.Fprintln(stderr, "-rollback requires -backup")
			return 2
		}
		if err := updater.Rollback(*target, *backup); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintln(stdout, "restored previous binary")
		return 0
	}

	if strings.TrimSpace(*url) == "" || strings.TrimSpace(*checksum) == "" {
		fmt.Fprintln(stderr, "-url and -sha256 are required")
		return 2
	}
	if _, err := updater.DecodeHex(*checksum); err != nil {
		fmt.Fprintf(stderr, "invalid -sha256: %v\n", err)
		return 2
	}

	cfg, ok := loadConfig(stderr)
	if !ok {
		return 1
	}
	logger, err := newAuditLogger(cfg.AuditLog)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := updater.Apply(ctx, updater.Options{
		URL:        *url,
		Checksum:   *checksum,
		Patch:      *patch,
		TargetPath: *target,
		BackupPath: *backup,
		Version:    version,
		Logger:     logger.WithComponent("updater"),
	})
	if err != nil {
		fmt.Fprintf(stderr, "self-update failed: %v\n", err)
		return 1
	}
	kind := "binary"
	if res.Patched {
		kind = "patch"
	}
	fmt.Fprintf(stdout, "updated %s from %d byte %s\n", res.TargetPath, res.Bytes, kind)
	if res.BackupPath != "" {
		fmt.Fprintf(stdout, "previous binary saved to %s\n", res.BackupPath)
	}
	return 0
}
