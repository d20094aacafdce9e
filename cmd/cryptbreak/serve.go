package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/RowanDark/cryptbreak/internal/breaksvc"
	"github.com/RowanDark/cryptbreak/internal/logging"
	"github.com/RowanDark/cryptbreak/internal/metrics"
)

type serveConfig struct {
	service     breaksvc.Config
	maxConns    int
	metricsAddr string
	grace       time.Duration
}

func runServe(args []string, stdout, stderr io.Writer) int {
	cfg, ok := loadConfig(stderr)
	if !ok {
		return 1
	}

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", cfg.Server.Addr, "address for the gRPC server to listen on")
	maxConns := fs.Int("max-conns", cfg.Server.MaxConns, "maximum concurrent connections (0 for no limit)")
	metricsAddr := fs.String("metrics-addr", cfg.Server.MetricsAddr, "address for the Prometheus metrics endpoint (empty to disable)")
	token := fs.String("token", cfg.Server.Token, "token clients must present as authorization metadata (empty to disable)")
	grace := fs.Duration("grace", 2*time.Second, "time allowed for in-flight calls on shutdown")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(stderr, "serve takes no positional arguments")
		return 2
	}
	if *maxConns < 0 {
		fmt.Fprintln(stderr, "-max-conns must not be negative")
		return 2
	}

	sess, err := openSession(cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer sess.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		fmt.Fprintf(stderr, "listen on %s: %v\n", *addr, err)
		return 1
	}
	fmt.Fprintf(stdout, "cryptbreak serving on %s\n", lis.Addr())

	err = serve(ctx, lis, serveConfig{
		service: breaksvc.Config{
			Substitution: sess.substitutionOptions(),
			Permutation:  sess.permutationOptions(),
			Detector:     sess.detector(),
			Logger:       sess.logger.WithComponent("breaksvc"),
			Token:        *token,
		},
		maxConns:    *maxConns,
		metricsAddr: strings.TrimSpace(*metricsAddr),
		grace:       *grace,
	})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

// serve runs the gRPC service on lis, plus the metrics endpoint when
// configured, until ctx is cancelled or either server fails.
func serve(ctx context.Context, lis net.Listener, cfg serveConfig) error {
	svc, err := breaksvc.New(cfg.service)
	if err != nil {
		return err
	}
	if cfg.maxConns > 0 {
		lis = netutil.LimitListener(lis, cfg.maxConns)
	}

	g, ctx := errgroup.WithContext(ctx)
	if cfg.metricsAddr != "" {
		mlis, err := net.Listen("tcp", cfg.metricsAddr)
		if err != nil {
			_ = lis.Close()
			return fmt.Errorf("listen for metrics on %s: %w", cfg.metricsAddr, err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsSrv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := metricsSrv.Serve(mlis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				emitAudit(cfg.service.Logger, logging.AuditEvent{
					EventType: logging.EventRPCCall,
					Decision:  logging.DecisionInfo,
					Reason:    err.Error(),
					Metadata:  map[string]any{"phase": "metrics_shutdown"},
				})
			}
			return nil
		})
		emitAudit(cfg.service.Logger, logging.AuditEvent{
			EventType: logging.EventRPCCall,
			Decision:  logging.DecisionInfo,
			Metadata: map[string]any{
				"phase":   "metrics_ready",
				"address": mlis.Addr().String(),
			},
		})
	}

	g.Go(func() error {
		return svc.Serve(ctx, lis, cfg.grace)
	})
	return g.Wait()
}

func emitAudit(logger *logging.AuditLogger, event logging.AuditEvent) {
	if logger == nil {
		return
	}
	_ = logger.Emit(event)
}
