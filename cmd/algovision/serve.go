package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Zouzou-2006/algovision"
	"github.com/Zouzou-2006/algovision/internal/observability"
	"github.com/Zouzou-2006/algovision/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis protocol over stdio",
	Long:  "Speaks JSON-RPC 2.0 over stdin/stdout. Logs go to stderr.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := observability.InitTracing(ctx, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer tp.Shutdown(context.Background())

	opts := append(engineOptions(cfg, log), algovision.WithTracer(tp.Tracer()))
	srv, err := server.New(log, opts...)
	if err != nil {
		return err
	}
	defer srv.Close()

	log.Info("serving on stdio", "maxNodes", cfg.MaxNodes, "snapshotDB", cfg.SnapshotDB)
	if err := srv.Serve(ctx, stdio{}); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// stdio adapts the process's stdin/stdout to an io.ReadWriteCloser.
type stdio struct{}

var _ io.ReadWriteCloser = stdio{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdio) Close() error                { return os.Stdout.Close() }
