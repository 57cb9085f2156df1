// Package apistub is a local stand-in for the remote project API. It keeps
// projects in sqlite, plays a scripted agent run for each new project and
// streams the run's progress over text/event-stream.
package apistub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/buildwatch/buildwatch/internals/timeouts"
	"github.com/buildwatch/buildwatch/internals/version"
)

const (
	dbFileName      = "apistub.db"
	uploadsDirName  = "uploads"
	maxUploadMemory = 32 << 20
)

type Options struct {
	// DataDir holds the database and uploaded files.
	DataDir string
	// StepDelay is the pause between simulated run steps.
	StepDelay time.Duration
	Logger    *slog.Logger
}

type Server struct {
	Logger     *slog.Logger
	store      *store
	broker     *broker
	runner     *runner
	uploadDir  string
	keepAlive  time.Duration
	httpServer *http.Server
}

func New(ctx context.Context, opts Options) (*Server, error) {
	if opts.DataDir == "" {
		return nil, errors.New("apistub: data dir is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "apistub"))

	dataDir := filepath.Join(filepath.Clean(opts.DataDir), "stub")
	uploadDir := filepath.Join(dataDir, uploadsDirName)
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("apistub: create data dir: %w", err)
	}

	store, err := openStore(ctx, filepath.Join(dataDir, dbFileName))
	if err != nil {
		return nil, fmt.Errorf("apistub: open store: %w", err)
	}

	broker := newBroker(logger)
	return &Server{
		Logger:    logger,
		store:     store,
		broker:    broker,
		runner:    newRunner(store, broker, logger, opts.StepDelay),
		uploadDir: uploadDir,
		keepAlive: timeouts.StubKeepAlive,
	}, nil
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: timeouts.StubReadHeader,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.httpServer = server

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.StubShutdown)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.Logger.Error("shutdown failed", "error", err)
		}
	}()

	s.Logger.Info("api stub listening", "addr", listener.Addr().String(), "version", version.Version())
	err := server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close stops in-flight runs and closes the database.
func (s *Server) Close() error {
	s.runner.stop()
	return s.store.close()
}
