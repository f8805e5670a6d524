package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jamesprial/colony-directory/internal/config"
	"github.com/jamesprial/colony-directory/internal/logging"
	"github.com/jamesprial/colony-directory/pkg/database"
	"github.com/jamesprial/colony-directory/pkg/directory"
	"github.com/jamesprial/colony-directory/pkg/ingest"
	"github.com/jamesprial/colony-directory/pkg/router"
	"github.com/jamesprial/colony-directory/pkg/server"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	SERVICE_NAME = "colony-directory"
	VERSION      = "1.0.0"
)

var (
	httpAddr     = flag.String("http", "", "HTTP address to listen on (e.g., :8080). If not set, uses stdio")
	sseMode      = flag.Bool("sse", false, "Also serve MCP over SSE (Server-Sent Events) in HTTP mode")
	portFile     = flag.String("portfile", "", "If set with -http, write the actual bound TCP port to this file")
	resourcesDir = flag.String("resources", "", "Directory holding companies.json and people.json (overrides COLONY_RESOURCES_DIR)")
)

func main() {
	flag.Parse()

	logLevel := logging.GetLogLevel()
	logger := logging.NewLogger(SERVICE_NAME, logLevel)
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("application exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("graceful shutdown complete")
}

func run(logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("starting colony directory",
		slog.String("version", VERSION),
		slog.String("log_level", logging.GetLogLevel().String()),
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration",
			slog.String("error", err.Error()),
		)
		return err
	}
	if *resourcesDir != "" {
		cfg.ResourcesDir = *resourcesDir
	}

	logger.Info("configuration loaded",
		slog.String("db_path", cfg.DBPath),
		slog.String("resources_dir", cfg.ResourcesDir),
		slog.Bool("watch", cfg.Watch),
	)

	dbLogger := logger.With(slog.String("component", "database"))
	db, err := database.NewDBWithLogger(cfg.DBPath, dbLogger)
	if err != nil {
		logger.Error("failed to initialize database",
			slog.String("error", err.Error()),
			slog.String("path", cfg.DBPath),
		)
		return err
	}
	defer db.Close()

	// The first cycle must succeed; queries have nothing to serve otherwise.
	dir := directory.New()
	source := ingest.Source{Dir: cfg.ResourcesDir}
	pipeline := ingest.NewPipeline(source, db, dir, logger.With(slog.String("component", "ingest")))
	if _, err := pipeline.Run(ctx); err != nil {
		return fmt.Errorf("initial ingestion failed: %w", err)
	}

	var watcher *ingest.Watcher
	if cfg.Watch {
		watcher, err = ingest.NewWatcher(source,
			func(ctx context.Context) error {
				_, err := pipeline.Run(ctx)
				return err
			},
			logger.With(slog.String("component", "watcher")),
			nil,
		)
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
	}

	srvLogger := logger.With(slog.String("component", "server"))
	srv := server.NewServerWithLogger(dir, srvLogger)

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    SERVICE_NAME,
			Version: VERSION,
		},
		nil,
	)
	srv.RegisterTools(mcpServer)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	done := make(chan error, 1)
	var httpServer *http.Server

	if *httpAddr != "" {
		httpServer, err = startHTTPServer(logger, srv, mcpServer, done)
		if err != nil {
			return err
		}
	} else {
		startStdioServer(ctx, logger, mcpServer, done)
	}

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		logger.Info("server stopped cleanly")
	case sig := <-sigChan:
		logger.Info("received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	}

	shutdown(logger, httpServer, watcher)
	return nil
}

func shutdown(logger *slog.Logger, httpServer *http.Server, watcher *ingest.Watcher) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		logger.Info("shutting down HTTP server...")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
	}

	if watcher != nil {
		logger.Info("stopping resource watcher...")
		if err := watcher.Stop(); err != nil {
			logger.Error("resource watcher shutdown error", slog.String("error", err.Error()))
		}
	}
}

func startHTTPServer(logger *slog.Logger, srv *server.Server, mcpServer *mcp.Server, done chan<- error) (*http.Server, error) {
	routerCfg := &router.RouterConfig{
		EnableSSE:     *sseMode,
		EnableStream:  true, // Always enable stream endpoint in HTTP mode
		EnableMetrics: true,
		Name:          SERVICE_NAME,
		Version:       VERSION,
	}
	handler := router.NewRouter(srv, mcpServer, logger.With(slog.String("component", "http")), routerCfg)
	httpServer := &http.Server{
		Addr:              *httpAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		return nil, fmt.Errorf("HTTP listen error: %w", err)
	}

	if *portFile != "" {
		addr := ln.Addr().(*net.TCPAddr)
		if err := os.WriteFile(*portFile, []byte(fmt.Sprintf("%d", addr.Port)), 0644); err != nil {
			logger.Warn("failed writing portfile", slog.String("error", err.Error()), slog.String("file", *portFile))
		} else {
			logger.Info("wrote port to file", slog.Int("port", addr.Port), slog.String("file", *portFile))
		}
	}

	go func() {
		logger.Info("starting HTTP server", slog.Bool("sse_enabled", *sseMode), slog.String("address", ln.Addr().String()))
		if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			done <- fmt.Errorf("HTTP server error: %w", err)
		} else {
			done <- nil
		}
	}()
	return httpServer, nil
}

func startStdioServer(ctx context.Context, logger *slog.Logger, mcpServer *mcp.Server, done chan<- error) {
	go func() {
		logger.Info("starting in stdio mode")
		if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
			done <- err
		} else {
			done <- nil
		}
	}()
}
