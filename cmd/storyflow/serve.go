package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/storyflow"
	"github.com/aretw0/storyflow/internal/cli"
	"github.com/aretw0/storyflow/internal/logging"
	httpadapter "github.com/aretw0/storyflow/pkg/adapters/http"
	mcpadapter "github.com/aretw0/storyflow/pkg/adapters/mcp"
	"github.com/aretw0/storyflow/pkg/adapters/memory"
	"github.com/aretw0/storyflow/pkg/observability"
	"github.com/aretw0/storyflow/pkg/runner"
	"github.com/aretw0/storyflow/pkg/session"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve <project.yaml>",
	Short: "Start the HTTP debugging server",
	Long: `Serves debugging sessions of the project over a JSON HTTP API, with Prometheus metrics on /metrics.

With --mcp the same sessions are exposed as Model Context Protocol tools:
- stdio: MCP on Standard Input/Output instead of the HTTP API.
- sse: MCP over Server-Sent Events on --mcp-addr, next to the HTTP API.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		interval, _ := cmd.Flags().GetDuration("interval")
		maxSteps, _ := cmd.Flags().GetInt("max-steps")
		levelFlag, _ := cmd.Flags().GetString("log-level")
		if levelFlag == "" {
			levelFlag = "info"
		}
		level, err := cli.ParseLevel(levelFlag)
		if err != nil {
			return err
		}
		var logOpts []logging.Option
		if format, _ := cmd.Flags().GetString("log-format"); format == "json" {
			logOpts = append(logOpts, logging.WithJSON())
		}
		logger := logging.New(level, logOpts...)

		metrics := observability.NewMetrics(observability.WithRuntimeMetrics())
		opts := []storyflow.Option{
			storyflow.WithLogger(logger),
			storyflow.WithLifecycleHooks(observability.Chain(metrics.Hooks(), observability.LogHooks(logger))),
		}
		if maxSteps > 0 {
			opts = append(opts, storyflow.WithMaxSteps(maxSteps))
		}
		engine, err := loadEngine(args[0], opts...)
		if err != nil {
			return err
		}

		sessions := session.NewManager(memory.NewStore(), session.WithLogger(logger))
		play := runner.New(engine, runner.WithInterval(interval), runner.WithLogger(logger))

		mcpMode, _ := cmd.Flags().GetString("mcp")
		var mcpServer *mcpadapter.Server
		switch mcpMode {
		case "":
		case "stdio", "sse":
			mcpServer = mcpadapter.NewServer(engine, sessions,
				mcpadapter.WithLogger(logger),
				mcpadapter.WithRunner(play),
				mcpadapter.WithVersion(resolveVersion()),
			)
		default:
			return fmt.Errorf("unknown MCP transport %q (supported: stdio, sse)", mcpMode)
		}
		if mcpMode == "stdio" {
			// Stdout carries JSON-RPC; logs stay on stderr.
			logger.Info("Starting storyflow MCP server (stdio)", "project", engine.Name)
			return mcpServer.ServeStdio()
		}

		server := httpadapter.NewServer(engine, sessions,
			httpadapter.WithLogger(logger),
			httpadapter.WithMetrics(metrics.Handler()),
			httpadapter.WithRunner(play),
		)

		srv := &http.Server{
			Addr:              addr,
			Handler:           server.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 2)
		go func() {
			logger.Info("Starting storyflow server", "addr", srv.Addr, "project", engine.Name)
			serverErrors <- srv.ListenAndServe()
		}()

		mcpCtx, stopMCP := context.WithCancel(context.Background())
		defer stopMCP()
		if mcpServer != nil {
			mcpAddr, _ := cmd.Flags().GetString("mcp-addr")
			go func() {
				if err := mcpServer.ServeSSE(mcpCtx, mcpAddr, "http://localhost"+mcpAddr); err != nil {
					serverErrors <- fmt.Errorf("mcp: %w", err)
				}
			}()
		}

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("Start shutdown", "signal", sig)

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("Graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			logger.Info("storyflow server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().Duration("interval", 0, "Delay between steps of auto-play requests")
	serveCmd.Flags().Int("max-steps", 0, "Step limit before execution pauses (default 1000)")
	serveCmd.Flags().String("mcp", "", "Also expose sessions over MCP: 'stdio' or 'sse'")
	serveCmd.Flags().String("mcp-addr", ":8081", "Address of the MCP SSE endpoint (only for --mcp sse)")
	serveCmd.Flags().String("log-format", "text", "Operator log format on stderr (text, json)")
}
