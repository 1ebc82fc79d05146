package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/documenter-search/mcp-server/internal/config"
	"github.com/documenter-search/mcp-server/internal/httpapi"
	"github.com/documenter-search/mcp-server/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

const (
	version     = "0.3.0"
	serverName  = "documenter-mcp-server"
	description = "MCP server for full-text search over documentation search indexes"
)

func main() {
	// MCP uses stdout for the protocol
	log.SetOutput(os.Stderr)

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		transport  string
		addr       string
	)

	cmd := &cobra.Command{
		Use:           serverName,
		Short:         description,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				log.Printf("Failed to load configuration: %v", err)
				return err
			}
			if cmd.Flags().Changed("transport") {
				cfg.Transport = transport
			}
			if cmd.Flags().Changed("addr") {
				cfg.HTTP.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				log.Printf("Invalid configuration: %v", err)
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "config file (default: config.yaml in ., ./config or ~/.documenter-mcp)")
	cmd.Flags().StringVar(&transport, "transport", config.TransportStdio, "transport: stdio or http")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address for the http transport")
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	log.Printf("%s v%s starting (%s transport)...", serverName, version, cfg.Transport)

	if err := tools.Configure(cfg); err != nil {
		return err
	}

	server := createMCPServer()
	if err := tools.RegisterDocSearchTools(server); err != nil {
		return fmt.Errorf("failed to register doc search tools: %w", err)
	}
	if err := tools.RegisterValidationTools(server); err != nil {
		return fmt.Errorf("failed to register validation tools: %w", err)
	}
	log.Printf("✓ Server ready and waiting for connections")

	defer func() {
		if err := tools.CloseDocSearch(); err != nil {
			log.Printf("Error closing doc search: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Transport == config.TransportHTTP {
		return serveHTTP(ctx, cfg.HTTP, server)
	}

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Server error: %v", err)
		return err
	}
	return nil
}

// createMCPServer initializes the MCP server
func createMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    serverName,
			Version: version,
		},
		nil,
	)

	log.Printf("Server initialized: %s v%s", serverName, version)
	return server
}

// serveHTTP serves the JSON API, MCP over streamable HTTP and metrics until ctx is done
func serveHTTP(ctx context.Context, cfg config.HTTPConfig, server *mcp.Server) error {
	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      httpapi.NewServer(tools.Service{}, mcpHandler, cfg),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("✓ Listening on %s", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server error: %v", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
