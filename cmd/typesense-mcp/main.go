package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/qiq-ai/typesense-mcp/internal"
	"github.com/qiq-ai/typesense-mcp/internal/config"
	"github.com/qiq-ai/typesense-mcp/mcp"
	"github.com/qiq-ai/typesense-mcp/scoring"
	"github.com/qiq-ai/typesense-mcp/typesense"
)

var rootCmd = &cobra.Command{
	Use:   "typesense-mcp",
	Short: "An MCP server exposing Typesense product search tools",
	Long: `typesense-mcp serves a small set of schema-described tools over JSON-RPC
on three transports: a WebSocket endpoint (/ws), a request/response HTTP
endpoint (/rpc), and a server-sent event stream (/events) that also receives
every /rpc result.

The Typesense connection is configured from a YAML file and environment
variables (TYPESENSE_HOST, TYPESENSE_API_KEY, ...) and can be changed at
runtime through the typesense_config_set tool without a restart. The API key
may be a 1Password secret reference (op://vault/item/field).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		if !verbose {
			logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		}

		cfg, err := config.LoadFile(configPath)
		if err != nil {
			return err
		}
		if addr != "" {
			cfg.Addr = addr
		}

		key, isSecret, err := internal.ResolveSecretReference(ctx, cfg.Typesense.APIKey)
		if err != nil {
			return fmt.Errorf("error resolving API key: %w", err)
		}
		if isSecret {
			logger.Info("resolved API key from secret reference")
		}

		retryClient := retryablehttp.NewClient()
		retryClient.RetryMax = retries
		retryClient.RetryWaitMin = 1 * time.Second
		retryClient.RetryWaitMax = 30 * time.Second
		retryClient.HTTPClient.Timeout = timeout
		retryClient.Logger = logger
		client := retryClient.StandardClient()

		adapter := typesense.NewAdapter(typesense.Config{
			Host:        cfg.Typesense.Host,
			Protocol:    cfg.Typesense.Protocol,
			Port:        cfg.Typesense.Port,
			APIKey:      key,
			Collection:  cfg.Typesense.Collection,
			QueryFields: cfg.Typesense.QueryFields,
		}, typesense.WithHTTPClient(client), typesense.WithLogger(logger))
		controller := typesense.NewController(adapter, logger)

		registry := mcp.NewRegistry()
		tools := []mcp.ToolDef{
			mcp.PingTool(),
			adapter.SearchTool(),
			scoring.Tool(),
			controller.ConfigTool(),
			controller.HealthTool(),
		}
		for _, tool := range tools {
			if err := registry.Register(tool); err != nil {
				return fmt.Errorf("error registering tool %s: %w", tool.Name, err)
			}
		}

		server := mcp.NewServer(registry,
			mcp.WithLogger(logger),
			mcp.WithServerInfo("typesense-mcp", version))

		httpServer := &http.Server{
			Addr:              cfg.Addr,
			Handler:           mcp.NewHandler(server, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, ctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			logger.Info("listening", "addr", cfg.Addr)
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

var (
	addr       string
	configPath string
	verbose    bool
	retries    int
	timeout    time.Duration

	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func init() {
	rootCmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config file and ADDR)")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging to stderr")
	rootCmd.Flags().IntVar(&retries, "retries", 3, "Maximum number of retries for failed backend requests")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "Backend request timeout")

	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built at: %s)", version, commit, date)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
