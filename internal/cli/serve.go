package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thruflo/wordcloud/internal/config"
	"github.com/thruflo/wordcloud/internal/hub"
	"github.com/thruflo/wordcloud/internal/logging"
	"github.com/thruflo/wordcloud/internal/metrics"
	"github.com/thruflo/wordcloud/internal/server"
	"github.com/thruflo/wordcloud/internal/state"
)

var (
	serveConfigPath string
	serveEnvFile    string
	servePort       int
	serveHost       string
	serveUpstream   string
	serveLogLevel   string
	serveLogFormat  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the word cloud server",
	Long: `Runs the word cloud server until interrupted.

Configuration is read from a YAML file (default: wordcloud.yaml, optional),
then from the environment and an optional env file, then from flags.

Environment:
  PORT                     listen port (default: 3000)
  WORDCLOUD_HOST           listen address (default: 0.0.0.0)
  WORDCLOUD_UPSTREAM_URL   embedding service (default: http://localhost:5000)
  WORDCLOUD_LOG_LEVEL      debug, info, warn or error

Example:
  wordcloud serve
  wordcloud serve --port 8080
  wordcloud serve --upstream http://embeddings:5000 --log-level debug
  wordcloud serve --config deploy/wordcloud.yaml --env-file .env`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", config.DefaultConfigFile, "path to YAML config file")
	serveCmd.Flags().StringVar(&serveEnvFile, "env-file", ".env", "path to env file (ignored if missing)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", config.DefaultPort, "listen port")
	serveCmd.Flags().StringVar(&serveHost, "host", config.DefaultHost, "listen address")
	serveCmd.Flags().StringVar(&serveUpstream, "upstream", config.DefaultUpstreamURL, "embedding service URL")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&serveLogFormat, "log-format", config.DefaultLogFormat, "log format (console, json)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadServeConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector("wordcloud")
	h := hub.New(state.NewStore(),
		hub.WithLogger(logger.With("component", "hub")),
		hub.WithMetrics(collector),
	)

	srv, err := server.NewServerFromConfig(cfg, h, collector, logger.With("component", "server"))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	hubDone := make(chan error, 1)
	go func() {
		hubDone <- h.Run(ctx)
	}()

	printBanner(cmd.OutOrStdout(), cfg, localIPv4Addrs())
	logger.Info("Server starting", "addr", cfg.Server.Addr(), "upstream", cfg.Upstream.URL)

	err = srv.Start(ctx)

	// Stop the hub too if the server failed on its own.
	stop()
	<-hubDone
	logger.Info("Server stopped")

	return err
}

// loadServeConfig layers the config file, environment and explicit flags.
func loadServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(serveConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	envFile, err := config.LoadEnvFile(serveEnvFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}
	if err := config.ApplyEnv(cfg, config.LayeredLookup(envFile)); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.Port = servePort
	}
	if flags.Changed("host") {
		cfg.Server.Host = serveHost
	}
	if flags.Changed("upstream") {
		cfg.Upstream.URL = serveUpstream
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = serveLogLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = serveLogFormat
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig, w io.Writer) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewWithOptions(w, level, cfg.Format), nil
}
