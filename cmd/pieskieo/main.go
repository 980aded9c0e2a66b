// Package main implements the pieskieo CLI for manual operations against a Pieskieo server.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/pieskieo/pieskieo-go/internal/config"
	logpkg "github.com/pieskieo/pieskieo-go/internal/logger"
	"github.com/pieskieo/pieskieo-go/internal/metrics"
	openaiEmb "github.com/pieskieo/pieskieo-go/internal/transport/openai"
	"github.com/pieskieo/pieskieo-go/internal/version"
	pieskieo "github.com/pieskieo/pieskieo-go/pkg/sdk"
)

func main() {
	if err := execute(newRootCmd()); err != nil {
		os.Exit(1)
	}
}

// execute runs the command tree and always releases the client and flushes
// metrics afterwards, including when the command failed.
func execute(cmd *cobra.Command, o *rootOptions) error {
	err := cmd.Execute()
	if terr := o.teardown(); terr != nil {
		cmd.PrintErrln("Error:", terr)
		return errors.Join(err, terr)
	}
	return err
}

// rootOptions carries global flags and the per-invocation client.
type rootOptions struct {
	server      string
	token       string
	timeout     time.Duration
	env         string
	logLevel    string
	metricsFile string

	cfg      config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	client   *pieskieo.Client
}

func newRootCmd() (*cobra.Command, *rootOptions) {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "pieskieo",
		Short: "CLI for Pieskieo server operations",
		Long: `pieskieo is a command-line interface for a Pieskieo server: vectors,
documents, rows, graph edges and SQL.

The server and credentials come from the profile config/<env>.yaml (or
~/.config/pieskieo/<env>.yaml), PIESKIEO_URL / PIESKIEO_TOKEN and flags,
in increasing order of precedence. Results are printed as JSON.

Examples:
  # Check health
  pieskieo health

  # Store a vector and search for its neighbours
  pieskieo put-vector --values 0.1,0.2,0.3 --meta lang=en
  pieskieo search-vector --query 0.1,0.2,0.3 --k 5

  # Query documents with SQL
  pieskieo query-doc --sql "SELECT * FROM docs WHERE lang = 'en'"`,
		Version:           version.String(),
		SilenceUsage:      true,
		PersistentPreRunE: o.setup,
	}

	f := cmd.PersistentFlags()
	f.StringVar(&o.server, "server", "", "Pieskieo server URL (overrides profile and PIESKIEO_URL)")
	f.StringVar(&o.token, "token", "", "bearer token (overrides profile and PIESKIEO_TOKEN)")
	f.DurationVar(&o.timeout, "timeout", 0, "per-request timeout (default from profile, 5s)")
	f.StringVar(&o.env, "env", "", "profile name (default $PIESKIEO_ENV or local)")
	f.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error")
	f.StringVar(&o.metricsFile, "metrics-textfile", "", "write Prometheus metrics to this file after the command")

	cmd.AddCommand(newHealthCmd(o))
	addVectorCommands(cmd, o)
	addRecordCommands(cmd, o, docFamily)
	addRecordCommands(cmd, o, rowFamily)
	addSQLCommands(cmd, o)
	addGraphCommands(cmd, o)
	addTextCommands(cmd, o)
	return cmd, o
}

// setup loads the profile and builds the logger, metrics registry and client.
func (o *rootOptions) setup(cmd *cobra.Command, _ []string) error {
	env := o.env
	if env == "" {
		env = config.GetEnv()
	}
	cfg, err := config.Load(env)
	if err != nil {
		return err
	}
	if o.server != "" {
		cfg.Server.URL = o.server
	}
	if o.token != "" {
		cfg.Server.Token = o.token
		cfg.Server.User = ""
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.metricsFile != "" {
		cfg.Metrics.Textfile = o.metricsFile
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	o.cfg = cfg

	logEnv := "dev"
	if env == "prod" {
		logEnv = "prod"
	}
	o.logger, err = logpkg.NewLogger(logEnv, cfg.Logging.Level)
	if err != nil {
		return err
	}

	timeout := o.timeout
	if timeout <= 0 {
		timeout = cfg.Server.Timeout()
	}

	o.registry = prometheus.NewRegistry()
	opts := []pieskieo.Option{
		pieskieo.WithTimeout(timeout),
		pieskieo.WithUserAgent("pieskieo-cli/" + version.Version),
		pieskieo.WithLogger(logpkg.NewSlog(o.logger)),
		pieskieo.WithPrometheus(o.registry),
		pieskieo.WithTracerProvider(otel.GetTracerProvider()),
	}
	switch {
	case cfg.Server.Token != "":
		opts = append(opts, pieskieo.WithBearerToken(cfg.Server.Token))
	case cfg.Server.User != "":
		opts = append(opts, pieskieo.WithBasicAuth(cfg.Server.User, cfg.Server.Password))
	}
	if cfg.Embedding.Enabled() {
		embMetrics, err := metrics.NewEmbedding(o.registry)
		if err != nil {
			return err
		}
		opts = append(opts, pieskieo.WithEmbedder(openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Provider:   cfg.Embedding.Provider,
			Logger:     o.logger,
			Metrics:    embMetrics,
		})))
	}

	o.client, err = pieskieo.New(cfg.Server.URL, opts...)
	if err != nil {
		return err
	}

	o.logger.Debug("client ready",
		zap.String("env", env),
		zap.String("server", o.client.BaseURL()),
		zap.Duration("timeout", timeout),
		zap.Bool("embedding", cfg.Embedding.Enabled()),
	)
	ctx := logpkg.ContextWithLogger(cmd.Context(), o.logger)
	cmd.SetContext(logpkg.With(ctx, zap.String("command", cmd.Name())))
	return nil
}

// teardown is safe to call more than once and after a failed setup.
func (o *rootOptions) teardown() error {
	if o.client != nil {
		_ = o.client.Close()
		o.client = nil
	}
	if o.logger != nil {
		defer func() { _ = o.logger.Sync() }()
	}
	if o.cfg.Metrics.Textfile != "" && o.registry != nil {
		if err := prometheus.WriteToTextfile(o.cfg.Metrics.Textfile, o.registry); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

// printJSON writes v as indented JSON followed by a newline.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func newHealthCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check Pieskieo server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := o.client.Health(cmd.Context()); err != nil {
				return err
			}
			logpkg.FromContext(cmd.Context()).Info("server healthy", zap.String("server", o.client.BaseURL()))
			return printJSON(cmd.OutOrStdout(), map[string]string{"status": "ok"})
		},
	}
}
