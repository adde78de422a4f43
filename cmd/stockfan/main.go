// Command stockfan drafts, fact-checks, and revises a multi-topic company
// report for each company name entered at its prompt.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/alexleeyt8888/StockFanAI-Bot/infrastructure/middleware"
	"github.com/alexleeyt8888/StockFanAI-Bot/internal/application"
	"github.com/alexleeyt8888/StockFanAI-Bot/internal/calllog"
	"github.com/alexleeyt8888/StockFanAI-Bot/internal/logging"
	"github.com/alexleeyt8888/StockFanAI-Bot/internal/ports"
	"github.com/alexleeyt8888/StockFanAI-Bot/internal/report"
)

const serviceName = "stockfan"

func main() {
	if err := rootCMD().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCMD() *cobra.Command {
	var (
		cfgPath     string
		envFile     string
		logLevel    string
		logFormat   string
		metricsAddr string
	)

	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Generate fact-checked company analysis reports",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := logging.Setup(cmd.ErrOrStderr(), logLevel, logFormat); err != nil {
				return err
			}
			if err := loadEnv(envFile, cmd.Flags().Changed("env-file")); err != nil {
				return err
			}

			cfg, err := application.LoadConfig(cfgPath)
			if err != nil {
				return err
			}

			var collector ports.MetricsCollector
			if metricsAddr != "" {
				collector = middleware.NewPrometheusMetrics(prometheus.DefaultRegisterer)
				go serveMetrics(metricsAddr)
			}

			callLog, err := calllog.New(cfg.CallLogPath)
			if err != nil {
				return err
			}

			pipeline, err := buildPipeline(cfg, deps{
				getenv:   os.Getenv,
				callLog:  callLog,
				metrics:  collector,
				observer: middleware.NewOTelStageObserver(serviceName, collector),
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runREPL(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), pipeline, report.NewRenderer(nil))
		},
	}

	flags := root.Flags()
	flags.StringVarP(&cfgPath, "config", "c", "", "pipeline config file (YAML); defaults are used when empty")
	flags.StringVar(&envFile, "env-file", ".env", "file holding API keys")
	flags.StringVar(&logLevel, "log-level", "info", "debug, info, warn, or error")
	flags.StringVar(&logFormat, "log-format", logging.FormatText, "text or json")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")

	return root
}

// loadEnv loads API keys from path. A missing default file is fine; a
// missing file named on the command line is not.
func loadEnv(path string, explicit bool) error {
	err := godotenv.Load(path)
	if err == nil || (!explicit && errors.Is(err, fs.ErrNotExist)) {
		return nil
	}
	return fmt.Errorf("failed to load env file %s: %w", path, err)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("serving metrics", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("metrics server stopped", "error", err)
	}
}
