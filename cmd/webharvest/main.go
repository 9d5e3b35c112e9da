// cmd/webharvest/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/webharvest/webharvest/internal/config"
	"github.com/webharvest/webharvest/internal/monitoring"
	"github.com/webharvest/webharvest/internal/output"
	"github.com/webharvest/webharvest/internal/session"
)

// Version information (set by build flags)
var (
	version   = "dev"
	gitCommit = "unknown"
)

var (
	flagVerbose    bool
	flagStatusAddr string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "webharvest",
		Short:         "Resilient fetch-extract-persist pipeline for web data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false,
		"enable debug logging")

	runCmd := &cobra.Command{
		Use:   "run <site-config.yaml>",
		Short: "Crawl a site and export the collected records",
		Args:  cobra.ExactArgs(1),
		RunE:  runCrawl,
	}
	runCmd.Flags().StringVar(&flagStatusAddr, "status-addr", "",
		"serve /healthz, /metrics and /status on this address while crawling")

	validateCmd := &cobra.Command{
		Use:   "validate <site-config.yaml>",
		Short: "Validate a site configuration without crawling",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := config.LoadFromFile(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("configuration %q is valid (%d field rules, %d seeds)\n",
				cfg.Name, len(cfg.Fields), len(cfg.Seeds()))
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("webharvest %s (%s)\n", version, gitCommit)
		},
	}

	rootCmd.AddCommand(runCmd, validateCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runCrawl(_ *cobra.Command, args []string) error {
	log := newLogger()

	cfg, err := config.LoadFromFile(args[0])
	if err != nil {
		return err
	}

	metrics := monitoring.New()
	sess, err := session.New(cfg, metrics, log)
	if err != nil {
		return err
	}

	if flagStatusAddr != "" {
		srv := monitoring.NewServer(flagStatusAddr, metrics, func() interface{} {
			return sess.Status()
		})
		go func() {
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("status server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcome := sess.Run(ctx)

	// Export whatever was collected, whichever terminal state was reached.
	paths, err := output.NewManager(cfg, metrics, log).Export(outcome.Records, outcome.Failures)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d records from %d pages (%d failures) in %s\n",
		outcome.State, len(outcome.Records), outcome.PagesFetched,
		len(outcome.Failures), outcome.Duration.Round(time.Millisecond))
	for _, path := range paths {
		fmt.Printf("  %s\n", path)
	}

	if outcome.State == session.StateFailed {
		return fmt.Errorf("crawl failed: no pages could be fetched")
	}
	return nil
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()
}
