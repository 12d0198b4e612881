// Command recovery-plot logs in to WHOOP, fetches recovery records for a
// date range and renders them as a stacked panel chart.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/whoop-recovery/internal/config"
	"github.com/Sternrassler/whoop-recovery/pkg/chart"
	"github.com/Sternrassler/whoop-recovery/pkg/client"
	"github.com/Sternrassler/whoop-recovery/pkg/logging"
	"github.com/Sternrassler/whoop-recovery/pkg/metrics"
	"github.com/Sternrassler/whoop-recovery/pkg/recovery"
	"github.com/Sternrassler/whoop-recovery/pkg/sink"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, os.Stdout)
	stop()

	if cfg.MetricsFile != "" {
		if merr := metrics.WriteTextfile(cfg.MetricsFile); merr != nil {
			log.Warn().Err(merr).Str("path", cfg.MetricsFile).Msg("Failed to write metrics textfile")
		}
	}

	if err != nil {
		log.Error().Err(err).Msg("Run failed")
		logging.Close()
		os.Exit(1)
	}
	logging.Close()
}

// run performs one login, fetch, render and store cycle. The terminal
// preview, when enabled, is written to stdout.
func run(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	logger := logging.NewLogger("recovery-plot")

	out, err := sink.Open(ctx, cfg.Output, cfg.S3)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}

	c, err := client.Login(ctx, cfg.ClientConfig(), cfg.Username, cfg.Password)
	if err != nil {
		return err
	}
	logger.Info().Str("user_id", c.UserID()).Msg("Logged in")

	table, err := recovery.FetchRecovery(ctx, c, cfg.Start, cfg.End)
	if err != nil {
		return err
	}
	logger.Info().
		Int("rows", table.Len()).
		Strs("columns", table.Columns()).
		Str("start", recovery.FormatBound(cfg.Start)).
		Str("end", recovery.FormatBound(cfg.End)).
		Msg("Recovery records fetched")

	if cfg.Preview {
		preview, err := chart.Preview(table, chart.DefaultPreviewOptions())
		if err != nil {
			return fmt.Errorf("preview: %w", err)
		}
		fmt.Fprint(stdout, preview)
	}

	var img bytes.Buffer
	if err := chart.Render(&img, table, chart.DefaultOptions()); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	location, err := out.Put(ctx, cfg.ImageName, "image/png", img.Bytes())
	if err != nil {
		return fmt.Errorf("store chart: %w", err)
	}
	logger.Info().Str("location", location).Int("bytes", img.Len()).Msg("Chart written")

	return nil
}
