// Package ingest implements the ingest command.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/reader/cmd/common"
	"github.com/jonesrussell/north-cloud/reader/internal/domain"
	"github.com/jonesrussell/north-cloud/reader/internal/ingest"
	"github.com/jonesrussell/north-cloud/reader/internal/logger"
	"github.com/jonesrussell/north-cloud/reader/internal/reader"
	"github.com/jonesrussell/north-cloud/reader/internal/retry"
)

// ErrSourcesFailed is returned when at least one source could not be ingested.
var ErrSourcesFailed = errors.New("ingestion failed")

// ErrNoTarget is returned when neither a source ID nor --all is given.
var ErrNoTarget = errors.New("a source id or --all is required")

type options struct {
	all             bool
	retries         int
	metricsTextfile string
}

// Command returns the ingest command.
func Command() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "ingest [source-id]",
		Short: "Fetch feeds and store their new articles",
		Example: `  reader ingest 1b4e28ba-2fa1-11d2-883f-0016d3cca427
  reader ingest --all --retries 3 --metrics-textfile /var/lib/node_exporter/reader.prom`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.all && len(args) == 0 {
				return ErrNoTarget
			}
			return run(cmd.Context(), cmd.OutOrStdout(), args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.all, "all", false, "ingest every active source")
	cmd.Flags().IntVar(&opts.retries, "retries", -1,
		"attempts per source for network failures (default from ingest.retries, 1 disables retrying)")
	cmd.Flags().StringVar(&opts.metricsTextfile, "metrics-textfile", "",
		"write ingestion metrics in Prometheus text format to this file")
	return cmd
}

func run(ctx context.Context, out io.Writer, args []string, opts options) error {
	reg := prometheus.NewRegistry()

	svc, deps, err := common.OpenService(ctx, reg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	if opts.retries < 0 {
		opts.retries = deps.Config.Ingest.Retries
	}
	if opts.metricsTextfile == "" {
		opts.metricsTextfile = deps.Config.Metrics.Textfile
	}

	retryCfg := retry.DefaultConfig()
	if opts.retries > 0 {
		retryCfg.MaxAttempts = opts.retries
	}

	var outcomes []ingest.Outcome
	if opts.all {
		outcomes, err = ingestAll(ctx, svc, retryCfg, deps.Logger)
	} else {
		outcomes, err = ingestOne(ctx, svc, retryCfg, args[0])
	}
	if err != nil {
		return err
	}

	render(out, outcomes)

	if opts.metricsTextfile != "" {
		if writeErr := prometheus.WriteToTextfile(opts.metricsTextfile, reg); writeErr != nil {
			return fmt.Errorf("write metrics textfile: %w", writeErr)
		}
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sources: %w", failed, len(outcomes), ErrSourcesFailed)
	}
	return nil
}

func ingestOne(ctx context.Context, svc *reader.Service, cfg retry.Config, raw string) ([]ingest.Outcome, error) {
	id, err := common.ParseID("source", raw)
	if err != nil {
		return nil, err
	}

	src, err := svc.Store().GetSource(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	res, ingestErr := retry.Do(ctx, cfg, func(ctx context.Context) (ingest.Result, error) {
		return svc.IngestSource(ctx, id)
	})
	return []ingest.Outcome{{Source: src, Result: res, Err: ingestErr}}, nil
}

// ingestAll runs every active source once, then retries those that failed
// with a transient error.
func ingestAll(ctx context.Context, svc *reader.Service, cfg retry.Config, log logger.Logger) ([]ingest.Outcome, error) {
	outcomes, err := svc.IngestAll(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.MaxAttempts <= 1 {
		return outcomes, nil
	}

	cfg.MaxAttempts--
	for i := range outcomes {
		o := &outcomes[i]
		if o.Err == nil || !retry.IsTransient(o.Err) {
			continue
		}

		log.Info("retrying source", logger.String("source_id", o.Source.ID.String()), logger.Error(o.Err))
		id := o.Source.ID
		o.Result, o.Err = retry.Do(ctx, cfg, func(ctx context.Context) (ingest.Result, error) {
			return svc.IngestSource(ctx, id)
		})
	}
	return outcomes, nil
}

func render(w io.Writer, outcomes []ingest.Outcome) {
	t := common.NewTable(w, table.Row{"Source", "Title", "Added", "Skipped", "Status"})

	totalAdded := 0
	for _, o := range outcomes {
		totalAdded += o.Result.Added
		t.AppendRow(table.Row{
			sourceID(o.Source),
			common.Truncate(title(o.Source), common.DefaultTitleWidth),
			o.Result.Added,
			o.Result.Skipped,
			status(o),
		})
	}
	t.AppendFooter(table.Row{"", "Total", totalAdded, "", ""})
	t.Render()
}

func status(o ingest.Outcome) string {
	switch {
	case o.Err != nil:
		return "error: " + o.Err.Error()
	case o.Result.NotModified:
		return "not modified"
	default:
		return "ok"
	}
}

func sourceID(s *domain.Source) uuid.UUID {
	if s == nil {
		return uuid.Nil
	}
	return s.ID
}

func title(s *domain.Source) string {
	if s == nil {
		return ""
	}
	return s.Title
}
