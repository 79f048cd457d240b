package cli

import (
	"caselaw/packages/domain"
	"caselaw/packages/store"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"
)

func pageRangeFlags(cmd *cobra.Command, start, end *int) {
	cmd.Flags().IntVar(start, "start", 1, "First listing page.")
	cmd.Flags().IntVar(end, "end", 1, "Last listing page, inclusive.")
}

func checkPageRange(start, end int) error {
	if start < 1 || end < start {
		return fmt.Errorf("invalid page range %d..%d", start, end)
	}
	return nil
}

// finish writes the run report next to out. Cancellation is not an error:
// whatever was persisted before the signal is kept.
func finish(out string, report *domain.Report, runErr error) error {
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if errors.Is(runErr, context.Canceled) {
		slog.Warn("Run interrupted, output is partial", "workflow", report.Workflow, "out", out)
	}
	if err := store.WriteReport(out, report); err != nil {
		return err
	}
	slog.Info("Run report written", "path", store.ReportPath(out), "written", len(report.Written), "skipped", len(report.Skipped))
	return nil
}

func newHarvestCommand(a *app) *cobra.Command {
	var start, end int
	var out string
	cmd := &cobra.Command{
		Use:   "harvest --start N --end M --out urls.json",
		Short: "Collect judgment page URLs from search listing pages into a JSON array.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkPageRange(start, end); err != nil {
				return err
			}
			urls, report, err := a.crawler().HarvestURLs(cmd.Context(), a.cfg.SearchURL, start, end)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			if err := store.WriteURLs(out, urls); err != nil {
				return err
			}
			return finish(out, report, err)
		},
	}
	pageRangeFlags(cmd, &start, &end)
	cmd.Flags().StringVar(&out, "out", "", "File the URL list is written to.")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newLinksCommand(a *app) *cobra.Command {
	var in, out string
	cmd := &cobra.Command{
		Use:   "links --in urls.json --out links.json",
		Short: "Extract title, reference and PDF download link for every URL, storing each record as it is read.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPerURL(cmd.Context(), in, out, domain.WorkflowLinks)
		},
	}
	urlIOFlags(cmd, &in, &out)
	return cmd
}

func newHeadersCommand(a *app) *cobra.Command {
	var in, out string
	cmd := &cobra.Command{
		Use:   "headers --in urls.json --out headers.json",
		Short: "Extract judgment header details for every URL, storing each titled record as it is read.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPerURL(cmd.Context(), in, out, domain.WorkflowHeaders)
		},
	}
	urlIOFlags(cmd, &in, &out)
	return cmd
}

func urlIOFlags(cmd *cobra.Command, in, out *string) {
	cmd.Flags().StringVar(in, "in", "", "JSON array of judgment URLs, as written by harvest.")
	cmd.Flags().StringVar(out, "out", "", "Records file; with other backends only the run report is written here.")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
}

func (a *app) runPerURL(ctx context.Context, in, out string, workflow domain.Workflow) error {
	urls, err := store.ReadURLs(in)
	if err != nil {
		return err
	}
	sink, closeSink, err := store.Open(ctx, a.cfg, out)
	if err != nil {
		return err
	}
	defer closeSink()

	c := a.crawler()
	var report *domain.Report
	switch workflow {
	case domain.WorkflowLinks:
		report, err = c.ScrapeDownloadLinks(ctx, urls, sink)
	default:
		report, err = c.ScrapeHeaders(ctx, urls, sink)
	}
	return finish(out, report, err)
}

func newListingCommand(a *app) *cobra.Command {
	var start, end int
	var out string
	var legacyDefaults bool
	cmd := &cobra.Command{
		Use:   "listing --start N --end M --out listing.json",
		Short: "Read judgment summaries straight from search listing pages and write them in one pass.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkPageRange(start, end); err != nil {
				return err
			}
			ctx := cmd.Context()
			records, report, err := a.crawler().ScrapeListings(ctx, a.cfg.SearchURL, start, end, legacyDefaults)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			sink, closeSink, openErr := store.Open(context.WithoutCancel(ctx), a.cfg, out)
			if openErr != nil {
				return openErr
			}
			defer closeSink()
			if err := store.WriteAll(context.WithoutCancel(ctx), sink, records); err != nil {
				return err
			}
			return finish(out, report, err)
		},
	}
	pageRangeFlags(cmd, &start, &end)
	cmd.Flags().StringVar(&out, "out", "", "Records file written once all pages are read.")
	cmd.Flags().BoolVar(&legacyDefaults, "legacy-defaults", false, `Fill missing court, citation and date with "N/A".`)
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newAugmentCommand(a *app) *cobra.Command {
	var in, out string
	cmd := &cobra.Command{
		Use:   "augment [--in records.json] --out augmented.json",
		Short: "Add full judgment text and header text to every record with a link, writing a new file.",
		Long: `Add full judgment text and header text to every record with a link.

With the json backend the records are read from --in. With the redis and
postgres backends they are read back from the store the links and headers
commands wrote to. The augmented set is always written to the --out file and
the input is left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			src, closeSrc, err := a.openAugmentInput(ctx, in, out)
			if err != nil {
				return err
			}
			defer closeSrc()
			return a.augment(ctx, src, out)
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "Records file with a link per record. Required with the json backend.")
	cmd.Flags().StringVar(&out, "out", "", "File the augmented records are written to.")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func (a *app) openAugmentInput(ctx context.Context, in, out string) (store.Loader, func(), error) {
	if a.cfg.StoreBackend != "" && a.cfg.StoreBackend != "json" {
		if in != "" {
			slog.Warn("Ignoring --in, records are read from the store", "backend", a.cfg.StoreBackend, "in", in)
		}
		return store.Open(ctx, a.cfg, "")
	}
	if in == "" {
		return nil, nil, errors.New("--in is required with the json backend")
	}
	if samePath(in, out) {
		return nil, nil, errors.New("--out must differ from --in so the input is left untouched")
	}
	return store.NewJSONFile(in), func() {}, nil
}

// augment loads every record from src, attaches the full text and writes the
// whole set to out. src itself is never written.
func (a *app) augment(ctx context.Context, src store.Loader, out string) error {
	records, err := src.Load(ctx)
	if err != nil {
		return err
	}
	report, err := a.crawler().Augment(ctx, records)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if err := store.WriteRecords(out, records); err != nil {
		return err
	}
	return finish(out, report, err)
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}
