// Package crawler harvests judgment URLs from the archive's search listings
// and extracts judgment records from detail pages.
package crawler

import (
	"caselaw/packages/domain"
	"caselaw/packages/metrics"
	"caselaw/packages/store"
	"caselaw/packages/worker"
	"context"
	"errors"
	"log/slog"

	"github.com/PuerkitoBio/goquery"
)

type PageFetcher interface {
	FetchDocument(ctx context.Context, rawURL string) (*goquery.Document, error)
}

type Options struct {
	// Origin is prefixed to relative hrefs found on listing pages.
	Origin string
	// Workers bounds concurrent fetches. 1 fetches strictly in sequence.
	Workers int
}

type Crawler struct {
	fetcher PageFetcher
	opts    Options
}

func New(fetcher PageFetcher, opts Options) *Crawler {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Crawler{fetcher: fetcher, opts: opts}
}

type pageResult struct {
	doc *goquery.Document
	err error
}

// HarvestURLs walks listing pages start..end and returns absolute detail-page
// URLs in page then document order. Pages that cannot be fetched are skipped.
func (c *Crawler) HarvestURLs(ctx context.Context, searchURL string, start, end int) ([]string, *domain.Report, error) {
	report := domain.NewReport(domain.WorkflowHarvest)
	pages, err := pageURLs(searchURL, start, end)
	if err != nil {
		return nil, report, err
	}
	report.Attempted = len(pages)

	var hrefs []string
	err = worker.Ordered(ctx, c.opts.Workers, len(pages),
		func(ctx context.Context, i int) pageResult {
			doc, err := c.fetcher.FetchDocument(ctx, pages[i])
			return pageResult{doc: doc, err: err}
		},
		func(i int, r pageResult) {
			if r.err != nil {
				c.skip(report, pages[i], r.err)
				return
			}
			found := ListingHrefs(r.doc)
			slog.Info("Harvested listing page", "page", start+i, "url", pages[i], "count", len(found))
			hrefs = append(hrefs, found...)
		},
	)

	urls := FilterAndPrefix(hrefs, c.opts.Origin)
	for _, u := range urls {
		report.AddWritten(u)
	}
	slog.Info("Harvest finished", "pages", len(pages), "urls", len(urls))
	return urls, report, err
}

type recordsResult struct {
	records []domain.Record
	err     error
}

// ScrapeDownloadLinks extracts toolbar records (title, reference, PDF link)
// for every URL and upserts each under its title as soon as it is read.
func (c *Crawler) ScrapeDownloadLinks(ctx context.Context, urls []string, sink store.Upserter) (*domain.Report, error) {
	return c.scrapeEach(ctx, domain.WorkflowLinks, urls, sink, func(doc *goquery.Document, pageURL string) ([]domain.Record, error) {
		return ExtractToolbar(doc, pageURL)
	})
}

// ScrapeHeaders extracts header records for every URL and upserts each under
// its title. URLs whose header has no title are reported but not stored.
func (c *Crawler) ScrapeHeaders(ctx context.Context, urls []string, sink store.Upserter) (*domain.Report, error) {
	return c.scrapeEach(ctx, domain.WorkflowHeaders, urls, sink, func(doc *goquery.Document, pageURL string) ([]domain.Record, error) {
		rec, err := ExtractHeader(doc, pageURL)
		if err != nil {
			return nil, err
		}
		return []domain.Record{rec}, nil
	})
}

func (c *Crawler) scrapeEach(
	ctx context.Context,
	workflow domain.Workflow,
	urls []string,
	sink store.Upserter,
	extract func(doc *goquery.Document, pageURL string) ([]domain.Record, error),
) (*domain.Report, error) {
	report := domain.NewReport(workflow)
	report.Attempted = len(urls)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var storeErr error

	err := worker.Ordered(ctx, c.opts.Workers, len(urls),
		func(ctx context.Context, i int) recordsResult {
			doc, err := c.fetcher.FetchDocument(ctx, urls[i])
			if err != nil {
				return recordsResult{err: err}
			}
			records, err := extract(doc, urls[i])
			return recordsResult{records: records, err: err}
		},
		func(i int, r recordsResult) {
			if storeErr != nil {
				return
			}
			if r.err != nil {
				c.skip(report, urls[i], r.err)
				return
			}
			for _, rec := range r.records {
				key := rec.Title()
				if key == "" {
					c.skip(report, urls[i], ErrNoTitle)
					continue
				}
				if err := sink.Upsert(ctx, key, rec); err != nil {
					storeErr = err
					cancel()
					return
				}
				report.AddWritten(key)
				metrics.RecordsWritten.WithLabelValues(string(workflow)).Inc()
				slog.Debug("Stored record", "workflow", workflow, "key", key, "url", urls[i])
			}
		},
	)
	if storeErr != nil {
		return report, storeErr
	}
	slog.Info("Scrape finished", "workflow", workflow, "attempted", report.Attempted, "written", len(report.Written), "skipped", len(report.Skipped))
	return report, err
}

// ScrapeListings reads the judgment summaries on listing pages start..end and
// returns them keyed by title. A later entry with the same title replaces an
// earlier one.
func (c *Crawler) ScrapeListings(ctx context.Context, searchURL string, start, end int, legacyDefaults bool) (map[string]domain.Record, *domain.Report, error) {
	report := domain.NewReport(domain.WorkflowListing)
	pages, err := pageURLs(searchURL, start, end)
	if err != nil {
		return nil, report, err
	}
	report.Attempted = len(pages)

	records := map[string]domain.Record{}
	err = worker.Ordered(ctx, c.opts.Workers, len(pages),
		func(ctx context.Context, i int) pageResult {
			doc, err := c.fetcher.FetchDocument(ctx, pages[i])
			return pageResult{doc: doc, err: err}
		},
		func(i int, r pageResult) {
			if r.err != nil {
				c.skip(report, pages[i], r.err)
				return
			}
			for _, rec := range ExtractListing(r.doc, c.opts.Origin, legacyDefaults) {
				records[rec.Title()] = rec
				report.AddWritten(rec.Title())
			}
		},
	)
	slog.Info("Listing scrape finished", "pages", len(pages), "records", len(records))
	return records, report, err
}

func (c *Crawler) skip(report *domain.Report, rawURL string, err error) {
	switch {
	case errors.Is(err, ErrNoTitle):
		slog.Warn("No title found for URL", "url", rawURL)
	case errors.Is(err, context.Canceled):
		slog.Info("Skipping URL after cancellation", "url", rawURL)
	default:
		slog.Warn("Skipping URL", "url", rawURL, "error", err)
	}
	report.AddSkip(rawURL, err.Error())
	metrics.URLsSkipped.WithLabelValues(string(report.Workflow)).Inc()
}

func pageURLs(searchURL string, start, end int) ([]string, error) {
	var pages []string
	for page := start; page <= end; page++ {
		u, err := PageURL(searchURL, page)
		if err != nil {
			return nil, err
		}
		pages = append(pages, u)
	}
	return pages, nil
}
