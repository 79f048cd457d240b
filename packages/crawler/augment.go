package crawler

import (
	"caselaw/packages/domain"
	"caselaw/packages/metrics"
	"caselaw/packages/worker"
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/abadojack/whatlanggo"
)

// languageSample caps how many words of a judgment go into language detection.
const languageSample = 200

type FullText struct {
	Body     string
	Headers  string
	Language string
}

// ExtractFullText reads the judgment body and all header blocks of a detail
// page, substituting the "not found" sentinels for missing sections.
func ExtractFullText(doc *goquery.Document) FullText {
	out := FullText{Body: domain.FullTextNotFound, Headers: domain.HeaderTextNotFound}

	if body := doc.Find("section.judgment-body").First(); body.Length() > 0 {
		out.Body = spacedText(body)
		out.Language = detectLanguage(out.Body)
	}
	if article := doc.Find("article.judgment").First(); article.Length() > 0 {
		out.Headers = headerText(article.Find("header.judgment-header"))
	}
	return out
}

func detectLanguage(text string) string {
	words := strings.Fields(text)
	if len(words) > languageSample {
		words = words[:languageSample]
	}
	if len(words) == 0 {
		return ""
	}
	info := whatlanggo.Detect(strings.Join(words, " "))
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6393()
}

type fullTextResult struct {
	text FullText
	err  error
}

// Augment attaches full_text and all_header_text to every record that has a
// link, in key order. A failed fetch sets the "failed to retrieve" sentinels
// on that record only. Records are modified in place.
func (c *Crawler) Augment(ctx context.Context, records map[string]domain.Record) (*domain.Report, error) {
	report := domain.NewReport(domain.WorkflowAugment)

	all := make([]string, 0, len(records))
	for key := range records {
		all = append(all, key)
	}
	sort.Strings(all)

	keys := make([]string, 0, len(all))
	for _, key := range all {
		if records[key][domain.FieldLink] == "" {
			report.AddSkippedKey(key, "record has no link")
			continue
		}
		keys = append(keys, key)
	}
	report.Attempted = len(keys)

	links := make([]string, len(keys))
	for i, key := range keys {
		links[i] = records[key][domain.FieldLink]
	}

	err := worker.Ordered(ctx, c.opts.Workers, len(keys),
		func(ctx context.Context, i int) fullTextResult {
			doc, err := c.fetcher.FetchDocument(ctx, links[i])
			if err != nil {
				return fullTextResult{err: err}
			}
			return fullTextResult{text: ExtractFullText(doc)}
		},
		func(i int, r fullTextResult) {
			key := keys[i]
			rec := records[key]
			if r.err != nil {
				if errors.Is(r.err, context.Canceled) {
					return
				}
				rec[domain.FieldFullText] = domain.FullTextFetchFailed
				rec[domain.FieldAllHeaderText] = domain.HeaderTextFetchFailed
				c.skip(report, links[i], r.err)
				return
			}
			rec[domain.FieldFullText] = r.text.Body
			rec[domain.FieldAllHeaderText] = r.text.Headers
			if r.text.Language != "" {
				rec[domain.FieldLanguage] = r.text.Language
			}
			report.AddWritten(key)
			metrics.RecordsWritten.WithLabelValues(string(domain.WorkflowAugment)).Inc()
		},
	)
	slog.Info("Augment finished", "records", len(records), "augmented", len(report.Written), "failed", len(report.Skipped))
	return report, err
}
