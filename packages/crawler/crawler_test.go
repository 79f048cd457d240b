package crawler

import (
	"caselaw/packages/domain"
	"caselaw/packages/store"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHarvestURLsFiltersAndPrefixes(t *testing.T) {
	site := newMockSite(t, map[string]string{
		"/judgments/search?page=1": hrefPage("/ewhc/ch/2024/1", "/judgments/search?query=a", "/ewca/civ/2024/2", "/ewca/civ/2024/3"),
		"/judgments/search?page=2": hrefPage("/search?query=b", "/uksc/2024/4", "/search?query=c", "/ewhc/kb/2024/5"),
	})
	origin := site.URL + "/"
	c := New(testFetcher(), Options{Origin: origin})

	urls, report, err := c.HarvestURLs(context.Background(), site.URL+"/judgments/search", 1, 2)
	require.NoError(t, err)
	require.Equal(t, []string{
		origin + "ewhc/ch/2024/1",
		origin + "ewca/civ/2024/2",
		origin + "ewca/civ/2024/3",
		origin + "uksc/2024/4",
		origin + "ewhc/kb/2024/5",
	}, urls)
	for _, u := range urls {
		require.True(t, strings.HasPrefix(u, origin))
	}
	require.Equal(t, 2, report.Attempted)
	require.Empty(t, report.Skipped)
}

func TestHarvestURLsSkipsFailedPages(t *testing.T) {
	site := newMockSite(t, map[string]string{
		"/judgments/search?page=1": hrefPage("/a/1"),
		"/judgments/search?page=3": hrefPage("/c/3", "/c/3"),
	})
	c := New(testFetcher(), Options{Origin: "https://archive.test"})

	urls, report, err := c.HarvestURLs(context.Background(), site.URL+"/judgments/search", 1, 3)
	require.NoError(t, err)
	require.Equal(t, []string{"https://archive.test/a/1", "https://archive.test/c/3", "https://archive.test/c/3"}, urls)
	require.Len(t, report.Skipped, 1)
	require.Contains(t, report.Skipped[0].URL, "page=2")
	require.Equal(t, 2, site.hitCount("/judgments/search?page=2"))
}

func TestScrapeHeadersPersistsTitledRecords(t *testing.T) {
	site := newMockSite(t, map[string]string{
		"/ewca/1": detailPage(detail{title: "A v B", court: "COURT OF APPEAL"}),
		"/ewca/2": `<html><body><article class="judgment"><header class="judgment-header"><div class="judgment-header__court">X</div></header></article></body></html>`,
		"/ewca/4": detailPage(detail{title: "C v D", caseNo: "CA-1", court: "COURT OF APPEAL"}),
	})
	urls := []string{site.URL + "/ewca/1", site.URL + "/ewca/2", site.URL + "/ewca/3", site.URL + "/ewca/4"}
	out := filepath.Join(t.TempDir(), "headers.json")
	c := New(testFetcher(), Options{Origin: site.URL})

	report, err := c.ScrapeHeaders(context.Background(), urls, store.NewJSONFile(out))
	require.NoError(t, err)

	records, err := store.ReadRecords(out)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.NotContains(t, records["A v B"], domain.FieldCaseNumber)
	require.Equal(t, "COURT OF APPEAL", records["A v B"][domain.FieldCourt])
	require.Equal(t, urls[0], records["A v B"][domain.FieldLink])
	require.Equal(t, "CA-1", records["C v D"][domain.FieldCaseNumber])

	require.Equal(t, 4, report.Attempted)
	require.Equal(t, []string{"A v B", "C v D"}, report.Written)
	require.Len(t, report.Skipped, 2)
	require.Equal(t, urls[1], report.Skipped[0].URL)
	require.Equal(t, ErrNoTitle.Error(), report.Skipped[0].Reason)
	require.Equal(t, urls[2], report.Skipped[1].URL)
}

func TestScrapeDownloadLinks(t *testing.T) {
	site := newMockSite(t, map[string]string{
		"/uksc/2024/1": detailPage(detail{title: "A v B", citation: "[2024] UKSC 1"}),
		"/uksc/2024/2": detailPage(detail{title: "E v F", noToolbar: true}),
	})
	urls := []string{site.URL + "/uksc/2024/1", site.URL + "/uksc/2024/2"}
	out := filepath.Join(t.TempDir(), "links.json")
	c := New(testFetcher(), Options{Origin: site.URL})

	report, err := c.ScrapeDownloadLinks(context.Background(), urls, store.NewJSONFile(out))
	require.NoError(t, err)

	records, err := store.ReadRecords(out)
	require.NoError(t, err)
	require.Equal(t, map[string]domain.Record{
		"A v B": {
			domain.FieldTitle:             "A v B",
			domain.FieldJudgmentReference: "[2024] UKSC 1",
			domain.FieldDownloadLink:      site.URL + "/uksc/2024/data.pdf",
			domain.FieldLink:              urls[0],
		},
	}, records)
	require.Len(t, report.Skipped, 1)
	require.Equal(t, ErrNoToolbar.Error(), report.Skipped[0].Reason)
}

func TestScrapeIsDeterministicAcrossWorkerCounts(t *testing.T) {
	pages := map[string]string{}
	var urls []string
	for i, title := range []string{"A v B", "C v D", "A v B", "E v F", "G v H", "C v D"} {
		path := "/case/" + string(rune('a'+i))
		pages[path] = detailPage(detail{title: title, caseNo: path})
		urls = append(urls, path)
	}
	site := newMockSite(t, pages)
	for i := range urls {
		urls[i] = site.URL + urls[i]
	}

	var outputs [][]byte
	for _, workers := range []int{1, 4} {
		out := filepath.Join(t.TempDir(), "headers.json")
		c := New(testFetcher(), Options{Origin: site.URL, Workers: workers})
		_, err := c.ScrapeHeaders(context.Background(), urls, store.NewJSONFile(out))
		require.NoError(t, err)
		data, err := os.ReadFile(out)
		require.NoError(t, err)
		outputs = append(outputs, data)
	}
	require.Equal(t, string(outputs[0]), string(outputs[1]))
	require.Contains(t, string(outputs[0]), "/case/c")
}

type failingSink struct{ calls int }

func (f *failingSink) Upsert(context.Context, string, domain.Record) error {
	f.calls++
	return errors.New("disk full")
}

func TestScrapeStopsOnStoreError(t *testing.T) {
	site := newMockSite(t, map[string]string{
		"/a": detailPage(detail{title: "A v B"}),
		"/b": detailPage(detail{title: "C v D"}),
	})
	sink := &failingSink{}
	c := New(testFetcher(), Options{Origin: site.URL})

	_, err := c.ScrapeHeaders(context.Background(), []string{site.URL + "/a", site.URL + "/b"}, sink)
	require.ErrorContains(t, err, "disk full")
	require.Equal(t, 1, sink.calls)
}

func TestScrapeListings(t *testing.T) {
	site := newMockSite(t, map[string]string{
		"/judgments/search?page=1": listingPage(
			listingEntry{href: "/ewhc/1", title: "A v B", court: "High Court", datetime: "5 Jan 2024, midnight"},
			listingEntry{href: "/ewhc/2", title: "C v D", court: "High Court", datetime: "bad"},
		),
		"/judgments/search?page=2": listingPage(
			listingEntry{href: "/ewhc/3", title: "A v B", court: "Court of Appeal", datetime: "6 Jan 2024, midnight"},
		),
	})
	c := New(testFetcher(), Options{Origin: "https://archive.test/"})

	records, report, err := c.ScrapeListings(context.Background(), site.URL+"/judgments/search", 1, 2, false)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "https://archive.test/ewhc/3", records["A v B"][domain.FieldLink])
	require.Equal(t, "Court of Appeal", records["A v B"][domain.FieldCourt])
	require.Equal(t, domain.InvalidDate, records["C v D"][domain.FieldDate])
	require.Equal(t, 2, report.Attempted)
}

func TestAugment(t *testing.T) {
	site := newMockSite(t, map[string]string{
		"/ok":      detailPage(detail{title: "A v B", body: "<p>1. The appeal is allowed.</p>"}),
		"/no-body": detailPage(detail{title: "E v F"}),
	})
	records := map[string]domain.Record{
		"A v B": {domain.FieldTitle: "A v B", domain.FieldLink: site.URL + "/ok"},
		"C v D": {domain.FieldTitle: "C v D", domain.FieldLink: site.URL + "/gone"},
		"E v F": {domain.FieldTitle: "E v F", domain.FieldLink: site.URL + "/no-body"},
		"G v H": {domain.FieldTitle: "G v H"},
	}
	c := New(testFetcher(), Options{Origin: site.URL})

	report, err := c.Augment(context.Background(), records)
	require.NoError(t, err)

	require.Equal(t, "1. The appeal is allowed.", records["A v B"][domain.FieldFullText])
	require.Equal(t, "A v B Before: THE HONOURABLE MR JUSTICE SMITH", records["A v B"][domain.FieldAllHeaderText])

	require.Equal(t, domain.FullTextFetchFailed, records["C v D"][domain.FieldFullText])
	require.Equal(t, domain.HeaderTextFetchFailed, records["C v D"][domain.FieldAllHeaderText])
	require.Equal(t, 2, site.hitCount("/gone"))

	require.Equal(t, domain.FullTextNotFound, records["E v F"][domain.FieldFullText])
	require.NotEqual(t, domain.HeaderTextNotFound, records["E v F"][domain.FieldAllHeaderText])

	require.Equal(t, domain.Record{domain.FieldTitle: "G v H"}, records["G v H"])

	require.Equal(t, 3, report.Attempted)
	require.Equal(t, []string{"A v B", "E v F"}, report.Written)
	require.Equal(t, []domain.Skip{
		{Key: "G v H", Reason: "record has no link"},
		{URL: site.URL + "/gone", Reason: report.Skipped[1].Reason},
	}, report.Skipped)
	require.Contains(t, report.Skipped[1].Reason, "fetch attempts exhausted")
}
