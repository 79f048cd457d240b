package crawler

import (
	"caselaw/packages/fetcher"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// mockSite serves fixed HTML by path (plus "?page=N" for listing pages) and
// answers 500 for anything it does not know.
type mockSite struct {
	*httptest.Server
	mu    sync.Mutex
	pages map[string]string
	hits  map[string]int
}

func newMockSite(t *testing.T, pages map[string]string) *mockSite {
	t.Helper()
	s := &mockSite{pages: pages, hits: map[string]int{}}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if p := r.URL.Query().Get("page"); p != "" {
			key += "?page=" + p
		}
		s.mu.Lock()
		s.hits[key]++
		body, ok := s.pages[key]
		s.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *mockSite) hitCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[key]
}

func testFetcher() *fetcher.Fetcher {
	return fetcher.New(fetcher.Options{
		Policy:  fetcher.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond},
		Timeout: 5 * time.Second,
	})
}

type listingEntry struct {
	href, title, court, citation, datetime string
}

func listingPage(entries ...listingEntry) string {
	var b strings.Builder
	b.WriteString(`<html><body><nav><a href="/judgments/search?query=&page=9">Last</a></nav>`)
	b.WriteString(`<div class="results__result-list-container"><ul class="judgment-listing__list">`)
	for _, e := range entries {
		b.WriteString(`<li>`)
		fmt.Fprintf(&b, `<a href="%s">%s</a>`, e.href, e.title)
		if e.court != "" {
			fmt.Fprintf(&b, `<span class="judgment-listing__court">%s</span>`, e.court)
		}
		if e.citation != "" {
			fmt.Fprintf(&b, `<span class="judgment-listing__neutralcitation">%s</span>`, e.citation)
		}
		if e.datetime != "" {
			fmt.Fprintf(&b, `<time class="judgment-listing__date" datetime="%s">x</time>`, e.datetime)
		}
		b.WriteString(`</li>`)
	}
	b.WriteString(`</ul></div></body></html>`)
	return b.String()
}

func hrefPage(hrefs ...string) string {
	entries := make([]listingEntry, len(hrefs))
	for i, h := range hrefs {
		entries[i] = listingEntry{href: h, title: "Case " + h}
	}
	return listingPage(entries...)
}

type detail struct {
	title, citation, caseNo, court, date string
	locations                            []string
	body                                 string
	noArticle                            bool
	noToolbar                            bool
}

func detailPage(d detail) string {
	var b strings.Builder
	b.WriteString(`<html><body>`)
	if !d.noToolbar {
		b.WriteString(`<div class="judgment-toolbar__container">`)
		if d.title != "" {
			fmt.Fprintf(&b, `<h1 class="judgment-toolbar__title">%s</h1>`, d.title)
		}
		if d.citation != "" {
			fmt.Fprintf(&b, `<p class="judgment-toolbar__reference">%s</p>`, d.citation)
		}
		b.WriteString(`<a class="judgment-toolbar-buttons__option--pdf" href="data.pdf">Download PDF</a></div>`)
	}
	if !d.noArticle {
		b.WriteString(`<article class="judgment"><header class="judgment-header">`)
		if d.title != "" {
			fmt.Fprintf(&b, `<p class="judgment-header__title">%s</p>`, d.title)
		}
		if d.citation != "" {
			fmt.Fprintf(&b, `<div class="judgment-header__neutral-citation">Neutral Citation Number: %s</div>`, d.citation)
		}
		if d.caseNo != "" {
			fmt.Fprintf(&b, `<div class="judgment-header__case-number">Case No: %s</div>`, d.caseNo)
		}
		if d.court != "" {
			fmt.Fprintf(&b, `<div class="judgment-header__court">%s</div>`, d.court)
		}
		for _, loc := range d.locations {
			fmt.Fprintf(&b, `<p class="judgment-header__pr-right">%s</p>`, loc)
		}
		if d.date != "" {
			fmt.Fprintf(&b, `<div class="judgment-header__date">Date: %s</div>`, d.date)
		}
		b.WriteString(`</header><header class="judgment-header"><p>Before: THE HONOURABLE MR JUSTICE SMITH</p></header>`)
		if d.body != "" {
			fmt.Fprintf(&b, `<section class="judgment-body">%s</section>`, d.body)
		}
		b.WriteString(`</article>`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}
