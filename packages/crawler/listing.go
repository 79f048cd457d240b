package crawler

import (
	"caselaw/packages/domain"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	listingContainer = "div.results__result-list-container"
	listingDateValue = "2006-01-02 15:04:05"
)

var listingDateLayouts = []string{"2 Jan 2006, midnight", "2006-01-02"}

// PageURL sets the page query parameter on a search results URL, keeping any
// parameters it already has.
func PageURL(searchURL string, page int) (string, error) {
	u, err := url.Parse(searchURL)
	if err != nil {
		return "", fmt.Errorf("invalid search url %q: %w", searchURL, err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ListingHrefs returns the href of every anchor inside the listing container,
// in document order.
func ListingHrefs(doc *goquery.Document) []string {
	var hrefs []string
	doc.Find(listingContainer).Find("a").Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok && href != "" {
			hrefs = append(hrefs, href)
		}
	})
	return hrefs
}

// FilterAndPrefix drops hrefs containing "query" and prefixes the rest with
// origin. Order is kept and duplicates are not removed.
func FilterAndPrefix(hrefs []string, origin string) []string {
	out := make([]string, 0, len(hrefs))
	for _, href := range hrefs {
		if strings.Contains(href, "query") {
			continue
		}
		out = append(out, JoinOrigin(origin, href))
	}
	return out
}

func JoinOrigin(origin, href string) string {
	return strings.TrimRight(origin, "/") + "/" + strings.TrimLeft(href, "/")
}

// ParseListingDate renders the datetime attribute of a listing entry, or
// domain.InvalidDate when no known layout matches.
func ParseListingDate(value string) string {
	value = strings.TrimSpace(value)
	for _, layout := range listingDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(listingDateValue)
		}
	}
	return domain.InvalidDate
}

// ExtractListing reads the per-judgment summaries of a search results page.
// With legacyDefaults, missing court, citation and date read "N/A".
func ExtractListing(doc *goquery.Document, origin string, legacyDefaults bool) []domain.Record {
	var records []domain.Record
	doc.Find(listingContainer).Find("ul.judgment-listing__list li").Each(func(_ int, li *goquery.Selection) {
		anchor := li.Find("a").First()
		href, ok := anchor.Attr("href")
		if !ok || href == "" {
			return
		}
		title := strings.TrimSpace(anchor.Text())
		if title == "" {
			return
		}
		rec := domain.Record{
			domain.FieldLink:  JoinOrigin(origin, href),
			domain.FieldTitle: title,
		}

		if v, ok := firstText(li, "span.judgment-listing__court"); ok {
			rec[domain.FieldCourt] = v
		} else if legacyDefaults {
			rec[domain.FieldCourt] = domain.NotAvailable
		}

		if v, ok := firstText(li, "span.judgment-listing__neutralcitation"); ok {
			rec[domain.FieldNeutralCitation] = v
		} else if legacyDefaults {
			rec[domain.FieldNeutralCitation] = domain.NotAvailable
		}

		if dt, ok := li.Find("time.judgment-listing__date").First().Attr("datetime"); ok && dt != "" {
			rec[domain.FieldDate] = ParseListingDate(dt)
		} else if legacyDefaults {
			rec[domain.FieldDate] = domain.NotAvailable
		}

		records = append(records, rec)
	})
	return records
}
