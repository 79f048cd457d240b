package crawler

import (
	"caselaw/packages/domain"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPageURL(t *testing.T) {
	u, err := PageURL("https://x.test/judgments/search?query=", 3)
	require.NoError(t, err)
	require.Equal(t, "https://x.test/judgments/search?page=3&query=", u)

	u, err = PageURL("https://x.test/judgments/search?page=1", 7)
	require.NoError(t, err)
	require.Equal(t, "https://x.test/judgments/search?page=7", u)

	_, err = PageURL("://bad", 1)
	require.Error(t, err)
}

func TestFilterAndPrefix(t *testing.T) {
	hrefs := []string{"/ewhc/1", "/judgments/search?query=a", "ewca/2", "/ewhc/1", "/x?query=b"}
	got := FilterAndPrefix(hrefs, "https://x.test/")
	require.Equal(t, []string{"https://x.test/ewhc/1", "https://x.test/ewca/2", "https://x.test/ewhc/1"}, got)
	require.Empty(t, FilterAndPrefix(nil, "https://x.test"))
}

func TestListingHrefsOnlyInsideContainer(t *testing.T) {
	doc := parse(t, hrefPage("/ewhc/1", "/ewca/2"))
	require.Equal(t, []string{"/ewhc/1", "/ewca/2"}, ListingHrefs(doc))
}

func TestParseListingDate(t *testing.T) {
	require.Equal(t, "2024-01-05 00:00:00", ParseListingDate("5 Jan 2024, midnight"))
	require.Equal(t, "2023-11-30 00:00:00", ParseListingDate("30 Nov 2023, midnight"))
	require.Equal(t, "2024-01-05 00:00:00", ParseListingDate("2024-01-05"))
	require.Equal(t, domain.InvalidDate, ParseListingDate("last Tuesday"))
}

func TestExtractListing(t *testing.T) {
	doc := parse(t, listingPage(
		listingEntry{href: "/ewhc/ch/2024/1", title: "A v B", court: "High Court (Chancery Division)", citation: "[2024] EWHC 1 (Ch)", datetime: "5 Jan 2024, midnight"},
		listingEntry{href: "/ewca/civ/2024/2", title: "C v D", datetime: "soon"},
		listingEntry{href: "", title: "No link"},
	))

	records := ExtractListing(doc, "https://x.test/", false)
	require.Len(t, records, 2)
	require.Equal(t, domain.Record{
		domain.FieldLink:            "https://x.test/ewhc/ch/2024/1",
		domain.FieldTitle:           "A v B",
		domain.FieldCourt:           "High Court (Chancery Division)",
		domain.FieldNeutralCitation: "[2024] EWHC 1 (Ch)",
		domain.FieldDate:            "2024-01-05 00:00:00",
	}, records[0])
	require.Equal(t, domain.Record{
		domain.FieldLink:  "https://x.test/ewca/civ/2024/2",
		domain.FieldTitle: "C v D",
		domain.FieldDate:  domain.InvalidDate,
	}, records[1])

	legacy := ExtractListing(doc, "https://x.test/", true)
	require.Equal(t, domain.NotAvailable, legacy[1][domain.FieldCourt])
	require.Equal(t, domain.NotAvailable, legacy[1][domain.FieldNeutralCitation])
	require.Equal(t, domain.InvalidDate, legacy[1][domain.FieldDate])
}
