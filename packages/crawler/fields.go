package crawler

import (
	"caselaw/packages/domain"
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	ErrNoArticle = errors.New("judgment article not found")
	ErrNoTitle   = errors.New("no title found")
	ErrNoToolbar = errors.New("judgment toolbar not found")
)

// FieldExtractor pulls one field out of a page section. Each runs on its own,
// so a missing element only drops that field.
type FieldExtractor struct {
	Field   string
	Extract func(s *goquery.Selection) (string, bool)
}

func text(selector string) func(*goquery.Selection) (string, bool) {
	return func(s *goquery.Selection) (string, bool) {
		return firstText(s, selector)
	}
}

func textWithoutPrefix(selector, prefix string) func(*goquery.Selection) (string, bool) {
	return func(s *goquery.Selection) (string, bool) {
		el := s.Find(selector).First()
		if el.Length() == 0 {
			return "", false
		}
		return strings.TrimSpace(strings.ReplaceAll(el.Text(), prefix, "")), true
	}
}

func joinedText(selector string) func(*goquery.Selection) (string, bool) {
	return func(s *goquery.Selection) (string, bool) {
		els := s.Find(selector)
		if els.Length() == 0 {
			return "", false
		}
		lines := make([]string, 0, els.Length())
		els.Each(func(_ int, el *goquery.Selection) {
			lines = append(lines, strings.TrimSpace(el.Text()))
		})
		return strings.Join(lines, " "), true
	}
}

func attr(selector, name string) func(*goquery.Selection) (string, bool) {
	return func(s *goquery.Selection) (string, bool) {
		return s.Find(selector).First().Attr(name)
	}
}

// HeaderFields apply to the first header.judgment-header of a judgment.
var HeaderFields = []FieldExtractor{
	{Field: domain.FieldTitle, Extract: text("p")},
	{Field: domain.FieldNeutralCitation, Extract: textWithoutPrefix("div.judgment-header__neutral-citation", "Neutral Citation Number: ")},
	{Field: domain.FieldCaseNumber, Extract: textWithoutPrefix("div.judgment-header__case-number", "Case No: ")},
	{Field: domain.FieldCourt, Extract: text("div.judgment-header__court")},
	{Field: domain.FieldLocation, Extract: joinedText("p.judgment-header__pr-right")},
	{Field: domain.FieldDate, Extract: textWithoutPrefix("div.judgment-header__date", "Date: ")},
}

// ToolbarFields apply to each div.judgment-toolbar__container.
var ToolbarFields = []FieldExtractor{
	{Field: domain.FieldTitle, Extract: text("h1.judgment-toolbar__title")},
	{Field: domain.FieldJudgmentReference, Extract: text("p.judgment-toolbar__reference")},
	{Field: domain.FieldDownloadLink, Extract: attr("a.judgment-toolbar-buttons__option--pdf", "href")},
}

func ApplyFields(s *goquery.Selection, fields []FieldExtractor, rec domain.Record) {
	for _, f := range fields {
		if v, ok := f.Extract(s); ok {
			rec[f.Field] = v
		}
	}
}

// ExtractHeader reads the header block of a judgment detail page. The record
// is returned with ErrNoTitle when the header carries no title.
func ExtractHeader(doc *goquery.Document, pageURL string) (domain.Record, error) {
	article := doc.Find("article.judgment").First()
	if article.Length() == 0 {
		return nil, ErrNoArticle
	}

	headers := article.Find("header.judgment-header")
	rec := domain.Record{domain.FieldAllHeaderText: headerText(headers)}
	if headers.Length() > 0 {
		ApplyFields(headers.First(), HeaderFields, rec)
	}
	if rec.Title() == "" {
		return rec, ErrNoTitle
	}
	rec[domain.FieldLink] = pageURL
	return rec, nil
}

// ExtractToolbar returns one record per toolbar container that yielded any
// field. The download link is resolved against pageURL.
func ExtractToolbar(doc *goquery.Document, pageURL string) ([]domain.Record, error) {
	containers := doc.Find("div.judgment-toolbar__container")
	if containers.Length() == 0 {
		return nil, ErrNoToolbar
	}
	var records []domain.Record
	containers.Each(func(_ int, s *goquery.Selection) {
		rec := domain.Record{}
		ApplyFields(s, ToolbarFields, rec)
		if len(rec) == 0 {
			return
		}
		if href, ok := rec[domain.FieldDownloadLink]; ok {
			rec[domain.FieldDownloadLink] = resolve(pageURL, href)
		}
		rec[domain.FieldLink] = pageURL
		records = append(records, rec)
	})
	return records, nil
}

func headerText(headers *goquery.Selection) string {
	var parts []string
	headers.Each(func(_ int, h *goquery.Selection) {
		if t := spacedText(h); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, " ")
}

func resolve(pageURL, href string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := base.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return ref.String()
}
