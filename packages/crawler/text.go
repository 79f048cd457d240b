package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// spacedText returns the text nodes under sel, each trimmed, joined by single
// spaces. Script and style contents are left out.
func spacedText(sel *goquery.Selection) string {
	var parts []string
	for _, n := range sel.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(parts, " ")
}

func collectText(node *html.Node, parts *[]string) {
	if node == nil {
		return
	}
	switch node.Type {
	case html.TextNode:
		if s := strings.TrimSpace(node.Data); s != "" {
			*parts = append(*parts, s)
		}
		return
	case html.ElementNode:
		switch node.Data {
		case "script", "style", "noscript":
			return
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, parts)
	}
}

func firstText(s *goquery.Selection, selector string) (string, bool) {
	el := s.Find(selector).First()
	if el.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(el.Text()), true
}
