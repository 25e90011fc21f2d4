package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Default selectors for the Banco de España document pages.
const (
	DefaultDateSelector  = ".block-topics__date"
	DefaultTitleSelector = "h1"
)

// FindPDFLinks returns the site-relative PDF links of doc resolved against
// baseURL, in document order. Links that already carry a scheme, or are
// scheme-relative, point off the site and are skipped.
func FindPDFLinks(doc *goquery.Document, baseURL string) []string {
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !strings.HasSuffix(href, ".pdf") || strings.HasPrefix(href, "http") || strings.HasPrefix(href, "//") {
			return
		}
		links = append(links, baseURL+href)
	})
	return links
}

// ExtractDate returns the trimmed text of the first element matching
// selector, or "" when there is none.
func ExtractDate(doc *goquery.Document, selector string) string {
	if selector == "" {
		selector = DefaultDateSelector
	}
	return firstText(doc, selector)
}

// ExtractTitle returns the trimmed text of the first heading matching
// selector, or "" when there is none.
func ExtractTitle(doc *goquery.Document, selector string) string {
	if selector == "" {
		selector = DefaultTitleSelector
	}
	return firstText(doc, selector)
}

func firstText(doc *goquery.Document, selector string) string {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(sel.Text())
}
