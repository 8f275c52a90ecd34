package links

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"FilingsMonitor/internal/ports"
)

const documentExtension = ".pdf"

// ParseError marks page content that could not be parsed as HTML.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Extractor turns an investor-relations page into the list of document URLs
// it links to.
type Extractor struct {
	fetcher ports.PageFetcher
}

// NewExtractor wires the page fetcher used for non-direct references.
func NewExtractor(fetcher ports.PageFetcher) *Extractor {
	return &Extractor{fetcher: fetcher}
}

// Extract resolves the ordered, deduplicated list of document links reachable
// from sourceURL. A reference that itself ends in the document extension is
// the single result and is never fetched.
func (e *Extractor) Extract(ctx context.Context, sourceURL string) ([]string, error) {
	if IsDirectDocument(sourceURL) {
		return []string{sourceURL}, nil
	}

	html, err := e.fetcher.FetchHTML(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	return FromHTML(sourceURL, html)
}

// IsDirectDocument reports whether the reference points straight at a
// document, modelling a user pasting a direct PDF URL.
func IsDirectDocument(sourceURL string) bool {
	parsed, err := url.Parse(sourceURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(parsed.Path), documentExtension)
}

// FromHTML collects every hyperlink in the fetched page, resolves it against
// the page URL, and keeps document links. First occurrence wins; order is
// preserved.
func FromHTML(pageURL, html string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, &ParseError{URL: pageURL, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &ParseError{URL: pageURL, Err: err}
	}

	results := make([]string, 0)
	seen := map[string]struct{}{}

	doc.Find("a[href]").Each(func(i int, anchor *goquery.Selection) {
		href, _ := anchor.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}

		resolved := base.ResolveReference(ref)
		if !strings.HasSuffix(strings.ToLower(resolved.Path), documentExtension) {
			return
		}

		abs := resolved.String()
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		results = append(results, abs)
	})

	return results, nil
}
