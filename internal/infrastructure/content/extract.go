package content

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// TruncationMarker is appended when text exceeds the configured maximum.
const TruncationMarker = "... [CONTENIDO TRUNCADO]"

var blankLines = regexp.MustCompile(`(\r\n|\n|\r){2,}`)

// Extractor turns an article page into plain text suitable for a grounded prompt.
type Extractor interface {
	Extract(html string, pageURL *url.URL) (string, error)
}

// StripExtractor removes script and style blocks, then every remaining tag.
type StripExtractor struct {
	MaxLength int
}

// Extract keeps all visible page text, entity-decoded, with blank-line runs collapsed.
func (e StripExtractor) Extract(html string, _ *url.URL) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	return Normalize(doc.Text(), e.MaxLength), nil
}

// ReadabilityExtractor keeps only the main article body as detected by go-readability.
type ReadabilityExtractor struct {
	MaxLength int
}

func (e ReadabilityExtractor) Extract(html string, pageURL *url.URL) (string, error) {
	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	return Normalize(article.TextContent, e.MaxLength), nil
}

// New returns the extractor registered under name; unknown names fall back to strip.
func New(name string, maxLength int) Extractor {
	if strings.EqualFold(strings.TrimSpace(name), "readability") {
		return ReadabilityExtractor{MaxLength: maxLength}
	}
	return StripExtractor{MaxLength: maxLength}
}

// Normalize collapses blank-line runs, trims and truncates text to maxLength characters.
func Normalize(text string, maxLength int) string {
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = strings.TrimSpace(blankLines.ReplaceAllString(text, "\n"))
	return Truncate(text, maxLength)
}

// Truncate cuts text to maxLength characters and appends TruncationMarker. maxLength <= 0 disables it.
func Truncate(text string, maxLength int) string {
	if maxLength <= 0 || utf8.RuneCountInString(text) <= maxLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxLength]) + TruncationMarker
}
