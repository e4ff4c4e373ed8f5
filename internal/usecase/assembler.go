package usecase

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/samber/lo"

	"NewsDigest/internal/domain"
)

// SectionHeadingPrefix precedes the channel name in every document heading.
const SectionHeadingPrefix = "Noticias "

// untitledSummary links a summary whose model output carried no title line.
const untitledSummary = "Summary"

// Assemble groups articles into one section per channel, channels sorted alphabetically.
// Articles keep their order inside a channel.
func Assemble(title string, byChannel map[string][]domain.Article) domain.Document {
	channels := lo.Keys(byChannel)
	sort.Strings(channels)

	doc := domain.Document{Title: title}
	for _, channel := range channels {
		articles := byChannel[channel]
		if len(articles) == 0 {
			continue
		}
		doc.Sections = append(doc.Sections, domain.DocumentSection{
			Channel:  channel,
			Heading:  SectionHeadingPrefix + channel,
			Articles: articles,
		})
	}
	return doc
}

// ErrorMarker is the visible text that replaces a failed article.
func ErrorMarker(a domain.Article) string {
	return fmt.Sprintf("Error processing article: %s - %v", a.URL, a.Err)
}

// RenderHTML renders the email fragment: channel headings and the titled, linked entries.
// Summary paragraphs and error markers stay in the full document only.
func RenderHTML(doc domain.Document) string {
	var b strings.Builder
	for i, section := range doc.Sections {
		if i > 0 {
			b.WriteString("<hr>\n")
		}
		fmt.Fprintf(&b, "<h2>%s</h2>\n", html.EscapeString(section.Heading))
		for _, a := range section.Articles {
			if a.Err != nil {
				continue
			}
			fmt.Fprintf(&b, "<p><strong>%s</strong></p>\n", titleLink(a))
		}
	}
	return b.String()
}

// RenderFullHTML renders the complete standalone document kept by the document store.
func RenderFullHTML(doc domain.Document) string {
	var b strings.Builder
	title := html.EscapeString(doc.Title)
	fmt.Fprintf(&b, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n", title)
	fmt.Fprintf(&b, "<h1>%s</h1>\n", title)

	for i, section := range doc.Sections {
		if i > 0 {
			b.WriteString("<hr>\n")
		}
		fmt.Fprintf(&b, "<h2>%s</h2>\n", html.EscapeString(section.Heading))
		for _, a := range section.Articles {
			if a.Err != nil {
				fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(ErrorMarker(a)))
				continue
			}
			fmt.Fprintf(&b, "<p><strong>%s</strong></p>\n", titleLink(a))
			if body := strings.TrimSpace(a.Summary.Body); body != "" {
				fmt.Fprintf(&b, "<p>%s</p>\n", paragraph(body))
			}
		}
	}

	b.WriteString("</body>\n</html>\n")
	return b.String()
}

func titleLink(a domain.Article) string {
	text := strings.TrimSpace(a.Summary.Title)
	if text == "" {
		text = untitledSummary
	}
	return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(a.URL), html.EscapeString(text))
}

func paragraph(text string) string {
	return strings.ReplaceAll(html.EscapeString(text), "\n", "<br>")
}
