package usecase

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"NewsDigest/internal/domain"
)

// SummaryImageID is the content id of the inline summary image.
const SummaryImageID = "summaryImage"

var (
	timestampPattern = regexp.MustCompile(`\b(?:(\d{1,2}):)?(\d{1,2}):(\d{2})\b`)
	hashtagPattern   = regexp.MustCompile(`(^|\s)#[\p{L}\p{N}_]+`)
	blankRuns        = regexp.MustCompile(`[ \t]{2,}`)
)

// FallbackPhrases is the fixed opening and closing used when the model is unavailable.
func FallbackPhrases(platform string, now time.Time, loc *time.Location) domain.EmailPhrases {
	return domain.EmailPhrases{
		Opening: fmt.Sprintf("Hola todos, aquí están las últimas noticias de %s para hoy %s.", platform, domain.DisplayDate(now, loc)),
		Closing: "Pronto más noticias.",
	}
}

// Subject builds the email subject from the profile base and the video title.
func Subject(base, videoTitle string) string {
	return base + " - " + videoTitle
}

// RemoveHashtags strips #tags from a video description.
func RemoveHashtags(text string) string {
	out := hashtagPattern.ReplaceAllString(text, "$1")
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(blankRuns.ReplaceAllString(line, " "), " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// LinkifyTimestamps turns m:ss and h:mm:ss chapter marks into links that open the
// video at that offset. Text other than the links is HTML escaped.
func LinkifyTimestamps(text, videoLink string) string {
	escaped := html.EscapeString(text)
	if videoLink == "" {
		return escaped
	}

	sep := "?"
	if strings.Contains(videoLink, "?") {
		sep = "&"
	}

	return timestampPattern.ReplaceAllStringFunc(escaped, func(mark string) string {
		parts := timestampPattern.FindStringSubmatch(mark)
		hours, _ := strconv.Atoi(parts[1])
		minutes, _ := strconv.Atoi(parts[2])
		seconds, _ := strconv.Atoi(parts[3])
		offset := hours*3600 + minutes*60 + seconds
		href := fmt.Sprintf("%s%st=%ds", videoLink, sep, offset)
		return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), mark)
	})
}

// EmailBody lays out the digest email: greeting, opening line, optional video block,
// the document fragment, optional inline image and the closing line.
func EmailBody(phrases domain.EmailPhrases, video domain.VideoInfo, fragment string, image *domain.InlineImage) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family: Arial, sans-serif; font-size: 14px; color: #202124;">` + "\n")
	b.WriteString("<p>Hola Todos.</p>\n")
	fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(phrases.Opening))

	if video.Link != "" {
		fmt.Fprintf(&b, "<p><strong>Resumen de noticias:</strong> <a href=\"%s\">Ver video</a></p>\n", html.EscapeString(video.Link))
		if desc := RemoveHashtags(video.Description); desc != "" {
			desc = LinkifyTimestamps(desc, video.Link)
			fmt.Fprintf(&b, "<p>%s</p>\n", strings.ReplaceAll(desc, "\n", "<br>"))
		}
	}

	b.WriteString("<br><p><strong>Para más detalles, aquí están las noticias del blog:</strong></p>\n")
	b.WriteString(fragment)

	if image != nil {
		fmt.Fprintf(&b, "<div style=\"text-align: center;\"><img src=\"cid:%s\" alt=\"Resumen\" style=\"max-width: 100%%;\"></div>\n", image.ContentID)
	}

	fmt.Fprintf(&b, "<br><p>%s</p>\n", html.EscapeString(phrases.Closing))
	b.WriteString("</div>\n")
	return b.String()
}
