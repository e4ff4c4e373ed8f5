package domain

import (
	"strings"
	"time"
)

// Post is a normalized feed entry. Link is its identity key.
type Post struct {
	Title       string
	Link        string
	PublishedAt time.Time
	Categories  []string
}

// Row is one row of a tabular store as displayed strings.
type Row []string

// Cell returns the trimmed value at the zero-based column, or "" when the row is shorter.
func (r Row) Cell(col int) string {
	if col < 0 || col >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[col])
}

// Header names shared by the active and archive tables.
const (
	ColumnChannel = "Channel"
	ColumnTitle   = "Title"
	ColumnLink    = "Link"
	ColumnDate    = "Publication Date"
)

// ArchiveLinkColumn is the fixed position of the link column used by the dedup hot path.
const ArchiveLinkColumn = 2

// DefaultChannel files manually curated rows that carry no channel.
const DefaultChannel = "General"

// ActiveHeader is the header row written to active and archive tables.
var ActiveHeader = Row{ColumnChannel, ColumnTitle, ColumnLink, ColumnDate}

// ActiveRow is a post that cleared dedup and waits in the active table.
type ActiveRow struct {
	Channel         string
	Title           string
	Link            string
	PublicationDate string
}

// ToRow renders the row in header order.
func (a ActiveRow) ToRow() Row {
	return Row{a.Channel, a.Title, a.Link, a.PublicationDate}
}

// DisplayDate formats a publication date the way the active table shows it.
func DisplayDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("02 - Jan")
}

// ColumnIndex finds a header column by name; -1 when absent.
func ColumnIndex(header Row, name string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

// SummaryResult is the model output for a single article.
type SummaryResult struct {
	Title string
	Body  string
}

// Article pairs an article link with its summary or the error that replaced it.
type Article struct {
	URL     string
	Summary SummaryResult
	Err     error
}

// DocumentSection groups the articles of one channel.
type DocumentSection struct {
	Channel  string
	Heading  string
	Articles []Article
}

// Document is the assembled digest before rendering.
type Document struct {
	Title    string
	Sections []DocumentSection
}

// VideoInfo describes the companion video referenced by the email and the social post.
type VideoInfo struct {
	ID          string
	Link        string
	Title       string
	Description string
	Tags        []string
}

// VideoMetadata is the generated upload resource for a video.
type VideoMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// InlineImage is an attachment referenced from the HTML body by content id.
type InlineImage struct {
	ContentID   string
	Filename    string
	ContentType string
	Data        []byte
}

// EmailPhrases are the opening and closing lines of the digest email.
type EmailPhrases struct {
	Opening string `json:"opening"`
	Closing string `json:"closing"`
}
