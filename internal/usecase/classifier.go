package usecase

import (
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"NewsDigest/internal/domain"
)

// DefaultChannelCap is how many newest posts each channel keeps.
const DefaultChannelCap = 10

// ChannelGroup holds the posts filed under one catalog channel.
type ChannelGroup struct {
	Channel string
	Posts   []domain.Post
}

// ClassifiedTable is the deduplicated channel view of a feed, in catalog order.
type ClassifiedTable struct {
	Groups []ChannelGroup

	// Unmatched are posts whose categories hit no catalog channel.
	Unmatched []domain.Post

	// Archived counts links dropped because the archive already holds them.
	Archived int
}

// Rows flattens the groups into active-table rows, channel by channel.
func (t ClassifiedTable) Rows(loc *time.Location) []domain.ActiveRow {
	rows := make([]domain.ActiveRow, 0, t.Len())
	for _, g := range t.Groups {
		for _, p := range g.Posts {
			rows = append(rows, domain.ActiveRow{
				Channel:         g.Channel,
				Title:           p.Title,
				Link:            p.Link,
				PublicationDate: domain.DisplayDate(p.PublishedAt, loc),
			})
		}
	}
	return rows
}

// Len is the number of rows across all groups.
func (t ClassifiedTable) Len() int {
	return lo.SumBy(t.Groups, func(g ChannelGroup) int { return len(g.Posts) })
}

// Classify files every post under each catalog channel it is tagged with, keeps the
// newest capPerChannel posts per channel, writes each link once (first channel in
// catalog order wins) and drops links already present in archiveLinks.
// The result depends only on its inputs.
func Classify(posts []domain.Post, catalog []string, archiveLinks map[string]struct{}, capPerChannel int) ClassifiedTable {
	if capPerChannel <= 0 {
		capPerChannel = DefaultChannelCap
	}

	known := lo.Associate(catalog, func(c string) (string, struct{}) { return c, struct{}{} })
	byChannel := make(map[string][]domain.Post, len(catalog))

	var table ClassifiedTable
	for _, post := range posts {
		matched := false
		for _, category := range lo.Uniq(post.Categories) {
			if _, ok := known[category]; !ok {
				continue
			}
			byChannel[category] = append(byChannel[category], post)
			matched = true
		}
		if !matched {
			table.Unmatched = append(table.Unmatched, post)
		}
	}

	added := make(map[string]struct{})
	for _, channel := range lo.Uniq(catalog) {
		candidates := byChannel[channel]
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].PublishedAt.After(candidates[j].PublishedAt)
		})
		if len(candidates) > capPerChannel {
			candidates = candidates[:capPerChannel]
		}

		var kept []domain.Post
		for _, post := range candidates {
			link := strings.TrimSpace(post.Link)
			if _, dup := added[link]; dup {
				continue
			}
			added[link] = struct{}{}
			if _, old := archiveLinks[link]; old {
				table.Archived++
				continue
			}
			kept = append(kept, post)
		}
		if len(kept) > 0 {
			table.Groups = append(table.Groups, ChannelGroup{Channel: channel, Posts: kept})
		}
	}

	return table
}

// ExcludeTitles drops posts whose title contains any of the given substrings.
func ExcludeTitles(posts []domain.Post, substrings []string) []domain.Post {
	if len(substrings) == 0 {
		return posts
	}
	return lo.Filter(posts, func(p domain.Post, _ int) bool {
		return !lo.SomeBy(substrings, func(s string) bool {
			return s != "" && strings.Contains(p.Title, s)
		})
	})
}

// ArchiveLinks collects the trimmed link column of archive rows, header excluded.
func ArchiveLinks(rows []domain.Row) map[string]struct{} {
	links := make(map[string]struct{}, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if link := row.Cell(domain.ArchiveLinkColumn); link != "" {
			links[link] = struct{}{}
		}
	}
	return links
}
