package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// memStore is a RowStore with spreadsheet semantics that records deletions.
type memStore struct {
	mu         sync.Mutex
	tables     map[string][]domain.Row
	deletes    []int
	appendErr  error
	replaceErr error
	readErr    map[string]error
}

func newMemStore() *memStore {
	return &memStore{tables: map[string][]domain.Row{}, readErr: map[string]error{}}
}

func (m *memStore) set(table string, rows ...domain.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[table] = append([]domain.Row(nil), rows...)
}

func (m *memStore) rows(table string) []domain.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Row(nil), m.tables[table]...)
}

func (m *memStore) EnsureTable(_ context.Context, table string, header domain.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rows, ok := m.tables[table]; !ok || len(rows) == 0 {
		m.tables[table] = []domain.Row{header}
	}
	return nil
}

func (m *memStore) ReadAll(_ context.Context, table string) ([]domain.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.readErr[table]; err != nil {
		return nil, err
	}
	rows, ok := m.tables[table]
	if !ok {
		return nil, &domain.StoreError{Table: table, Err: domain.ErrTableNotFound}
	}
	return append([]domain.Row(nil), rows...), nil
}

func (m *memStore) WriteRows(_ context.Context, table string, startRow int, rows []domain.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.tables[table]
	if !ok {
		return &domain.StoreError{Table: table, Err: domain.ErrTableNotFound}
	}
	for i, r := range rows {
		pos := startRow - 1 + i
		for len(existing) <= pos {
			existing = append(existing, domain.Row{})
		}
		existing[pos] = r
	}
	m.tables[table] = existing
	return nil
}

func (m *memStore) AppendRows(_ context.Context, table string, rows []domain.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	existing, ok := m.tables[table]
	if !ok {
		return &domain.StoreError{Table: table, Err: domain.ErrTableNotFound}
	}
	m.tables[table] = append(existing, rows...)
	return nil
}

func (m *memStore) DeleteRow(_ context.Context, table string, rowIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.tables[table]
	if !ok {
		return &domain.StoreError{Table: table, Err: domain.ErrTableNotFound}
	}
	if rowIndex < 1 || rowIndex > len(existing) {
		return &domain.StoreError{Table: table, Err: fmt.Errorf("row %d out of range", rowIndex)}
	}
	m.deletes = append(m.deletes, rowIndex)
	m.tables[table] = append(existing[:rowIndex-1:rowIndex-1], existing[rowIndex:]...)
	return nil
}

func (m *memStore) ReplaceRows(_ context.Context, table string, rows []domain.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[table]; !ok {
		return &domain.StoreError{Table: table, Err: domain.ErrTableNotFound}
	}
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.tables[table] = append([]domain.Row(nil), rows...)
	return nil
}

var _ ports.RowStore = (*memStore)(nil)

type fakeFetcher struct {
	posts []domain.Post
	err   error
}

func (f fakeFetcher) Fetch(context.Context, string) ([]domain.Post, error) {
	return f.posts, f.err
}

// fakeSummarizer answers from a per-URL table; unknown URLs get a generic summary.
type fakeSummarizer struct {
	mu     sync.Mutex
	errs   map[string]error
	called []string
}

func (f *fakeSummarizer) Summarize(_ context.Context, url string) (domain.SummaryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called = append(f.called, url)
	if err := f.errs[url]; err != nil {
		return domain.SummaryResult{}, err
	}
	return domain.SummaryResult{Title: "Title for " + url, Body: "Body for " + url}, nil
}

type fakeDocuments struct {
	mu    sync.Mutex
	saved map[string]string
	err   error
}

func (f *fakeDocuments) Save(_ context.Context, title, html string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if f.saved == nil {
		f.saved = map[string]string{}
	}
	f.saved[title] = html
	return "/docs/" + title + ".html", nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []ports.Email
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg ports.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeSocial struct {
	mu      sync.Mutex
	posts   []ports.SocialPost
	deleted []string
	err     error
}

func (f *fakeSocial) Post(_ context.Context, post ports.SocialPost) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.posts = append(f.posts, post)
	return fmt.Sprintf("urn:li:ugcPost:%d", len(f.posts)), nil
}

func (f *fakeSocial) Delete(_ context.Context, urn string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, urn)
	return nil
}

type fakePhrases struct {
	phrases domain.EmailPhrases
	err     error
}

func (f fakePhrases) EmailPhrases(context.Context, domain.VideoInfo, string) (domain.EmailPhrases, error) {
	return f.phrases, f.err
}

type fakeDescriber struct {
	meta domain.VideoMetadata
	err  error
}

func (f fakeDescriber) DescribeVideo(context.Context, string, []byte) (domain.VideoMetadata, error) {
	return f.meta, f.err
}

type fakeVideo struct {
	mu       sync.Mutex
	uploaded []string
	waitErr  error
	err      error
}

func (f *fakeVideo) Upload(_ context.Context, fileName string, _ []byte, _ domain.VideoMetadata) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.uploaded = append(f.uploaded, fileName)
	return fmt.Sprintf("vid%d", len(f.uploaded)), nil
}

func (f *fakeVideo) WaitProcessed(context.Context, string) error { return f.waitErr }

func (f *fakeVideo) WatchURL(id string) string { return "https://www.youtube.com/watch?v=" + id }

var errBoom = errors.New("boom")
