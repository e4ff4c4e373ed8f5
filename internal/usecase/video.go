package usecase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// VideoOverviewHeader is the header of the per-profile video log table.
var VideoOverviewHeader = domain.Row{"Link", "Title", "Description", "Date Created"}

const videoDateLayout = "2006-01-02 15:04"

// VideoSettings locates a profile's video files and log table.
type VideoSettings struct {
	SourceDir string
	DoneDir   string
	Table     string
	Location  *time.Location
}

// VideoUploader publishes the newest rendered video of a profile.
type VideoUploader struct {
	describer ports.VideoDescriber
	publisher ports.VideoPublisher
	store     ports.RowStore
	settings  VideoSettings
	logger    *slog.Logger
	now       func() time.Time
}

// NewVideoUploader wires the video collaborators.
func NewVideoUploader(describer ports.VideoDescriber, publisher ports.VideoPublisher, store ports.RowStore, settings VideoSettings, logger *slog.Logger) *VideoUploader {
	if logger == nil {
		logger = slog.Default()
	}
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	return &VideoUploader{
		describer: describer,
		publisher: publisher,
		store:     store,
		settings:  settings,
		logger:    logger.With("component", "video"),
		now:       time.Now,
	}
}

// PublishLatest uploads the newest .mp4 of the source directory, waits for processing,
// logs it in the video table and moves the file to the done directory. A missing
// video is a skipped attempt; the returned info is only valid on success.
func (v *VideoUploader) PublishLatest(ctx context.Context) (domain.VideoInfo, domain.PublishAttempt) {
	attempt := domain.PublishAttempt{Channel: domain.ChannelVideo}

	path, err := NewestFile(v.settings.SourceDir, ".mp4")
	if err != nil {
		attempt.Error = err.Error()
		v.logger.Error("locate video", "dir", v.settings.SourceDir, "error", err)
		return domain.VideoInfo{}, attempt
	}
	if path == "" {
		attempt.Skipped = true
		v.logger.Info("no video to upload", "dir", v.settings.SourceDir)
		return domain.VideoInfo{}, attempt
	}

	info, err := v.upload(ctx, path)
	if err != nil {
		attempt.Error = err.Error()
		v.logger.Error("video publish failed", "file", filepath.Base(path), "error", err)
		return domain.VideoInfo{}, attempt
	}

	attempt.Success = true
	attempt.Ref = info.Link
	return info, attempt
}

func (v *VideoUploader) upload(ctx context.Context, path string) (domain.VideoInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.VideoInfo{}, fmt.Errorf("read video: %w", err)
	}

	name := filepath.Base(path)
	meta, err := v.describer.DescribeVideo(ctx, name, data)
	if err != nil {
		return domain.VideoInfo{}, fmt.Errorf("describe video: %w", err)
	}

	id, err := v.publisher.Upload(ctx, name, data, meta)
	if err != nil {
		return domain.VideoInfo{}, &domain.PublishError{Channel: domain.ChannelVideo, Err: err}
	}
	v.logger.Info("video uploaded", "file", name, "video_id", id)

	info := domain.VideoInfo{
		ID:          id,
		Link:        v.publisher.WatchURL(id),
		Title:       meta.Title,
		Description: meta.Description,
		Tags:        meta.Tags,
	}

	if err := v.publisher.WaitProcessed(ctx, id); err != nil {
		if !errors.Is(err, domain.ErrVideoTimeout) {
			return domain.VideoInfo{}, &domain.PublishError{Channel: domain.ChannelVideo, Err: err}
		}
		v.logger.Warn("video still processing, continuing", "video_id", id)
	}

	if err := v.record(ctx, info); err != nil {
		v.logger.Error("log video", "table", v.settings.Table, "error", err)
	}

	if v.settings.DoneDir != "" {
		if err := MoveFile(path, v.settings.DoneDir); err != nil {
			v.logger.Error("move uploaded video", "file", name, "error", err)
		}
	}

	return info, nil
}

func (v *VideoUploader) record(ctx context.Context, info domain.VideoInfo) error {
	if err := v.store.EnsureTable(ctx, v.settings.Table, VideoOverviewHeader); err != nil {
		return err
	}
	row := domain.Row{info.Link, info.Title, info.Description, v.now().In(v.settings.Location).Format(videoDateLayout)}
	return v.store.AppendRows(ctx, v.settings.Table, []domain.Row{row})
}

// LatestVideo returns the last logged video of a table, located by header name.
// A missing or empty table yields defaults without a link.
func LatestVideo(ctx context.Context, store ports.RowStore, table string, defaults domain.VideoInfo) (domain.VideoInfo, error) {
	rows, err := store.ReadAll(ctx, table)
	if err != nil {
		if errors.Is(err, domain.ErrTableNotFound) {
			return defaults, nil
		}
		return defaults, fmt.Errorf("read video table: %w", err)
	}
	if len(rows) < 2 {
		return defaults, nil
	}

	header, last := rows[0], rows[len(rows)-1]
	info := defaults
	if col := domain.ColumnIndex(header, "Link"); col >= 0 {
		info.Link = last.Cell(col)
	}
	if col := domain.ColumnIndex(header, "Title"); col >= 0 && last.Cell(col) != "" {
		info.Title = last.Cell(col)
	}
	if col := domain.ColumnIndex(header, "Description"); col >= 0 && last.Cell(col) != "" {
		info.Description = last.Cell(col)
	}
	return info, nil
}

// LatestImage loads the newest .png of dir as the inline summary image, or nil when there is none.
func LatestImage(dir string) (*domain.InlineImage, string, error) {
	path, err := NewestFile(dir, ".png")
	if err != nil || path == "" {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	return &domain.InlineImage{
		ContentID:   SummaryImageID,
		Filename:    filepath.Base(path),
		ContentType: "image/png",
		Data:        data,
	}, path, nil
}

// NewestFile returns the most recently modified file in dir with the extension, or ""
// when there is none. A missing directory counts as empty.
func NewestFile(dir, ext string) (string, error) {
	if dir == "" {
		return "", nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("list %s: %w", dir, err)
	}

	var (
		newest  string
		newestT time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || fi.ModTime().After(newestT) {
			newest = filepath.Join(dir, entry.Name())
			newestT = fi.ModTime()
		}
	}
	return newest, nil
}

// MoveFile moves path into dir, creating dir when needed.
func MoveFile(path, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return os.Rename(path, filepath.Join(dir, filepath.Base(path)))
}
