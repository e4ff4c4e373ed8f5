package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

const watchBase = "https://www.youtube.com/watch?v="

// Publisher uploads videos with the Data API v3 and polls until processing settles.
type Publisher struct {
	apiBase      string
	uploadBase   string
	token        string
	privacy      string
	language     string
	pollInterval time.Duration
	maxPolls     int
	client       *http.Client
	sleep        func(ctx context.Context, d time.Duration) error
	logger       *slog.Logger
}

var _ ports.VideoPublisher = (*Publisher)(nil)

// NewPublisher builds a publisher from configuration.
func NewPublisher(cfg config.YouTubeConfig, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{
		apiBase:      strings.TrimRight(cfg.APIBase, "/"),
		uploadBase:   strings.TrimRight(cfg.UploadBase, "/"),
		token:        cfg.AccessToken,
		privacy:      cfg.PrivacyStatus,
		language:     cfg.Language,
		pollInterval: cfg.PollInterval,
		maxPolls:     cfg.MaxPolls,
		client:       &http.Client{Timeout: 10 * time.Minute},
		sleep:        sleepContext,
		logger:       logger.With("component", "youtube"),
	}
	if p.privacy == "" {
		p.privacy = "public"
	}
	if p.maxPolls <= 0 {
		p.maxPolls = 30
	}
	return p
}

type videoResource struct {
	Snippet struct {
		Title           string   `json:"title"`
		Description     string   `json:"description"`
		Tags            []string `json:"tags,omitempty"`
		DefaultLanguage string   `json:"defaultLanguage,omitempty"`
	} `json:"snippet"`
	Status struct {
		PrivacyStatus           string `json:"privacyStatus"`
		SelfDeclaredMadeForKids bool   `json:"selfDeclaredMadeForKids"`
	} `json:"status"`
}

// Upload sends metadata and media in one multipart request and returns the video id.
func (p *Publisher) Upload(ctx context.Context, fileName string, data []byte, meta domain.VideoMetadata) (string, error) {
	if p.token == "" {
		return "", fmt.Errorf("youtube token: %w", domain.ErrNotConfigured)
	}

	var resource videoResource
	resource.Snippet.Title = meta.Title
	resource.Snippet.Description = meta.Description
	resource.Snippet.Tags = meta.Tags
	resource.Snippet.DefaultLanguage = p.language
	resource.Status.PrivacyStatus = p.privacy

	body, contentType, err := multipartBody(resource, data)
	if err != nil {
		return "", fmt.Errorf("build upload body: %w", err)
	}

	endpoint := p.uploadBase + "/videos?uploadType=multipart&part=snippet,status"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	var created struct {
		ID string `json:"id"`
	}
	if err := p.do(req, &created); err != nil {
		return "", fmt.Errorf("upload %s: %w", fileName, err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("upload %s: response carries no id", fileName)
	}

	p.logger.Info("uploaded video", "file", fileName, "video_id", created.ID)
	return created.ID, nil
}

// WaitProcessed polls every pollInterval, at most maxPolls times. It returns
// domain.ErrVideoTimeout when processing has not settled by then.
func (p *Publisher) WaitProcessed(ctx context.Context, videoID string) error {
	if p.token == "" {
		return fmt.Errorf("youtube token: %w", domain.ErrNotConfigured)
	}

	for poll := 1; poll <= p.maxPolls; poll++ {
		state, err := p.processingState(ctx, videoID)
		if err != nil {
			return err
		}

		switch state {
		case "succeeded", "processed":
			p.logger.Info("video processed", "video_id", videoID, "polls", poll)
			return nil
		case "failed", "rejected", "terminated", "deleted":
			return fmt.Errorf("video %s processing ended as %s", videoID, state)
		}

		p.logger.Debug("video still processing", "video_id", videoID, "state", state, "poll", poll)
		if poll < p.maxPolls {
			if err := p.sleep(ctx, p.pollInterval); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("video %s after %d polls: %w", videoID, p.maxPolls, domain.ErrVideoTimeout)
}

// WatchURL is the public link of a video.
func (p *Publisher) WatchURL(videoID string) string {
	return watchBase + videoID
}

func (p *Publisher) processingState(ctx context.Context, videoID string) (string, error) {
	endpoint := p.apiBase + "/videos?part=processingDetails,status&id=" + url.QueryEscape(videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}

	var listing struct {
		Items []struct {
			ProcessingDetails struct {
				ProcessingStatus string `json:"processingStatus"`
			} `json:"processingDetails"`
			Status struct {
				UploadStatus string `json:"uploadStatus"`
			} `json:"status"`
		} `json:"items"`
	}
	if err := p.do(req, &listing); err != nil {
		return "", fmt.Errorf("poll video %s: %w", videoID, err)
	}
	if len(listing.Items) == 0 {
		return "pending", nil
	}

	item := listing.Items[0]
	switch item.Status.UploadStatus {
	case "failed", "rejected", "deleted":
		return item.Status.UploadStatus, nil
	}
	if item.ProcessingDetails.ProcessingStatus != "" {
		return item.ProcessingDetails.ProcessingStatus, nil
	}
	return item.Status.UploadStatus, nil
}

func (p *Publisher) do(req *http.Request, v any) error {
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("youtube error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func multipartBody(resource videoResource, data []byte) (io.Reader, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	metaPart, err := writer.CreatePart(textproto.MIMEHeader{"Content-Type": {"application/json; charset=UTF-8"}})
	if err != nil {
		return nil, "", err
	}
	if err := json.NewEncoder(metaPart).Encode(resource); err != nil {
		return nil, "", err
	}

	mediaPart, err := writer.CreatePart(textproto.MIMEHeader{"Content-Type": {"video/mp4"}})
	if err != nil {
		return nil, "", err
	}
	if _, err := mediaPart.Write(data); err != nil {
		return nil, "", err
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, "multipart/related; boundary=" + writer.Boundary(), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
