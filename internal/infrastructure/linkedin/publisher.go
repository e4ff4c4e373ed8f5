package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

const (
	restliHeader  = "X-Restli-Protocol-Version"
	restliVersion = "2.0.0"
	shareContent  = "com.linkedin.ugc.ShareContent"
	visibilityKey = "com.linkedin.ugc.MemberNetworkVisibility"
)

// Publisher shares posts through the ugcPosts API as the token's member.
type Publisher struct {
	apiBase string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

var _ ports.SocialPublisher = (*Publisher)(nil)

// NewPublisher registers the API base and the member access token.
func NewPublisher(cfg config.LinkedInConfig, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		apiBase: strings.TrimRight(cfg.APIBase, "/"),
		token:   cfg.AccessToken,
		client:  &http.Client{Timeout: 20 * time.Second},
		logger:  logger.With("component", "linkedin"),
	}
}

type shareMedia struct {
	Status      string    `json:"status"`
	Description shareText `json:"description"`
	OriginalURL string    `json:"originalUrl"`
	Title       shareText `json:"title"`
}

type shareText struct {
	Text string `json:"text"`
}

type shareBody struct {
	ShareCommentary    shareText    `json:"shareCommentary"`
	ShareMediaCategory string       `json:"shareMediaCategory"`
	Media              []shareMedia `json:"media,omitempty"`
}

type ugcPost struct {
	Author          string               `json:"author"`
	LifecycleState  string               `json:"lifecycleState"`
	SpecificContent map[string]shareBody `json:"specificContent"`
	Visibility      map[string]string    `json:"visibility"`
}

// Post publishes the text with an article card when a link is present and returns the post URN.
func (p *Publisher) Post(ctx context.Context, post ports.SocialPost) (string, error) {
	if p.token == "" {
		return "", fmt.Errorf("linkedin token: %w", domain.ErrNotConfigured)
	}

	author, err := p.personURN(ctx)
	if err != nil {
		return "", err
	}

	share := shareBody{
		ShareCommentary:    shareText{Text: post.Text},
		ShareMediaCategory: "NONE",
	}
	if post.LinkURL != "" {
		share.ShareMediaCategory = "ARTICLE"
		share.Media = []shareMedia{{
			Status:      "READY",
			Description: shareText{Text: orDefault(post.LinkDescription, "News Update")},
			OriginalURL: post.LinkURL,
			Title:       shareText{Text: orDefault(post.LinkTitle, "Click to view")},
		}}
	}

	body, err := json.Marshal(ugcPost{
		Author:          author,
		LifecycleState:  "PUBLISHED",
		SpecificContent: map[string]shareBody{shareContent: share},
		Visibility:      map[string]string{visibilityKey: "PUBLIC"},
	})
	if err != nil {
		return "", fmt.Errorf("marshal ugc post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBase+"/ugcPosts", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(restliHeader, restliVersion)

	var created struct {
		ID string `json:"id"`
	}
	if err := p.do(req, http.StatusCreated, &created); err != nil {
		return "", fmt.Errorf("create ugc post: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("create ugc post: response carries no id")
	}

	p.logger.Info("posted to linkedin", "urn", created.ID)
	return created.ID, nil
}

// Delete removes a post by URN.
func (p *Publisher) Delete(ctx context.Context, postURN string) error {
	if p.token == "" {
		return fmt.Errorf("linkedin token: %w", domain.ErrNotConfigured)
	}
	if postURN == "" {
		return fmt.Errorf("delete ugc post: empty urn")
	}

	endpoint := p.apiBase + "/ugcPosts/" + url.QueryEscape(postURN)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set(restliHeader, restliVersion)

	if err := p.do(req, 0, nil); err != nil {
		return fmt.Errorf("delete ugc post %s: %w", postURN, err)
	}
	p.logger.Info("deleted linkedin post", "urn", postURN)
	return nil
}

func (p *Publisher) personURN(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+"/userinfo", nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}

	var info struct {
		Sub string `json:"sub"`
	}
	if err := p.do(req, http.StatusOK, &info); err != nil {
		return "", fmt.Errorf("get linkedin profile: %w", err)
	}
	if info.Sub == "" {
		return "", fmt.Errorf("get linkedin profile: empty sub")
	}
	return info.Sub, nil
}

// do sends req and decodes the JSON answer into v. want 0 accepts 200 and 204.
func (p *Publisher) do(req *http.Request, want int, v any) error {
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	ok := resp.StatusCode == want
	if want == 0 {
		ok = resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent
	}
	if !ok {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("linkedin error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
