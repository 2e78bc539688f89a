// Package eventregistry fetches news articles from an EventRegistry-compatible
// getArticles endpoint.
package eventregistry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsflow/internal/domain"
)

const defaultEndpoint = "https://eventregistry.org/api/v1/article/getArticles"

// Config holds the article source settings.
type Config struct {
	Endpoint string
	APIKey   string
	Keyword  string
	PageSize int
	Logger   *zap.Logger
}

// Source polls the getArticles endpoint. It implements domain.Source.
type Source struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	keyword    string
	pageSize   int
	logger     *zap.Logger
}

// New creates an EventRegistry article source.
func New(cfg *Config) *Source {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Source{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		endpoint:   endpoint,
		apiKey:     cfg.APIKey,
		keyword:    cfg.Keyword,
		pageSize:   pageSize,
		logger:     cfg.Logger,
	}
}

// Fetch returns articles published after since, newest first as the API
// returns them. Result entries missing required fields are skipped.
func (s *Source) Fetch(ctx context.Context, since time.Time) ([]domain.Article, error) {
	payload := map[string]any{
		"action":              "getArticles",
		"keyword":             s.keyword,
		"articlesPage":        1,
		"articlesCount":       s.pageSize,
		"articlesSortBy":      "date",
		"articlesSortByAsc":   false,
		"dataType":            []string{"news", "pr"},
		"resultType":          "articles",
		"apiKey":              s.apiKey,
		"articleBodyLen":      -1,
		"includeArticleBody":  true,
		"includeArticleTitle": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal getArticles request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build getArticles request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("getArticles request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("getArticles returned status %d: %s", resp.StatusCode, snippet)
	}

	var parsed articlesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode getArticles response: %w", err)
	}

	retrievedAt := time.Now().UTC()
	out := make([]domain.Article, 0, len(parsed.Articles.Results))
	for _, raw := range parsed.Articles.Results {
		publishedAt, err := time.Parse("2006-01-02T15:04:05Z", raw.DateTime)
		if err != nil {
			s.logger.Warn("Skipping article with bad dateTime",
				zap.String("url", raw.URL), zap.String("dateTime", raw.DateTime))
			continue
		}
		if !publishedAt.After(since) {
			continue
		}
		art, err := domain.NewArticle(
			raw.Title, raw.Body, raw.Source.Title, raw.URL, publishedAt, retrievedAt,
		)
		if err != nil {
			s.logger.Warn("Skipping invalid article", zap.String("url", raw.URL), zap.Error(err))
			continue
		}
		out = append(out, art)
	}
	return out, nil
}

type articlesResponse struct {
	Articles struct {
		Results []struct {
			Title  string `json:"title"`
			Body   string `json:"body"`
			URL    string `json:"url"`
			Source struct {
				Title string `json:"title"`
			} `json:"source"`
			DateTime string `json:"dateTime"`
		} `json:"results"`
	} `json:"articles"`
}
