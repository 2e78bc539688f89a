package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// MaxBodySize is the maximum article body size in bytes.
const MaxBodySize = 163840 // 160KB

// Article is a single retrieved news item (immutable value object).
// Its identity is the fingerprint of the stable source fields, so the same
// story fetched twice through overlapping windows hashes to the same ID.
type Article struct {
	fingerprint string
	title       string
	body        string
	source      string
	url         string
	publishedAt time.Time
	retrievedAt time.Time
}

// NewArticle validates and creates an Article. The fingerprint is derived
// from source, URL, and publish time; it never changes after creation.
func NewArticle(title, body, source, url string, publishedAt, retrievedAt time.Time) (Article, error) {
	if strings.TrimSpace(title) == "" {
		return Article{}, fmt.Errorf("article title is required")
	}
	if strings.TrimSpace(body) == "" {
		return Article{}, fmt.Errorf("article body is required")
	}
	if len(body) > MaxBodySize {
		return Article{}, fmt.Errorf("article body too large (max %d bytes)", MaxBodySize)
	}
	if url == "" {
		return Article{}, fmt.Errorf("article url is required")
	}
	if publishedAt.IsZero() {
		return Article{}, fmt.Errorf("article publish time is required")
	}
	if retrievedAt.IsZero() {
		retrievedAt = time.Now().UTC()
	}

	return Article{
		fingerprint: ComputeFingerprint(source, url, publishedAt),
		title:       title,
		body:        body,
		source:      source,
		url:         url,
		publishedAt: publishedAt.UTC(),
		retrievedAt: retrievedAt.UTC(),
	}, nil
}

// ReconstructArticle creates an Article without validation (storage hydration).
func ReconstructArticle(
	fingerprint, title, body, source, url string,
	publishedAt, retrievedAt time.Time,
) Article {
	return Article{
		fingerprint: fingerprint,
		title:       title,
		body:        body,
		source:      source,
		url:         url,
		publishedAt: publishedAt,
		retrievedAt: retrievedAt,
	}
}

// ComputeFingerprint hashes the stable identifying fields of an article.
func ComputeFingerprint(source, url string, publishedAt time.Time) string {
	h := sha256.Sum256([]byte(source + "|" + url + "|" + publishedAt.UTC().Format(time.RFC3339)))
	return hex.EncodeToString(h[:])
}

// Fingerprint returns the stable article identity.
func (a *Article) Fingerprint() string { return a.fingerprint }

// Title returns the article title.
func (a *Article) Title() string { return a.title }

// Body returns the article body text.
func (a *Article) Body() string { return a.body }

// Source returns the publishing source name.
func (a *Article) Source() string { return a.source }

// URL returns the article URL.
func (a *Article) URL() string { return a.url }

// PublishedAt returns the publication timestamp.
func (a *Article) PublishedAt() time.Time { return a.publishedAt }

// RetrievedAt returns the retrieval timestamp.
func (a *Article) RetrievedAt() time.Time { return a.retrievedAt }

// Text returns the title and body joined for embedding and summarization.
func (a *Article) Text() string { return a.title + "\n\n" + a.body }
