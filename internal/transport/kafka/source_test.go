package kafka

import (
	"testing"
	"time"
)

func TestDecodeArticle(t *testing.T) {
	raw := []byte(`{
		"title": "AI chips",
		"body": "Body text.",
		"source": "reuters",
		"url": "https://example.com/1",
		"published_at": "2026-05-01T10:00:00Z"
	}`)

	art, err := decodeArticle(raw)
	if err != nil {
		t.Fatalf("decodeArticle: %v", err)
	}
	if art.Title() != "AI chips" || art.Source() != "reuters" {
		t.Errorf("unexpected article %q/%q", art.Title(), art.Source())
	}
	if !art.PublishedAt().Equal(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected publishedAt %v", art.PublishedAt())
	}
	if art.Fingerprint() == "" {
		t.Error("decoded article must carry a fingerprint")
	}
}

func TestDecodeArticle_BadJSON(t *testing.T) {
	if _, err := decodeArticle([]byte("not json")); err == nil {
		t.Fatal("expected error for bad JSON")
	}
}

func TestDecodeArticle_MissingFields(t *testing.T) {
	raw := []byte(`{"title": "no body", "source": "s", "url": "https://example.com/x"}`)
	if _, err := decodeArticle(raw); err == nil {
		t.Fatal("expected error for article without a body")
	}
}

func TestParseTimestamp(t *testing.T) {
	cases := map[string]bool{
		"2026-05-01T10:00:00Z":     true,
		"2026-05-01T10:00:00.123Z": true,
		"2026-05-01 10:00:00":      true,
		"yesterday":                false,
		"":                         false,
	}
	for raw, ok := range cases {
		got := parseTimestamp(raw)
		if ok && got.IsZero() {
			t.Errorf("%q: expected parse to succeed", raw)
		}
		if !ok && !got.IsZero() {
			t.Errorf("%q: expected zero time", raw)
		}
	}
}
