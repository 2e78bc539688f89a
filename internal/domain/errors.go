package domain

import (
	"context"
	"errors"
)

var (
	// ErrEmbeddingUnavailable signals a failed or timed-out embedding call.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrDimensionMismatch signals incompatible vector dimensions. Fatal to the run.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrNoTopics signals an empty topic set. Fatal to the run.
	ErrNoTopics = errors.New("no topics configured")
	// ErrDuplicateArticle signals that an article was already processed. Not a failure.
	ErrDuplicateArticle = errors.New("duplicate article")
	// ErrSummarizationFailed signals an exhausted reasoning retry budget or an
	// unretryable provider error. The article is requeued, not dropped.
	ErrSummarizationFailed = errors.New("summarization failed")
	// ErrDedupStoreUnavailable signals that the dedup store could not be reached.
	ErrDedupStoreUnavailable = errors.New("dedup store unavailable")
	// ErrArticleTimeout signals that the per-article pipeline deadline expired.
	ErrArticleTimeout = errors.New("article pipeline timeout")
	// ErrRateLimited signals a provider rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrProviderUnavailable signals a transient reasoning provider failure.
	ErrProviderUnavailable = errors.New("reasoning provider unavailable")
	// ErrSummaryNotFound signals a missing summary.
	ErrSummaryNotFound = errors.New("summary not found")
	// ErrTraceCorrupted signals an unreadable persisted reasoning trace.
	ErrTraceCorrupted = errors.New("reasoning trace corrupted")
)

// IsConfiguration reports whether err is fatal to the whole run.
// Configuration errors are never retried and abort processing of all articles.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrDimensionMismatch) || errors.Is(err, ErrNoTopics)
}

// IsTransient reports whether err warrants a retry with backoff.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrEmbeddingUnavailable) ||
		errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, ErrDedupStoreUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}

// IsRequeueable reports whether a failed article should be offered again in a
// later run instead of being dropped.
func IsRequeueable(err error) bool {
	return IsTransient(err) ||
		errors.Is(err, ErrSummarizationFailed) ||
		errors.Is(err, ErrArticleTimeout)
}
