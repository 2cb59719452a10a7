// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Circuit breaker errors.
var (
	// ErrCircuitBreakerOpen indicates the circuit breaker has tripped and requests are blocked.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
)

// Ingestion errors.
var (
	// ErrDuplicateArticle indicates the article URL hash already exists.
	ErrDuplicateArticle = errors.New("duplicate article")

	// ErrArticleNotFound indicates an article could not be found.
	ErrArticleNotFound = errors.New("article not found")

	// ErrClusterNotFound indicates a story cluster could not be found.
	ErrClusterNotFound = errors.New("cluster not found")
)

// Episode errors.
var (
	// ErrEpisodeNotFound indicates an episode could not be found.
	ErrEpisodeNotFound = errors.New("episode not found")

	// ErrNoNewArticles indicates selection produced no candidates for an episode.
	ErrNoNewArticles = errors.New("no new articles available")

	// ErrInvalidTransition indicates an illegal episode status transition.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrEpisodeInFlight indicates generation is already running for the episode.
	ErrEpisodeInFlight = errors.New("episode generation already in progress")
)

// Content errors.
var (
	// ErrContentTooShort indicates extracted content is below the usable minimum.
	ErrContentTooShort = errors.New("extracted content too short")

	// ErrNoUsableContent indicates no article in a cluster yielded usable content.
	ErrNoUsableContent = errors.New("no usable content in cluster")
)

// Response and parsing errors.
var (
	// ErrEmptyResponse indicates an empty response was received.
	ErrEmptyResponse = errors.New("empty response")

	// ErrUnparsableDecision indicates a judge decision could not be parsed.
	ErrUnparsableDecision = errors.New("unparsable clustering decision")

	// ErrMalformedChapters indicates a WebVTT chapter file could not be parsed.
	ErrMalformedChapters = errors.New("malformed chapter file")
)

// Validation errors.
var (
	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidID indicates an invalid identifier.
	ErrInvalidID = errors.New("invalid id")
)

// Rate limiting errors.
var (
	// ErrRateLimited indicates rate limiting was triggered.
	ErrRateLimited = errors.New("rate limited")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
