package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTableNotFound means the row store has no table by that name.
	ErrTableNotFound = errors.New("table not found")
	// ErrColumnNotFound means a table header lacks a required column.
	ErrColumnNotFound = errors.New("column not found")
	// ErrVideoTimeout means an uploaded video did not finish processing in time.
	ErrVideoTimeout = errors.New("video processing timed out")
	// ErrNotConfigured means an adapter is missing the credentials it needs.
	ErrNotConfigured = errors.New("not configured")
)

// FetchError reports an unreachable feed or article, including non-200 responses.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ContentFetchError is a FetchError raised while grounding a summary on article HTML.
type ContentFetchError struct {
	FetchError
}

func (e *ContentFetchError) Error() string {
	return "content " + e.FetchError.Error()
}

// ParseError reports a malformed feed or page.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ContentTooShortError rejects scrapes below the grounding floor.
type ContentTooShortError struct {
	URL    string
	Length int
	Min    int
}

func (e *ContentTooShortError) Error() string {
	return fmt.Sprintf("content of %s too short: %d < %d characters", e.URL, e.Length, e.Min)
}

// ModelError covers exhausted retries, blocked prompts and unexpected model responses.
type ModelError struct {
	Status      int
	Attempts    int
	BlockReason string
	Exhausted   bool
	Err         error
}

func (e *ModelError) Error() string {
	switch {
	case e.Exhausted:
		return fmt.Sprintf("model call failed after %d attempts (last status %d)", e.Attempts, e.Status)
	case e.BlockReason != "":
		return fmt.Sprintf("model returned no content: %s", e.BlockReason)
	case e.Err != nil:
		return fmt.Sprintf("model call failed: %v", e.Err)
	default:
		return fmt.Sprintf("model call failed with status %d", e.Status)
	}
}

func (e *ModelError) Unwrap() error { return e.Err }

// StoreError reports structural row-store problems; fatal for a run.
type StoreError struct {
	Table  string
	Column string
	Err    error
}

func (e *StoreError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("table %q column %q: %v", e.Table, e.Column, e.Err)
	}
	return fmt.Sprintf("table %q: %v", e.Table, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// PublishError wraps a failure of one outbound channel.
type PublishError struct {
	Channel PublishChannel
	Err     error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s: %v", e.Channel, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// IsRecoverable reports whether err is a per-article failure that should be rendered
// inline instead of aborting the batch.
func IsRecoverable(err error) bool {
	var (
		fetchErr   *FetchError
		contentErr *ContentFetchError
		parseErr   *ParseError
		shortErr   *ContentTooShortError
		modelErr   *ModelError
	)
	return errors.As(err, &contentErr) ||
		errors.As(err, &fetchErr) ||
		errors.As(err, &parseErr) ||
		errors.As(err, &shortErr) ||
		errors.As(err, &modelErr)
}
