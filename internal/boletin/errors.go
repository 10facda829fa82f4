package boletin

import "fmt"

// FetchError wraps transport-level failures from the gazette site.
// Transient reports whether a retry could plausibly succeed; 4xx
// responses are not transient, timeouts and 5xx are.
type FetchError struct {
	URL        string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError signals page-level schema drift: the markup no longer
// matches any known listing or detail pattern. Per-record skips do not
// produce a ParseError.
type ParseError struct {
	URL    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.URL, e.Reason)
}

// SummarizeError wraps failures from the AI provider. The affected
// notice is persisted without a summary and retried on a later run.
type SummarizeError struct {
	ReferenceID string
	StatusCode  int
	Err         error
}

func (e *SummarizeError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("summarize %s: provider status %d", e.ReferenceID, e.StatusCode)
	}
	return fmt.Sprintf("summarize %s: %v", e.ReferenceID, e.Err)
}

func (e *SummarizeError) Unwrap() error { return e.Err }

// WriteError wraps artifact persistence failures. The previous artifact
// is left untouched when one occurs.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write artifact %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
