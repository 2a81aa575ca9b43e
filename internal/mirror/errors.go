package mirror

import (
	"fmt"
	"strings"
)

// FetchError is returned when a remote resource cannot be retrieved.
type FetchError struct {
	URL string
	Err error
}

func (e FetchError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("fetch failed: %v", e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e FetchError) Unwrap() error { return e.Err }

// TranscodeError is returned when the underlying codec fails on a media
// buffer. The attachment is treated as unavailable.
type TranscodeError struct {
	Kind MediaKind
	Err  error
}

func (e TranscodeError) Error() string {
	return fmt.Sprintf("%s transcode failed: %v", e.Kind, e.Err)
}

func (e TranscodeError) Unwrap() error { return e.Err }

// SizeUnsatisfiable is returned when normalization cannot bring media within
// the destination's byte budget. The oversized buffer is never returned.
type SizeUnsatisfiable struct {
	Kind     MediaKind
	Size     int
	MaxBytes int
}

func (e SizeUnsatisfiable) Error() string {
	return fmt.Sprintf("%s is %d bytes after normalization, budget is %d", e.Kind, e.Size, e.MaxBytes)
}

// ContentRejected is returned when a post's text cannot be published as-is:
// empty after transformation, or over the destination's character ceiling.
type ContentRejected struct {
	Reason string
}

func (e ContentRejected) Error() string {
	return fmt.Sprintf("content rejected: %s", e.Reason)
}

// PublishError is returned when the destination refuses or fails to accept a
// post. The ledger is left untouched so the post is retried on the next run.
type PublishError struct {
	Provider string
	Err      error
}

func (e PublishError) Error() string {
	return fmt.Sprintf("%s publish failed: %v", e.Provider, e.Err)
}

func (e PublishError) Unwrap() error { return e.Err }

// LedgerIOError is returned when persisted sync state cannot be read or
// written.
type LedgerIOError struct {
	Op  string
	Err error
}

func (e LedgerIOError) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
}

func (e LedgerIOError) Unwrap() error { return e.Err }

// MissingEnvError is returned when required configuration is missing.
type MissingEnvError struct {
	Provider  string
	Variables []string
}

func (e MissingEnvError) Error() string {
	if len(e.Variables) == 0 {
		return fmt.Sprintf("%s credentials not configured", e.Provider)
	}
	return fmt.Sprintf("%s credentials not configured (missing %s)", e.Provider, strings.Join(e.Variables, ", "))
}
