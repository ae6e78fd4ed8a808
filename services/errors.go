package services

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors for broad classification.
var (
	ErrNotConfigured    = errors.New("provider credentials not configured")
	ErrLocationNotFound = errors.New("location not found")
	ErrNoCoordinates    = errors.New("location has no coordinates")
	ErrUnavailable      = errors.New("provider temporarily unavailable")
	ErrAuthentication   = errors.New("provider refused our credentials")
)

// ProviderError is an upstream HTTP failure. Status is the provider's
// HTTP status; Code, Title and Detail come from its error body when present.
type ProviderError struct {
	Provider string
	Op       string
	Status   int
	Code     int
	Title    string
	Detail   string
	Err      error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s %s", e.Provider, e.Op)
	if e.Status != 0 {
		base += fmt.Sprintf(" (%d)", e.Status)
	}
	if msg := e.Message(); msg != "" {
		base += ": " + msg
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Message is the most specific human-readable text the provider returned.
func (e *ProviderError) Message() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.Title != "":
		return e.Title
	}
	return ""
}

// Timeout reports whether the failure was a deadline or network timeout.
func (e *ProviderError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// serverSide reports whether the failure should count against the breaker.
// Client errors mean the provider is healthy and rejected our input.
func serverSide(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrAuthentication) {
		return true
	}
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Status >= 400 && pe.Status < 500 && pe.Status != 429 {
		return false
	}
	return true
}
