package domain

import (
	"errors"
	"net/url"
	"strings"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrUnsupported = errors.New("unsupported operation")

	// ErrInvalidStreamURL means the server returned a missing or malformed
	// URL at a point where one was required. Fatal to the current
	// acquisition attempt, never retried automatically.
	ErrInvalidStreamURL = errors.New("invalid stream url")

	// ErrConnectionLost means too many consecutive poll failures.
	ErrConnectionLost = errors.New("connection lost")

	// ErrSessionTornDown marks results that arrived after the session was
	// replaced or navigated away from; they are discarded.
	ErrSessionTornDown = errors.New("session torn down")

	ErrNoActiveSession = errors.New("no active playback session")
)

// genericUnavailableMessage is what the user sees when the server's failure
// message is absent or uninformative.
const genericUnavailableMessage = "title unavailable"

// ResolutionError is a server-reported acquisition failure. Message is the
// server's text verbatim and may be empty or a bare status token.
type ResolutionError struct {
	Message string
}

func (e *ResolutionError) Error() string {
	if e.Message == "" {
		return "resolution failed"
	}
	return "resolution failed: " + e.Message
}

// UserMessage returns the server's message when it is informative, else a
// generic unavailability message. Bare status tokens ("failed", "error")
// are not informative.
func (e *ResolutionError) UserMessage() string {
	msg := strings.TrimSpace(e.Message)
	switch strings.ToLower(msg) {
	case "", "failed", "error":
		return genericUnavailableMessage
	}
	return msg
}

// NewResolutionError builds a ResolutionError from a terminal failed poll
// response, preferring the explicit error field over the status message.
func NewResolutionError(status JobStatus) *ResolutionError {
	msg := strings.TrimSpace(status.Error)
	if msg == "" {
		msg = strings.TrimSpace(status.Message)
	}
	return &ResolutionError{Message: msg}
}

// UserFacingMessage maps any acquisition or playback error to the single
// user-visible category, preserving server detail only when informative.
func UserFacingMessage(err error) string {
	var resErr *ResolutionError
	if errors.As(err, &resErr) {
		return resErr.UserMessage()
	}
	return genericUnavailableMessage
}

// ValidStreamURL reports whether raw is a usable http(s) stream URL.
// A completed job with anything else is treated as a failure, never a
// success.
func ValidStreamURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
