package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

var (
	// ErrNoImage is returned when a response carries no inline image data.
	ErrNoImage = errors.New("no image was generated")
	// ErrNoVideo is returned when a finished operation has no video.
	ErrNoVideo = errors.New("no video was generated")
	// ErrInvalidImage marks request images that are not valid base64 or data URLs.
	ErrInvalidImage = errors.New("invalid image data")
)

var transientMarkers = []string{"eof", "ssl", "connection", "timeout", "network", "broken pipe"}

// IsRetriable reports whether err looks like a transient transport or server
// failure that is worth polling again for.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsLocationRestricted reports whether the API refused the call because of the
// caller's region.
func IsLocationRestricted(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(strings.ToLower(msg), "location is not supported") ||
		strings.Contains(msg, "FailedPrecondition") ||
		strings.Contains(msg, "FAILED_PRECONDITION")
}
