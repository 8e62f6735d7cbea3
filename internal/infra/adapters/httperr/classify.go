// Package httperr maps transport failures of backend calls onto domain kinds.
package httperr

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"meeting-recap/internal/domain"
)

// Classify turns an error from http.Client.Do into a timeout or connection
// error. what names the backend in the message, e.g. "Whisper server".
func Classify(err error, what, host string) *domain.Error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return domain.Wrap(domain.KindTimeout, err, "Timeout connecting to %s at %s", what, host)
	}
	return domain.Wrap(domain.KindConnection, err, "Cannot connect to %s at %s", what, host)
}

// Body reads at most 4 KiB of an error response body for messages.
func Body(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4<<10))
	return strings.TrimSpace(string(b))
}

// Outcome is the metrics label for a call result: "ok" or the error kind.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(domain.KindOf(err))
}
