package backend

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/yauhenio2025/modelcall/internal/domain"
)

// Providers reject oversized requests with free-text messages rather
// than a dedicated error code. The recognized phrasings live here, in
// one place, so the retry/escalate/salvage state machine never does its
// own string matching.
var overflowMarkers = []string{
	"too long",
	"context length exceeded",
	"context_length_exceeded",
	"too many tokens",
	"max tokens exceeds maximum",
	"prompt is too long",
}

// IsContextOverflow reports whether err is a provider rejecting the
// call as too large for the current addressing mode. Overflow is the
// only error class that earns the single extended-mode retry.
func IsContextOverflow(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range overflowMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}

// IsConnectionError reports whether err is a connection-class failure:
// a liveness stall, a timeout, or any transport-level fault. Only
// connection-class failures are eligible for partial-output salvage.
// Caller cancellation is intent, not a fault, and is never included.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, domain.ErrCallCancelled) || errors.Is(err, context.Canceled) {
		return false
	}

	var stall *StallError
	if errors.As(err, &stall) {
		return true
	}

	// context.DeadlineExceeded satisfies net.Error with Timeout() true,
	// which covers the per-operation wall-clock ceiling as well.
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"connection reset",
		"connection refused",
		"broken pipe",
		"unexpected eof",
		"stream error",
		"tls handshake",
		"no such host",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}
