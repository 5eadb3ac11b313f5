package orchestrator

import (
	"context"
	"errors"
	"strings"
)

// User-facing failure messages. Raw provider errors are logged but never
// echoed to the end user.
const (
	msgMalformedResponse = "The model returned a malformed response. Please try again."
	msgTimeout           = "The request timed out. Please try again."
	msgGeneric           = "Something went wrong while processing your message. Please try again shortly."
)

// Synthetic tool-result texts injected without executing the tool.
const (
	msgAlreadyDone  = "ALREADY DONE. Do not repeat this call: the previous identical call was already executed. Report its result to the user instead of calling the tool again."
	msgArgsTooLarge = "Error: tool arguments too large to transmit. Split the payload into smaller chunks and call the tool multiple times."
)

// classifyError maps an internal failure onto the small user-facing set.
func classifyError(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return msgTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return msgTimeout
	case strings.Contains(msg, "failed to parse") ||
		strings.Contains(msg, "malformed") ||
		strings.Contains(msg, "no response choices"):
		return msgMalformedResponse
	default:
		return msgGeneric
	}
}
