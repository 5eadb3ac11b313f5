package orchestrator

import (
	"strings"

	"github.com/forgeai-dev/ForgeAI-sub001/pkg/llm"
	"github.com/forgeai-dev/ForgeAI-sub001/pkg/toolexecutor"
)

// signatureArgLimit bounds the serialized-argument part of a signature.
// Signatures are compared for equality only, never persisted.
const signatureArgLimit = 500

// signatureOf canonicalizes a turn's tool calls into one comparable string.
func signatureOf(calls []llm.ToolCall) string {
	parts := make([]string, 0, len(calls))
	for _, call := range calls {
		args := toolexecutor.SerializeArgs(call.Arguments)
		if len(args) > signatureArgLimit {
			args = args[:signatureArgLimit]
		}
		parts = append(parts, call.Name+":"+args)
	}
	return strings.Join(parts, ";")
}

// signatureTracker remembers the most recent two turn signatures. The model
// is considered stuck when both entries are identical; a model alternating
// between two distinct calls is never caught by this window.
type signatureTracker struct {
	recent []string
}

// observe records the turn's signature and reports whether the model just
// repeated the previous turn's calls.
func (t *signatureTracker) observe(sig string) bool {
	t.recent = append(t.recent, sig)
	if len(t.recent) > 2 {
		t.recent = t.recent[len(t.recent)-2:]
	}
	return len(t.recent) == 2 && t.recent[0] == t.recent[1]
}
