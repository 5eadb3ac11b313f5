package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/forgeai-dev/ForgeAI-sub001/pkg/llm"
)

const (
	// pruneMinHistory is the history length under which pruning is a no-op.
	pruneMinHistory = 6

	// pruneKeepRecent is how many of the newest messages survive
	// summarization untouched.
	pruneKeepRecent = 10

	// pruneCountTrigger and pruneCountKeep bound raw message count when the
	// token estimate is still comfortably under budget.
	pruneCountTrigger = 100
	pruneCountKeep    = 80

	// pruneTokenRatio of the context budget is where summarization kicks in.
	pruneTokenRatio = 0.8

	// prunePreviewChars is how much of each pruned message the summary keeps.
	prunePreviewChars = 200
)

// summaryMarker prefixes the synthetic summary message so it is
// recognizable in later prompts.
const summaryMarker = "[Conversation summary"

// PruneHistory bounds a session's history once per completed turn. It never
// reorders messages; it only collapses a contiguous prefix into a single
// summary message.
func PruneHistory(messages []llm.Message, maxContextTokens int) []llm.Message {
	if len(messages) <= pruneMinHistory {
		return messages
	}

	estimate := 0
	for _, msg := range messages {
		estimate += llm.EstimateTokens(msg)
	}

	if float64(estimate) < pruneTokenRatio*float64(maxContextTokens) {
		// Comfortably under budget: only enforce the absolute count cap.
		if len(messages) > pruneCountTrigger {
			return messages[len(messages)-pruneCountKeep:]
		}
		return messages
	}

	if len(messages) <= pruneKeepRecent {
		// Too short to split into prefix+recent; summarizing would drop
		// nothing, so leave the history alone.
		return messages
	}

	prefix := messages[:len(messages)-pruneKeepRecent]
	recent := messages[len(messages)-pruneKeepRecent:]

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d earlier messages compressed]\n", summaryMarker, len(prefix))
	for _, msg := range prefix {
		content := msg.Content
		if len(content) > prunePreviewChars {
			content = content[:prunePreviewChars]
		}
		fmt.Fprintf(&b, "%s: %s\n", titleRole(msg.Role), content)
	}

	summary := llm.Message{
		Role:      llm.RoleSystem,
		Content:   strings.TrimRight(b.String(), "\n"),
		Timestamp: time.Now(),
	}

	pruned := make([]llm.Message, 0, len(recent)+1)
	pruned = append(pruned, summary)
	pruned = append(pruned, recent...)
	return pruned
}

func titleRole(role string) string {
	if role == "" {
		return role
	}
	return strings.ToUpper(role[:1]) + role[1:]
}
