package orchestrator

import (
	"fmt"
	"strings"
	"testing"

	"github.com/forgeai-dev/ForgeAI-sub001/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeHistory(n, charsEach int) []llm.Message {
	msgs := make([]llm.Message, 0, n)
	for i := 0; i < n; i++ {
		role := llm.RoleUser
		if i%2 == 1 {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{
			Role:    role,
			Content: fmt.Sprintf("msg-%03d %s", i, strings.Repeat("x", charsEach)),
		})
	}
	return msgs
}

func TestPruneHistoryShortHistoryUntouched(t *testing.T) {
	// Six or fewer messages are never pruned, even with a tiny budget.
	msgs := makeHistory(6, 4000)
	got := PruneHistory(msgs, 100)
	assert.Equal(t, msgs, got)
}

func TestPruneHistoryUnderBudgetUntouched(t *testing.T) {
	msgs := makeHistory(20, 40)
	got := PruneHistory(msgs, 32768)
	assert.Equal(t, msgs, got)
}

func TestPruneHistoryCountCap(t *testing.T) {
	// Well under the token budget but over the raw count cap: keep the
	// newest 80 with no summary.
	msgs := makeHistory(120, 10)
	got := PruneHistory(msgs, 1_000_000)

	require.Len(t, got, 80)
	assert.Equal(t, msgs[40], got[0])
	assert.Equal(t, msgs[119], got[79])
	assert.NotContains(t, got[0].Content, summaryMarker)
}

func TestPruneHistoryShortOverBudgetUntouched(t *testing.T) {
	// Histories of 7 to 10 messages can blow the token ratio while still
	// being too short to split into a summary prefix plus the 10 newest.
	// They must come back whole, not panic.
	for n := 7; n <= 10; n++ {
		t.Run(fmt.Sprintf("%d messages", n), func(t *testing.T) {
			msgs := makeHistory(n, 4000)
			got := PruneHistory(msgs, 1000)
			assert.Equal(t, msgs, got)
		})
	}
}

func TestPruneHistorySummarizesOverBudget(t *testing.T) {
	// 12 messages of ~400 chars is ~1200 estimated tokens, past 80% of a
	// 1000-token budget.
	msgs := makeHistory(12, 400)
	got := PruneHistory(msgs, 1000)

	require.Len(t, got, 11, "summary plus the 10 newest")

	summary := got[0]
	assert.Equal(t, llm.RoleSystem, summary.Role)
	assert.True(t, strings.HasPrefix(summary.Content, summaryMarker))
	assert.Contains(t, summary.Content, "2 earlier messages compressed")

	// One preview line per pruned message, capped at 200 chars of content.
	lines := strings.Split(summary.Content, "\n")
	require.Len(t, lines, 3, "header plus one line per pruned message")
	assert.True(t, strings.HasPrefix(lines[1], "User: msg-000"))
	assert.True(t, strings.HasPrefix(lines[2], "Assistant: msg-001"))
	for _, line := range lines[1:] {
		assert.LessOrEqual(t, len(line), len("Assistant: ")+prunePreviewChars)
	}

	// The recent tail survives verbatim and in order.
	assert.Equal(t, msgs[2:], got[1:])
}

func TestPruneHistoryRespectsTokenCountOverride(t *testing.T) {
	// Explicit token counts take precedence over the length estimate, so a
	// short-looking history with large recorded counts still gets pruned.
	msgs := makeHistory(12, 10)
	for i := range msgs {
		msgs[i].TokenCount = 500
	}
	got := PruneHistory(msgs, 1000)

	require.Len(t, got, 11)
	assert.True(t, strings.HasPrefix(got[0].Content, summaryMarker))
}

func TestTitleRole(t *testing.T) {
	assert.Equal(t, "User", titleRole("user"))
	assert.Equal(t, "Tool", titleRole("tool"))
	assert.Equal(t, "", titleRole(""))
}
