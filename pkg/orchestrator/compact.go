package orchestrator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/forgeai-dev/ForgeAI-sub001/pkg/toolexecutor"
)

const (
	// compactBudget is the overall character cap on a compacted tool result.
	compactBudget = 4000

	// compactStreamCap bounds each of stdout/stderr for exec-style tools.
	compactStreamCap = 1500

	// compactPageCap bounds extracted page text for fetch-style tools.
	compactPageCap = 2500
)

// compactResult renders a raw tool result into the bounded text form that
// goes back into the conversation. Large payloads waste context and can
// exceed the transport's limits, so each tool kind gets its own truncation.
func compactResult(toolName string, result toolexecutor.Result) string {
	if !result.Success {
		return truncate("Error: "+result.Error, compactBudget)
	}

	var text string
	switch {
	case isWriteTool(toolName):
		// Writes echo back what was written; the model already has it.
		text = fmt.Sprintf("OK: %s completed (%d bytes written)", toolName, outputLength(result.Output))
	case isExecTool(toolName):
		text = compactExecOutput(result.Output)
	case isFetchTool(toolName):
		text = truncate(renderOutput(result.Output), compactPageCap)
	default:
		text = renderOutput(result.Output)
	}

	return truncate(text, compactBudget)
}

func isWriteTool(name string) bool {
	return strings.Contains(name, "write") || strings.Contains(name, "save")
}

func isExecTool(name string) bool {
	return strings.Contains(name, "exec") || strings.Contains(name, "shell") || strings.Contains(name, "run")
}

func isFetchTool(name string) bool {
	return strings.Contains(name, "fetch") || strings.Contains(name, "browse") || strings.Contains(name, "page")
}

// compactExecOutput caps stdout and stderr separately so one noisy stream
// cannot crowd out the other.
func compactExecOutput(output interface{}) string {
	m, ok := output.(map[string]interface{})
	if !ok {
		return renderOutput(output)
	}

	var b strings.Builder
	if stdout, ok := m["stdout"].(string); ok && stdout != "" {
		b.WriteString(truncate(stdout, compactStreamCap))
	}
	if stderr, ok := m["stderr"].(string); ok && stderr != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("stderr: ")
		b.WriteString(truncate(stderr, compactStreamCap))
	}
	if code, ok := m["exit_code"]; ok {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "exit code: %v", code)
	}
	if b.Len() == 0 {
		return renderOutput(output)
	}
	return b.String()
}

func renderOutput(output interface{}) string {
	switch v := output.(type) {
	case nil:
		return "OK"
	case string:
		return v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

func outputLength(output interface{}) int {
	return len(renderOutput(output))
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "\n... [truncated]"
}
