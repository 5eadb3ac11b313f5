package daemon

import (
	"context"
	"fmt"

	"github.com/forgeai-dev/ForgeAI-sub001/pkg/toolexecutor"
)

// registerBuiltinTools installs the tools every deployment gets. Real tool
// suites are registered by the embedding host; echo exists so a fresh
// install can exercise the full loop end to end.
func registerBuiltinTools(executor *toolexecutor.Executor) error {
	return executor.Register(toolexecutor.ToolDefinition{
		Name:        "echo",
		Description: "Echo the given text back. Useful for connectivity checks.",
		Parameters: []toolexecutor.ToolParameter{
			{
				Name:        "text",
				Type:        "string",
				Description: "Text to echo back",
				Required:    true,
			},
		},
		Handler: func(_ context.Context, args map[string]interface{}) (interface{}, error) {
			text, ok := args["text"].(string)
			if !ok {
				return nil, fmt.Errorf("text must be a string")
			}
			return text, nil
		},
	})
}
