package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements Provider for Anthropic Claude
type AnthropicProvider struct {
	client anthropic.Client
	apiKey string
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(apiKey string) *AnthropicProvider {
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		apiKey: apiKey,
	}
}

// Name returns the provider identifier
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// DisplayName returns the human-readable provider name
func (p *AnthropicProvider) DisplayName() string {
	return "Anthropic Claude"
}

// Configured reports whether an API key is set
func (p *AnthropicProvider) Configured() bool {
	return p.apiKey != ""
}

// Chat makes an API call to Anthropic Claude
func (p *AnthropicProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return nil, err
	}

	response, err := p.client.Messages.New(ctx, *params)
	if err != nil {
		return nil, p.wrapError(err)
	}

	return p.parseResponse(response, req.Model)
}

// ChatStream makes a streaming API call, forwarding text deltas as they
// arrive and finishing with the accumulated response.
func (p *AnthropicProvider) ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamEvent, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return nil, err
	}

	events := make(chan StreamEvent)

	go func() {
		defer close(events)

		stream := p.client.Messages.NewStreaming(ctx, *params)
		message := anthropic.Message{}

		for stream.Next() {
			event := stream.Current()
			if err := message.Accumulate(event); err != nil {
				emitEvent(ctx, events, StreamEvent{Err: p.wrapError(err)})
				return
			}

			switch eventVariant := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch deltaVariant := eventVariant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if !emitEvent(ctx, events, StreamEvent{Chunk: deltaVariant.Text}) {
						return
					}
				}
			}
		}

		if err := stream.Err(); err != nil {
			emitEvent(ctx, events, StreamEvent{Err: p.wrapError(err)})
			return
		}

		final, err := p.parseResponse(&message, req.Model)
		if err != nil {
			emitEvent(ctx, events, StreamEvent{Err: err})
			return
		}
		emitEvent(ctx, events, StreamEvent{Final: final})
	}()

	return events, nil
}

// buildParams converts a neutral request into Anthropic message params
func (p *AnthropicProvider) buildParams(req ChatRequest) (*anthropic.MessageNewParams, error) {
	anthropicMessages := []anthropic.MessageParam{}

	for _, msg := range req.Messages {
		switch {
		case msg.Role == RoleSystem:
			continue // System messages handled separately

		case msg.Role == RoleTool:
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false),
			))

		case msg.Role == RoleAssistant && len(msg.ToolCalls) > 0:
			blocks := []anthropic.ContentBlockParamUnion{}
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, tc.Arguments, tc.Name))
			}
			anthropicMessages = append(anthropicMessages, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: blocks,
			})

		case msg.Role == RoleAssistant:
			anthropicMessages = append(anthropicMessages, anthropic.MessageParam{
				Role: anthropic.MessageParamRoleAssistant,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewTextBlock(msg.Content),
				},
			})

		default:
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := &anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  anthropicMessages,
		MaxTokens: int64(maxTokens),
	}

	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.System},
		}
	}

	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	if len(req.Tools) > 0 {
		tools := []anthropic.ToolUnionParam{}
		for _, tool := range req.Tools {
			toolParam := anthropic.ToolParam{
				Name:        tool.Name,
				Description: anthropic.String(tool.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: tool.Parameters["properties"],
				},
			}

			if required, ok := tool.Parameters["required"].([]string); ok {
				toolParam.InputSchema.Required = required
			} else if required, ok := tool.Parameters["required"].([]interface{}); ok {
				strSlice := make([]string, 0, len(required))
				for _, v := range required {
					if s, ok := v.(string); ok {
						strSlice = append(strSlice, s)
					}
				}
				toolParam.InputSchema.Required = strSlice
			}

			tools = append(tools, anthropic.ToolUnionParam{OfTool: &toolParam})
		}
		params.Tools = tools
	}

	return params, nil
}

// parseResponse extracts content, thinking and tool calls from a response
func (p *AnthropicProvider) parseResponse(response *anthropic.Message, model string) (*ChatResponse, error) {
	content := ""
	thinking := ""
	toolCalls := []ToolCall{}

	for _, block := range response.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			content += b.Text
		case anthropic.ThinkingBlock:
			thinking += b.Thinking
		case anthropic.ToolUseBlock:
			var args map[string]interface{}
			if err := json.Unmarshal([]byte(b.JSON.Input.Raw()), &args); err != nil {
				return nil, fmt.Errorf("failed to parse tool input: %w", err)
			}
			toolCalls = append(toolCalls, ToolCall{
				ID:        b.ID,
				Name:      b.Name,
				Arguments: args,
			})
		}
	}

	return &ChatResponse{
		Content:   content,
		Thinking:  thinking,
		ToolCalls: toolCalls,
		Usage: &Usage{
			PromptTokens:     int(response.Usage.InputTokens),
			CompletionTokens: int(response.Usage.OutputTokens),
			TotalTokens:      int(response.Usage.InputTokens + response.Usage.OutputTokens),
		},
		Provider: p.Name(),
		Model:    model,
	}, nil
}

// wrapError converts SDK errors into ProviderError with a retryable flag
func (p *AnthropicProvider) wrapError(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return NewProviderError(p.Name(), apierr.StatusCode, err)
	}
	return NewProviderError(p.Name(), 0, err)
}
