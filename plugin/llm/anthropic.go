package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	chatMaxTokens    = 2048
	summaryMaxTokens = 4096
)

// AnthropicClient implements Client against the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicClient creates a client for the given model, e.g.
// "claude-sonnet-4-20250514".
func NewAnthropicClient(apiKey, model string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: Anthropic API key is required")
	}
	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}, nil
}

func (c *AnthropicClient) params(system string, messages []Message, maxTokens int64) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages:  convertMessages(messages),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	return params
}

// Generate performs a single non-streaming completion. Used for summary
// extraction.
func (c *AnthropicClient) Generate(ctx context.Context, system string, messages []Message) (string, error) {
	message, err := c.client.Messages.New(ctx, c.params(system, messages, summaryMaxTokens))
	if err != nil {
		return "", fmt.Errorf("llm: anthropic request failed: %w", err)
	}

	var text string
	for _, block := range message.Content {
		if v, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += v.Text
		}
	}
	return text, nil
}

// GenerateStream streams a completion, forwarding text deltas in arrival
// order. The returned channel is closed after a terminal done or error event.
func (c *AnthropicClient) GenerateStream(ctx context.Context, system string, messages []Message) (<-chan StreamEvent, error) {
	stream := c.client.Messages.NewStreaming(ctx, c.params(system, messages, chatMaxTokens))

	events := make(chan StreamEvent, 16)
	go func() {
		defer close(events)

		for stream.Next() {
			event := stream.Current()
			switch ev := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
					events <- StreamEvent{Type: StreamEventTypeDelta, Text: delta.Text}
				}
			}
		}

		if err := stream.Err(); err != nil {
			events <- StreamEvent{
				Type: StreamEventTypeError,
				Err:  fmt.Errorf("llm: anthropic stream failed: %w", err),
			}
			return
		}
		events <- StreamEvent{Type: StreamEventTypeDone}
	}()

	return events, nil
}

func convertMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "assistant":
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return out
}
