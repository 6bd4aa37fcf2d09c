package interview

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/amani-glitch/botle-collector/plugin/llm"
	"github.com/amani-glitch/botle-collector/store"
)

const summaryTimeout = 2 * time.Minute

// generateSummary asks the model for the structured debrief over the full
// transcript. A response that fails to parse as the expected JSON shape is
// preserved verbatim under the raw field rather than discarded.
func (c *Coordinator) generateSummary(ctx context.Context, user store.UserProfile, history []*store.Message) (*store.Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, summaryTimeout)
	defer cancel()

	messages := toLLMMessages(history)
	messages = append(messages, llm.Message{Role: "user", Content: summaryInstruction})

	text, err := c.llm.Generate(ctx, SystemPrompt(user), messages)
	if err != nil {
		return nil, err
	}
	return ParseSummary(text), nil
}

// ParseSummary decodes model output into a structured summary. Models often
// wrap JSON in a fenced block; the fence is stripped before decoding. Any
// text that still fails to decode becomes a raw-text summary.
func ParseSummary(text string) *store.Summary {
	cleaned := strings.TrimSpace(text)
	if after, ok := strings.CutPrefix(cleaned, "```json"); ok {
		cleaned = after
	} else if after, ok := strings.CutPrefix(cleaned, "```"); ok {
		cleaned = after
	}
	cleaned = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(cleaned), "```"))

	summary := &store.Summary{}
	if err := json.Unmarshal([]byte(cleaned), summary); err != nil {
		return &store.Summary{Raw: text}
	}
	return summary
}
