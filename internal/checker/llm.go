package checker

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/tidwall/gjson"
)

// defaultLLMModel is used when no model is configured.
const defaultLLMModel = "claude-3-5-haiku-latest"

const llmSystemPrompt = `You are a grammar and style checker. Given a text,
respond with ONLY a JSON object of the form
{"matches":[{"message":"...","offset":0,"length":3,"replacements":["..."]}]}
where offset and length count Unicode code points into the text exactly as
submitted. Report at most 25 findings. If the text has no issues respond
with {"matches":[]}.`

// LLM is a Client backed by an Anthropic model. It returns the same
// Finding shape as the LanguageTool client, with offsets already in
// code points, so the engine treats both providers identically.
type LLM struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// LLMOption configures an LLM client.
type LLMOption func(*LLM)

// WithModel sets the model name.
func WithModel(model string) LLMOption {
	return func(c *LLM) {
		c.model = anthropic.Model(model)
	}
}

// WithMaxTokens sets the response token budget.
func WithMaxTokens(n int64) LLMOption {
	return func(c *LLM) {
		c.maxTokens = n
	}
}

// NewLLM creates an LLM-backed checker client.
func NewLLM(apiKey string, opts ...LLMOption) *LLM {
	c := &LLM{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     anthropic.Model(defaultLLMModel),
		maxTokens: 2048,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Check implements Client.
func (c *LLM) Check(ctx context.Context, text string) ([]Finding, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: llmSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return parseLLMMatches(sb.String(), text)
}

// parseLLMMatches extracts findings from a model response. Offsets are
// validated against the submitted text; out-of-range findings are
// dropped rather than trusted.
func parseLLMMatches(payload, text string) ([]Finding, error) {
	// Models occasionally wrap JSON in a code fence; strip it.
	payload = strings.TrimSpace(payload)
	payload = strings.TrimPrefix(payload, "```json")
	payload = strings.TrimPrefix(payload, "```")
	payload = strings.TrimSuffix(payload, "```")

	if !gjson.Valid(payload) {
		return nil, ErrMalformedResponse
	}

	matches := gjson.Get(payload, "matches")
	if !matches.Exists() || !matches.IsArray() {
		return nil, ErrMalformedResponse
	}

	textLen := len([]rune(text))

	var findings []Finding
	matches.ForEach(func(_, m gjson.Result) bool {
		offset := int(m.Get("offset").Int())
		length := int(m.Get("length").Int())
		if offset < 0 || length < 0 || offset+length > textLen {
			return true
		}

		var replacements []string
		m.Get("replacements").ForEach(func(_, r gjson.Result) bool {
			replacements = append(replacements, r.String())
			return true
		})

		findings = append(findings, Finding{
			Message:      m.Get("message").String(),
			Offset:       offset,
			Length:       length,
			Replacements: replacements,
		})
		return true
	})

	return findings, nil
}
