// Package summarize generates natural-language explanations of papers and of
// the connections between them, using an OpenAI chat model. Without an API
// key the client stays disabled and answers with a fixed notice instead of
// failing requests.
package summarize

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	// DefaultModel is the chat model used unless configured otherwise.
	DefaultModel = "gpt-4o-mini"

	connectionMaxTokens = 150
	explainMaxTokens    = 600

	// DisabledSummary is returned by SummarizeConnection when no API key is
	// configured.
	DisabledSummary = "OpenAI API Key not found. Please set OPENAI_API_KEY environment variable."

	// DisabledExplanation is returned by ExplainAbstract when no API key is
	// configured.
	DisabledExplanation = "OpenAI API Key not found."
)

const connectionPrompt = `Analyze the relationship between the following two research paper abstracts.

Paper A Abstract:
%s

Paper B Abstract:
%s

Explain specifically why Paper B is related to Paper A. Does it refute, extend, or use the methodology? be concise.`

const explainPrompt = `Explain the following research paper abstract in a clear, structured way for a general audience.

Structure your response as follows:
- **One-sentence Summary**: A high-level overview.
- **Key Contributions**: Use bullet points to list the main findings or methods.
- **Impact**: Briefly explain why this matters.

Abstract:
%s`

// Client wraps the chat completions API for the two summary prompts.
type Client struct {
	api     openai.Client
	model   string
	enabled bool
}

// New creates a summarizer. An empty API key yields a disabled client whose
// methods return fixed notices instead of calling the API.
func New(apiKey, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	c := &Client{model: model}
	if apiKey != "" {
		c.api = openai.NewClient(option.WithAPIKey(apiKey))
		c.enabled = true
	}
	return c
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.enabled
}

// SummarizeConnection explains how the target paper relates to the source
// paper, given their abstracts.
func (c *Client) SummarizeConnection(ctx context.Context, sourceAbstract, targetAbstract string) (string, error) {
	if !c.enabled {
		return DisabledSummary, nil
	}
	prompt := fmt.Sprintf(connectionPrompt, sourceAbstract, targetAbstract)
	return c.complete(ctx, prompt, connectionMaxTokens)
}

// ExplainAbstract produces a structured plain-language explanation of an
// abstract.
func (c *Client) ExplainAbstract(ctx context.Context, abstract string) (string, error) {
	if !c.enabled {
		return DisabledExplanation, nil
	}
	prompt := fmt.Sprintf(explainPrompt, abstract)
	return c.complete(ctx, prompt, explainMaxTokens)
}

func (c *Client) complete(ctx context.Context, prompt string, maxTokens int64) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens: openai.Int(maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
