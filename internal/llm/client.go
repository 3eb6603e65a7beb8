// Package llm wraps the language model used to plan news queries, score
// headline tone and write the analysis reports.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Adda-Baaj/stock-pulse/internal/logger"
)

const (
	DefaultModel     = "claude-haiku-4-5"
	DefaultMaxTokens = 1024

	truncatedNote = "\n\n(Note: response may be truncated due to token limits.)"
)

// ErrMissingAPIKey is returned when no Anthropic key is configured.
var ErrMissingAPIKey = errors.New("ANTHROPIC_API_KEY is not set")

// Prompt is a single-turn completion request.
type Prompt struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Client completes prompts.
type Client interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// ClaudeClient is a Client backed by the Anthropic Messages API.
type ClaudeClient struct {
	client    anthropic.Client
	model     string
	maxTokens int
	timeout   time.Duration
	log       logger.Logger
}

// ClaudeOptions configures NewClaudeClient.
type ClaudeOptions struct {
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	// BaseURL overrides the API endpoint.
	BaseURL string
}

// NewClaudeClient builds a Claude backed Client.
func NewClaudeClient(opts ClaudeOptions, log logger.Logger) (*ClaudeClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(opts.Model) == "" {
		opts.Model = DefaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &ClaudeClient{
		client:    anthropic.NewClient(reqOpts...),
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		timeout:   opts.Timeout,
		log:       logger.Ensure(log),
	}, nil
}

// Complete sends the prompt and returns the concatenated text blocks.
func (c *ClaudeClient) Complete(ctx context.Context, p Prompt) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(p.User)),
		},
		Temperature: anthropic.Float(p.Temperature),
	}
	if p.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: p.System}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude messages: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", errors.New("empty response from claude")
	}

	out := text.String()
	if resp.StopReason == anthropic.StopReasonMaxTokens {
		c.log.WarnObj("llm response hit max tokens", "llm_truncated", map[string]any{
			"model":      c.model,
			"max_tokens": maxTokens,
		})
		out += truncatedNote
	}

	c.log.DebugObj("llm completion", "llm_complete", map[string]any{
		"model":         c.model,
		"input_tokens":  resp.Usage.InputTokens,
		"output_tokens": resp.Usage.OutputTokens,
	})
	return out, nil
}
