package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrNotConfigured is returned when no API key is available.
var ErrNotConfigured = errors.New("OpenAI API key not configured")

// Client is the capability the generation and evaluation engines depend
// on: role-tagged messages in, either one completion or a sequence of
// incremental text fragments out.
//
// Stream normalizes provider chunks into plain text fragments: the
// fragment channel delivers text deltas and closes at stream end; the
// error channel (buffered, closed with the stream) delivers at most one
// stream error. Callers never see raw provider payload shapes.
type Client interface {
	Complete(ctx context.Context, model, systemPrompt, userPrompt string) (string, error)
	Stream(ctx context.Context, model, systemPrompt, userPrompt string) (<-chan string, <-chan error)
}

// OpenAIClient implements Client on the official OpenAI SDK.
type OpenAIClient struct {
	client    openai.Client
	maxTokens int64
}

// NewOpenAIClient builds a client for the given key. An empty baseURL
// uses the public API endpoint.
func NewOpenAIClient(apiKey, baseURL string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{
		client:    openai.NewClient(opts...),
		maxTokens: 1000,
	}, nil
}

func (c *OpenAIClient) params(model, systemPrompt, userPrompt string) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		MaxTokens: openai.Int(c.maxTokens),
	}
}

// Complete performs a single non-streaming chat completion.
func (c *OpenAIClient) Complete(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, c.params(model, systemPrompt, userPrompt))
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Stream performs a streaming chat completion. Fragments arrive on the
// first channel until it closes; the second carries a terminal error, if
// any. Cancelling ctx stops delivery.
func (c *OpenAIClient) Stream(ctx context.Context, model, systemPrompt, userPrompt string) (<-chan string, <-chan error) {
	fragments := make(chan string, 100)
	errs := make(chan error, 1)

	go func() {
		defer close(fragments)
		defer close(errs)

		stream := c.client.Chat.Completions.NewStreaming(ctx, c.params(model, systemPrompt, userPrompt))
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			select {
			case fragments <- delta:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
		if err := stream.Err(); err != nil {
			errs <- fmt.Errorf("stream failed: %w", err)
		}
	}()

	return fragments, errs
}
