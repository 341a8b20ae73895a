package chatgpt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/yanqian/meeting-summarizer/internal/domain/summarizer"
	"github.com/yanqian/meeting-summarizer/pkg/metrics"
)

// Client adapts an OpenAI-compatible chat API to summarizer.ChatClient.
type Client struct {
	api *openai.Client
}

// NewClient constructs a ChatGPT client. An empty baseURL targets api.openai.com.
func NewClient(apiKey, baseURL string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("chatgpt api key cannot be empty")
	}
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{api: openai.NewClientWithConfig(cfg)}, nil
}

// Complete performs a single-shot chat completion.
func (c *Client) Complete(ctx context.Context, req summarizer.CompletionRequest) (summarizer.Completion, error) {
	resp, err := c.api.CreateChatCompletion(ctx, chatRequest(req, false))
	if err != nil {
		return summarizer.Completion{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return summarizer.Completion{}, errors.New("chat completion returned no choices")
	}
	return summarizer.Completion{
		Text: resp.Choices[0].Message.Content,
		Usage: metrics.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// CompleteStream opens a streamed chat completion.
func (c *Client) CompleteStream(ctx context.Context, req summarizer.CompletionRequest) (summarizer.FragmentStream, error) {
	stream, err := c.api.CreateChatCompletionStream(ctx, chatRequest(req, true))
	if err != nil {
		return nil, fmt.Errorf("chat completion stream: %w", err)
	}
	return &fragmentStream{stream: stream}, nil
}

func chatRequest(req summarizer.CompletionRequest, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: req.Temperature,
		Stream:      stream,
	}
}

// fragmentStream yields the content deltas of a chat completion stream.
// Role-only and tool deltas come through as empty fragments.
type fragmentStream struct {
	stream *openai.ChatCompletionStream
}

func (s *fragmentStream) Recv() (string, error) {
	resp, err := s.stream.Recv()
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

func (s *fragmentStream) Close() error {
	s.stream.Close()
	return nil
}
