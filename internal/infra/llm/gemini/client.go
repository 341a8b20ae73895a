package gemini

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/yanqian/meeting-summarizer/internal/domain/summarizer"
	"github.com/yanqian/meeting-summarizer/pkg/metrics"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature float32 `json:"temperature"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

func (r generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Client talks to the Gemini generateContent REST API.
type Client struct {
	http *resty.Client
}

// NewClient constructs a Gemini client. An empty baseURL targets the public endpoint.
func NewClient(apiKey, baseURL string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key cannot be empty")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("x-goog-api-key", apiKey).
		SetHeader("Content-Type", "application/json")
	return &Client{http: rc}, nil
}

// Complete calls models/{model}:generateContent.
func (c *Client) Complete(ctx context.Context, req summarizer.CompletionRequest) (summarizer.Completion, error) {
	var (
		out    generateResponse
		failed apiError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(newGenerateRequest(req)).
		SetResult(&out).
		SetError(&failed).
		Post(modelPath(req.Model, "generateContent"))
	if err != nil {
		return summarizer.Completion{}, fmt.Errorf("gemini generate: %w", err)
	}
	if resp.IsError() {
		return summarizer.Completion{}, statusError(resp.StatusCode(), failed.Error.Message)
	}
	return summarizer.Completion{
		Text: out.text(),
		Usage: metrics.TokenUsage{
			PromptTokens:     out.UsageMetadata.PromptTokenCount,
			CompletionTokens: out.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      out.UsageMetadata.TotalTokenCount,
		},
	}, nil
}

// CompleteStream calls models/{model}:streamGenerateContent with SSE framing.
func (c *Client) CompleteStream(ctx context.Context, req summarizer.CompletionRequest) (summarizer.FragmentStream, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetQueryParam("alt", "sse").
		SetHeader("Accept", "text/event-stream").
		SetBody(newGenerateRequest(req)).
		Post(modelPath(req.Model, "streamGenerateContent"))
	if err != nil {
		return nil, fmt.Errorf("gemini stream: %w", err)
	}
	body := resp.RawBody()
	if resp.StatusCode() >= 300 {
		defer body.Close()
		payload, _ := io.ReadAll(io.LimitReader(body, 4<<10))
		var failed apiError
		_ = json.Unmarshal(payload, &failed)
		return nil, statusError(resp.StatusCode(), failed.Error.Message)
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	return &sseStream{scanner: scanner, body: body}, nil
}

func newGenerateRequest(req summarizer.CompletionRequest) generateRequest {
	return generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: req.Prompt}}}},
		GenerationConfig: generationConfig{Temperature: req.Temperature},
	}
}

func modelPath(model, method string) string {
	return "/models/" + strings.TrimPrefix(model, "models/") + ":" + method
}

func statusError(status int, message string) error {
	if message == "" {
		return fmt.Errorf("gemini request failed: status=%d", status)
	}
	return fmt.Errorf("gemini request failed: status=%d message=%s", status, message)
}

// sseStream decodes `data:` frames of a streamGenerateContent response.
type sseStream struct {
	scanner *bufio.Scanner
	body    io.ReadCloser
}

func (s *sseStream) Recv() (string, error) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		var frame generateResponse
		if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &frame); err != nil {
			return "", fmt.Errorf("decode stream frame: %w", err)
		}
		return frame.text(), nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *sseStream) Close() error {
	return s.body.Close()
}
