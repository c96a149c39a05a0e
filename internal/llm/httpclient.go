package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPClient is a net/http implementation of Provider against any
// OpenAI-compatible /chat/completions endpoint, grounded on the teacher's
// internal/llm/completions.go CallLLM helper, restructured into a reusable
// client so SearchContext-aware callers can share one http.Client and base
// URL across a search session.
type HTTPClient struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// NewHTTPClient constructs a client with sane timeouts. baseURL should not
// include the trailing "/chat/completions" path segment.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 120 * time.Second},
	}
}

type completionRequest struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

type completionChoice struct {
	Message      Message `json:"message"`
	Delta        Message `json:"delta"`
	FinishReason string  `json:"finish_reason"`
}

type completionResponse struct {
	Model   string              `json:"model"`
	Choices []completionChoice  `json:"choices"`
	Usage   Usage               `json:"usage"`
	Error   *completionErrorObj `json:"error,omitempty"`
}

type completionErrorObj struct {
	Message string `json:"message"`
}

func (c *HTTPClient) Chat(ctx context.Context, msgs []Message, opts ChatOptions) (Response, error) {
	resp, err := c.do(ctx, msgs, opts, false)
	if err != nil {
		return Response{}, err
	}
	var cr completionResponse
	if err := json.Unmarshal(resp, &cr); err != nil {
		return Response{}, fmt.Errorf("llm: decode completion response: %w", err)
	}
	if cr.Error != nil {
		return Response{}, fmt.Errorf("llm: api error: %s", cr.Error.Message)
	}
	if len(cr.Choices) == 0 {
		return Response{}, fmt.Errorf("llm: no choices in completion response")
	}
	return Response{
		Content:      cr.Choices[0].Message.Content,
		Role:         "assistant",
		Usage:        cr.Usage,
		Model:        cr.Model,
		FinishReason: cr.Choices[0].FinishReason,
	}, nil
}

// ChatStream issues a server-sent-event streamed completion, invoking onDelta
// for each content fragment. The final Response aggregates the full content
// and the usage line the server sends in its terminal chunk (if any).
func (c *HTTPClient) ChatStream(ctx context.Context, msgs []Message, opts ChatOptions, onDelta StreamFunc) (Response, error) {
	body, err := json.Marshal(completionRequest{
		Model:       opts.Model,
		Messages:    msgs,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		return Response{}, fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return Response{}, fmt.Errorf("llm: api status %d: %s", resp.StatusCode, string(b))
	}

	var full strings.Builder
	var usage Usage
	var model, finish string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}
		var chunk completionResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if chunk.Model != "" {
			model = chunk.Model
		}
		if chunk.Usage.Total() > 0 {
			usage = chunk.Usage
		}
		if len(chunk.Choices) > 0 {
			delta := chunk.Choices[0].Delta.Content
			if delta != "" {
				full.WriteString(delta)
				if onDelta != nil {
					onDelta(delta)
				}
			}
			if chunk.Choices[0].FinishReason != "" {
				finish = chunk.Choices[0].FinishReason
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return Response{}, fmt.Errorf("llm: stream read: %w", err)
	}

	return Response{Content: full.String(), Role: "assistant", Usage: usage, Model: model, FinishReason: finish}, nil
}

func (c *HTTPClient) do(ctx context.Context, msgs []Message, opts ChatOptions, stream bool) ([]byte, error) {
	body, err := json.Marshal(completionRequest{
		Model:       opts.Model,
		Messages:    msgs,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("llm: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llm: api status %d: %s", resp.StatusCode, string(b))
	}
	return b, nil
}
