// Package llm provides an OpenAI-compatible chat-completion client used as
// the workflow's external LLM collaborator.
package llm

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/mutchinick/ai-workflow-architect-sub001/domain"
)

const defaultTimeout = 120 * time.Second

// Client invokes a chat-completions endpoint. Failures are classified so
// the queue layer can decide on redelivery: throttling and server errors
// are transient, request rejections are permanent.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// New creates a Client. baseURL and model are required; apiKey may be empty
// for local endpoints.
func New(baseURL, apiKey, model string) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" || strings.TrimSpace(model) == "" {
		return nil, domain.NewFailure(domain.ErrInvalidArguments, false, "llm base url and model are required")
	}
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Invoke sends the system and user prompts and returns the first choice's
// content.
func (c *Client) Invoke(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if strings.TrimSpace(userPrompt) == "" {
		return "", domain.NewFailure(domain.ErrInvalidArguments, false, "user prompt is required")
	}
	msgs := make([]chatMessage, 0, 2)
	if systemPrompt != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: systemPrompt})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: userPrompt})

	body, err := sonic.Marshal(chatRequest{Model: c.model, Messages: msgs})
	if err != nil {
		return "", domain.WrapFailure(domain.ErrInvalidArguments, false, err, "encode chat request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", domain.WrapFailure(domain.ErrInvalidArguments, false, err, "build chat request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.WrapFailure(domain.ErrUpstreamTransient, true, err, "chat request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if transientStatus(resp.StatusCode) {
			return "", domain.NewFailure(domain.ErrUpstreamTransient, true, "chat endpoint returned "+resp.Status+": "+string(detail))
		}
		return "", domain.NewFailure(domain.ErrUpstreamPermanent, false, "chat endpoint rejected request with "+resp.Status+": "+string(detail))
	}

	var out chatResponse
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", domain.WrapFailure(domain.ErrUpstreamTransient, true, err, "decode chat response")
	}
	if len(out.Choices) == 0 {
		return "", domain.NewFailure(domain.ErrUpstreamPermanent, false, "chat response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}

func transientStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}
