package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultHTTPTimeout = 60 * time.Second

type httpDoer interface {
	Do(*http.Request) (*http.Response, error)
}

type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// HTTPClient calls an OpenAI-compatible chat/completions endpoint directly.
type HTTPClient struct {
	baseURL string
	apiKey  string
	model   string
	client  httpDoer
}

func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatAPIRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatAPIChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type apiError struct {
	Code    any    `json:"code,omitempty"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
}

type chatAPIResponse struct {
	ID      string          `json:"id"`
	Choices []chatAPIChoice `json:"choices"`
	Error   *apiError       `json:"error,omitempty"`
}

func (c *HTTPClient) Complete(ctx context.Context, prompt Prompt) (string, error) {
	payload := chatAPIRequest{
		Model:       c.model,
		Messages:    chatMessages(prompt),
		Temperature: prompt.Temperature,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+c.apiKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := c.client.Do(request)
	if err != nil {
		return "", fmt.Errorf("call chat api: %w", err)
	}
	defer response.Body.Close()

	respBody, err := io.ReadAll(response.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", buildAPIError(response.StatusCode, respBody)
	}

	var apiResp chatAPIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}

	if apiResp.Error != nil && apiResp.Error.Message != "" {
		return "", fmt.Errorf("chat api error: %s", apiResp.Error.Message)
	}

	if len(apiResp.Choices) == 0 {
		return "", errors.New("chat response contained no choices")
	}

	return apiResp.Choices[0].Message.Content, nil
}

func chatMessages(prompt Prompt) []chatMessage {
	messages := make([]chatMessage, 0, len(prompt.History)+2)
	if prompt.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: prompt.System})
	}

	for _, turn := range prompt.History {
		role := "user"
		if turn.Speaker == SpeakerAI {
			role = "assistant"
		}
		messages = append(messages, chatMessage{Role: role, Content: turn.Text})
	}

	return append(messages, chatMessage{Role: "user", Content: prompt.Question})
}

func buildAPIError(statusCode int, body []byte) error {
	var envelope struct {
		Error *apiError `json:"error,omitempty"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		if message := strings.TrimSpace(envelope.Error.Message); message != "" {
			if envelope.Error.Type != "" {
				return fmt.Errorf("chat api error (%d, %s): %s", statusCode, envelope.Error.Type, message)
			}
			return fmt.Errorf("chat api error (%d): %s", statusCode, message)
		}
	}

	snippet := strings.TrimSpace(string(body))
	if snippet == "" {
		snippet = http.StatusText(statusCode)
	}
	if len(snippet) > 256 {
		snippet = snippet[:256]
	}

	return fmt.Errorf("chat api error (%d): %s", statusCode, snippet)
}
