package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

type LangChainConfig struct {
	Model   string // e.g. "llama-3.3-70b-versatile"
	BaseURL string // OpenAI-compatible endpoint, Groq by default
	APIKey  string
	Timeout time.Duration
}

// LangChain sends prompts through a langchaingo model.
type LangChain struct {
	llm llms.Model
}

func NewLangChain(cfg LangChainConfig) (*LangChain, error) {
	opts := []openai.Option{
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, openai.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create langchain openai client: %w", err)
	}

	return &LangChain{llm: llm}, nil
}

// NewLangChainWithModel wraps an already constructed model.
func NewLangChainWithModel(model llms.Model) *LangChain {
	return &LangChain{llm: model}
}

func (c *LangChain) Complete(ctx context.Context, prompt Prompt) (string, error) {
	resp, err := c.llm.GenerateContent(ctx, messageContents(prompt), llms.WithTemperature(prompt.Temperature))
	if err != nil {
		return "", fmt.Errorf("langchain generate: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned from LLM")
	}

	return resp.Choices[0].Content, nil
}

func messageContents(prompt Prompt) []llms.MessageContent {
	contents := make([]llms.MessageContent, 0, len(prompt.History)+2)
	if prompt.System != "" {
		contents = append(contents, llms.TextParts(llms.ChatMessageTypeSystem, prompt.System))
	}

	for _, turn := range prompt.History {
		msgType := llms.ChatMessageTypeHuman
		if turn.Speaker == SpeakerAI {
			msgType = llms.ChatMessageTypeAI
		}
		contents = append(contents, llms.TextParts(msgType, turn.Text))
	}

	return append(contents, llms.TextParts(llms.ChatMessageTypeHuman, prompt.Question))
}
