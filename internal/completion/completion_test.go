package completion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"
)

func samplePrompt() Prompt {
	return Prompt{
		System: "be brief",
		History: []Turn{
			{Speaker: SpeakerHuman, Text: "What is a limit?"},
			{Speaker: SpeakerAI, Text: "A value a function approaches."},
		},
		Question:    "What is a derivative?",
		Temperature: 0.3,
	}
}

type fakeModel struct {
	messages    []llms.MessageContent
	temperature float64
	reply       string
	err         error
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	var opts llms.CallOptions
	for _, opt := range options {
		opt(&opts)
	}
	f.temperature = opts.Temperature

	if f.err != nil {
		return nil, f.err
	}
	if f.reply == "" {
		return &llms.ContentResponse{}, nil
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestLangChainCompleteMapsRoles(t *testing.T) {
	model := &fakeModel{reply: "The rate of change."}
	client := NewLangChainWithModel(model)

	answer, err := client.Complete(context.Background(), samplePrompt())
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if answer != "The rate of change." {
		t.Fatalf("unexpected answer %q", answer)
	}
	if model.temperature != 0.3 {
		t.Fatalf("expected temperature 0.3, got %v", model.temperature)
	}

	wantRoles := []llms.ChatMessageType{
		llms.ChatMessageTypeSystem,
		llms.ChatMessageTypeHuman,
		llms.ChatMessageTypeAI,
		llms.ChatMessageTypeHuman,
	}
	if len(model.messages) != len(wantRoles) {
		t.Fatalf("expected %d messages, got %d", len(wantRoles), len(model.messages))
	}
	for i, want := range wantRoles {
		if model.messages[i].Role != want {
			t.Fatalf("message %d: expected role %s, got %s", i, want, model.messages[i].Role)
		}
	}

	last, ok := model.messages[3].Parts[0].(llms.TextContent)
	if !ok || last.Text != "What is a derivative?" {
		t.Fatalf("expected question as final human turn, got %#v", model.messages[3].Parts[0])
	}
}

func TestLangChainCompleteErrors(t *testing.T) {
	client := NewLangChainWithModel(&fakeModel{err: errors.New("rate limited")})
	if _, err := client.Complete(context.Background(), samplePrompt()); err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}

	client = NewLangChainWithModel(&fakeModel{})
	if _, err := client.Complete(context.Background(), samplePrompt()); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}

func TestHTTPClientComplete(t *testing.T) {
	var received chatAPIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer gsk-test" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cmpl-1","choices":[{"index":0,"message":{"role":"assistant","content":"The rate of change."},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(HTTPConfig{BaseURL: server.URL + "/", APIKey: "gsk-test", Model: "llama-3.3-70b-versatile"})

	answer, err := client.Complete(context.Background(), samplePrompt())
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if answer != "The rate of change." {
		t.Fatalf("unexpected answer %q", answer)
	}

	if received.Model != "llama-3.3-70b-versatile" || received.Temperature != 0.3 {
		t.Fatalf("unexpected payload %+v", received)
	}
	roles := make([]string, 0, len(received.Messages))
	for _, msg := range received.Messages {
		roles = append(roles, msg.Role)
	}
	if got := strings.Join(roles, ","); got != "system,user,assistant,user" {
		t.Fatalf("unexpected roles %s", got)
	}
}

func TestHTTPClientSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Invalid API Key","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer server.Close()

	client := NewHTTPClient(HTTPConfig{BaseURL: server.URL, APIKey: "bad", Model: "m"})

	_, err := client.Complete(context.Background(), samplePrompt())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "Invalid API Key") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestBuildAPIErrorFallsBackToBody(t *testing.T) {
	err := buildAPIError(http.StatusBadGateway, []byte("upstream down"))
	if err.Error() != "chat api error (502): upstream down" {
		t.Fatalf("unexpected error %v", err)
	}

	err = buildAPIError(http.StatusServiceUnavailable, nil)
	if !strings.Contains(err.Error(), "Service Unavailable") {
		t.Fatalf("expected status text, got %v", err)
	}
}
