package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai"
)

// FakeLLM is an in-process OpenAI-compatible chat completion endpoint
type FakeLLM struct {
	Server *httptest.Server

	mu       sync.Mutex
	requests []openai.ChatCompletionRequest
	content  string
	toolCall bool
	status   int
	errBody  string
	models   []string
}

// NewFakeLLM starts a fake endpoint replying with content as the assistant
// message. It is closed with the test.
func NewFakeLLM(t *testing.T, content string) *FakeLLM {
	t.Helper()

	f := &FakeLLM{
		content: content,
		models:  []string{"gpt-4o-mini", "gpt-4o", "tts-1", "dall-e-3", "whisper-1"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", f.serveChat)
	mux.HandleFunc("/v1/models", f.serveModels)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// BaseURL is the value for an OpenAI client config's BaseURL
func (f *FakeLLM) BaseURL() string {
	return f.Server.URL + "/v1"
}

// SetContent changes the assistant reply text
func (f *FakeLLM) SetContent(content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.content = content
	f.toolCall = false
	f.status = 0
}

// SetToolCallReply makes the endpoint answer with a tool call and no text
func (f *FakeLLM) SetToolCallReply() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toolCall = true
}

// SetError makes the endpoint fail with the given status and API error message
func (f *FakeLLM) SetError(status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
	f.errBody = message
}

// Requests returns a copy of all chat completion requests received
func (f *FakeLLM) Requests() []openai.ChatCompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]openai.ChatCompletionRequest{}, f.requests...)
}

// RequestCount returns the number of chat completion requests received
func (f *FakeLLM) RequestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *FakeLLM) serveChat(w http.ResponseWriter, r *http.Request) {
	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	content, toolCall, status, errBody := f.content, f.toolCall, f.status, f.errBody
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	if status != 0 {
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": errBody, "type": "server_error"},
		})
		return
	}

	msg := openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: content,
	}
	if toolCall {
		msg.Content = ""
		msg.ToolCalls = []openai.ToolCall{{
			ID:   "call_1",
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      "make_cards",
				Arguments: "{}",
			},
		}}
	}

	json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
		ID:      "chatcmpl-test",
		Object:  "chat.completion",
		Created: 1700000000,
		Model:   req.Model,
		Choices: []openai.ChatCompletionChoice{{
			Index:        0,
			Message:      msg,
			FinishReason: openai.FinishReasonStop,
		}},
	})
}

func (f *FakeLLM) serveModels(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	ids := append([]string{}, f.models...)
	f.mu.Unlock()

	list := openai.ModelsList{}
	for _, id := range ids {
		list.Models = append(list.Models, openai.Model{ID: id, Object: "model", OwnedBy: "openai"})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// Fenced wraps payload in a markdown code fence with an optional language tag
func Fenced(payload, lang string) string {
	return "```" + lang + "\n" + strings.TrimSpace(payload) + "\n```"
}
