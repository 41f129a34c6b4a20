package suggest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"

	"codeberg.org/snonux/ankify/internal"
	"codeberg.org/snonux/ankify/internal/logging"
)

const (
	// DefaultModel is used when no model is configured
	DefaultModel = openai.GPT4oMini

	// DefaultMaxTokens is the output token budget per request
	DefaultMaxTokens = 1024
)

// Config holds the LLM settings
type Config struct {
	APIKey    string
	Model     string
	BaseURL   string // OpenAI-compatible endpoint, empty for api.openai.com
	MaxTokens int
}

// Generator produces suggestions with one chat completion per request
type Generator struct {
	config Config
	client *openai.Client
	logger *slog.Logger
}

// NewGenerator creates a generator. A missing API key is not an error here;
// Generate reports it.
func NewGenerator(config Config, logger *slog.Logger) *Generator {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = DefaultMaxTokens
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(config.BaseURL, "/")
	}

	return &Generator{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
		logger: logging.OrDefault(logger),
	}
}

// Model returns the configured model name
func (g *Generator) Model() string {
	return g.config.Model
}

// Generate asks the LLM for suggestions. The Response is always usable; a
// non-nil error is the failure signal and matches ErrGenerationFailed.
func (g *Generator) Generate(ctx context.Context, req Request) (Response, error) {
	resp := Response{SourceText: req.SourceText}

	if utf8.RuneCountInString(req.SourceText) < MinSourceLength {
		g.logger.DebugContext(ctx, "Source text too short, skipping generation",
			"length", utf8.RuneCountInString(req.SourceText))
		return resp, nil
	}

	if g.config.APIKey == "" {
		g.logger.WarnContext(ctx, "No API key configured, skipping generation")
		return resp, ErrMissingAPIKey
	}

	start := time.Now()
	suggestions, err := g.generate(ctx, req)
	resp.ElapsedMs = time.Since(start).Milliseconds()

	if err != nil {
		g.logger.ErrorContext(ctx, "Suggestion generation failed",
			"error", err,
			"elapsed_ms", resp.ElapsedMs,
			"text", internal.Preview(req.SourceText, 40))
		return resp, err
	}

	resp.Suggestions = suggestions
	g.logger.InfoContext(ctx, "Generated suggestions",
		"count", len(suggestions),
		"elapsed_ms", resp.ElapsedMs,
		"model", g.config.Model)
	return resp, nil
}

func (g *Generator) generate(ctx context.Context, req Request) ([]CardSuggestion, error) {
	chat, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     g.config.Model,
		MaxTokens: g.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: SystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: BuildUserPrompt(req),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderCall, err)
	}

	text, err := firstText(chat)
	if err != nil {
		return nil, err
	}
	g.logger.DebugContext(ctx, "Raw LLM reply", "text", internal.Preview(text, 200))

	suggestions, rejected, err := ParseReply(text)
	if err != nil {
		return nil, err
	}

	for _, r := range rejected {
		g.logger.WarnContext(ctx, "Dropped invalid suggestion", "index", r.Index, "error", r.Err)
	}
	for i, s := range suggestions {
		if !s.ConfidenceInRange() {
			g.logger.WarnContext(ctx, "Suggestion confidence outside [0,1]",
				"index", i, "confidence", s.Confidence)
		}
	}

	return suggestions, nil
}

// firstText returns the text of the first choice. Tool calls, function calls
// and non-text parts do not count as text.
func firstText(chat openai.ChatCompletionResponse) (string, error) {
	if len(chat.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrNonTextReply)
	}

	msg := chat.Choices[0].Message
	if len(msg.ToolCalls) > 0 || msg.FunctionCall != nil {
		return "", fmt.Errorf("%w: tool call", ErrNonTextReply)
	}

	text := msg.Content
	if text == "" && len(msg.MultiContent) > 0 {
		part := msg.MultiContent[0]
		if part.Type != openai.ChatMessagePartTypeText {
			return "", fmt.Errorf("%w: %s part", ErrNonTextReply, part.Type)
		}
		text = part.Text
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty content", ErrNonTextReply)
	}
	return text, nil
}
