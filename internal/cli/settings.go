package cli

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"codeberg.org/snonux/ankify/internal/ankiconnect"
	"codeberg.org/snonux/ankify/internal/journal"
	"codeberg.org/snonux/ankify/internal/suggest"
)

const (
	// DefaultDeck receives new cards unless configured otherwise
	DefaultDeck = "Ankify Your Life"

	// DefaultLogLevel is used when log.level is not set
	DefaultLogLevel = "info"
)

// Settings is the resolved configuration
type Settings struct {
	OpenAIKey      string
	Model          string `validate:"required"`
	BaseURL        string `validate:"omitempty,url"`
	MaxTokens      int    `validate:"gt=0,lte=32768"`
	AnkiURL        string `validate:"required,url"`
	Deck           string `validate:"required"`
	JournalEnabled bool
	JournalPath    string `validate:"required_if=JournalEnabled true"`
	LogLevel       string
}

// SetDefaults registers the default value of every configuration key
func SetDefaults() {
	viper.SetDefault("llm.model", suggest.DefaultModel)
	viper.SetDefault("llm.base_url", "")
	viper.SetDefault("llm.max_tokens", suggest.DefaultMaxTokens)
	viper.SetDefault("anki.url", ankiconnect.DefaultURL)
	viper.SetDefault("anki.deck", DefaultDeck)
	viper.SetDefault("journal.enabled", true)
	viper.SetDefault("journal.path", journal.DefaultPath())
	viper.SetDefault("log.level", DefaultLogLevel)
}

// LoadSettings resolves the configuration from flags, environment, config
// file and defaults, and validates it
func LoadSettings() (*Settings, error) {
	s := &Settings{
		OpenAIKey:      GetOpenAIKey(),
		Model:          viper.GetString("llm.model"),
		BaseURL:        viper.GetString("llm.base_url"),
		MaxTokens:      viper.GetInt("llm.max_tokens"),
		AnkiURL:        viper.GetString("anki.url"),
		Deck:           viper.GetString("anki.deck"),
		JournalEnabled: viper.GetBool("journal.enabled"),
		JournalPath:    viper.GetString("journal.path"),
		LogLevel:       viper.GetString("log.level"),
	}

	if err := validator.New().Struct(s); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return s, nil
}

// GeneratorConfig returns the suggestion generator settings
func (s *Settings) GeneratorConfig() suggest.Config {
	return suggest.Config{
		APIKey:    s.OpenAIKey,
		Model:     s.Model,
		BaseURL:   s.BaseURL,
		MaxTokens: s.MaxTokens,
	}
}

// GetOpenAIKey retrieves the OpenAI API key from environment or config
func GetOpenAIKey() string {
	// First check environment variable
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}

	// Then check config file
	return viper.GetString("llm.openai_key")
}
