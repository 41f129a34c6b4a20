package cli

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func resetViper(t *testing.T) {
	t.Helper()

	originalConfig := viper.New()
	*originalConfig = *viper.GetViper()
	t.Cleanup(func() {
		*viper.GetViper() = *originalConfig
	})

	viper.Reset()
	SetDefaults()
}

func TestLoadSettings_Defaults(t *testing.T) {
	resetViper(t)
	t.Setenv("OPENAI_API_KEY", "")

	s, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}

	if s.Model != "gpt-4o-mini" || s.MaxTokens != 1024 {
		t.Errorf("Unexpected LLM defaults: %s/%d", s.Model, s.MaxTokens)
	}
	if s.AnkiURL != "http://localhost:8765" || s.Deck != DefaultDeck {
		t.Errorf("Unexpected Anki defaults: %s/%s", s.AnkiURL, s.Deck)
	}
	if !s.JournalEnabled || !strings.HasSuffix(s.JournalPath, "journal.db") {
		t.Errorf("Unexpected journal defaults: %v/%s", s.JournalEnabled, s.JournalPath)
	}
	if s.OpenAIKey != "" {
		t.Errorf("Expected no API key, got %q", s.OpenAIKey)
	}

	cfg := s.GeneratorConfig()
	if cfg.Model != s.Model || cfg.MaxTokens != s.MaxTokens {
		t.Errorf("GeneratorConfig does not match settings: %+v", cfg)
	}
}

func TestLoadSettings_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"bad anki url", "anki.url", "not a url"},
		{"empty deck", "anki.deck", ""},
		{"zero max tokens", "llm.max_tokens", 0},
		{"bad base url", "llm.base_url", "::nope"},
		{"journal without path", "journal.path", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper(t)
			viper.Set(tt.key, tt.val)

			if _, err := LoadSettings(); err == nil {
				t.Errorf("Expected validation error for %s=%v", tt.key, tt.val)
			}
		})
	}
}

func TestLoadSettings_JournalDisabledNeedsNoPath(t *testing.T) {
	resetViper(t)
	viper.Set("journal.enabled", false)
	viper.Set("journal.path", "")

	if _, err := LoadSettings(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestGetOpenAIKey(t *testing.T) {
	tests := []struct {
		name      string
		envKey    string
		configKey string
		expected  string
	}{
		{
			name:      "from environment",
			envKey:    "env-test-key",
			configKey: "config-test-key",
			expected:  "env-test-key",
		},
		{
			name:      "from config when no env",
			envKey:    "",
			configKey: "config-test-key",
			expected:  "config-test-key",
		},
		{
			name:      "empty when neither set",
			envKey:    "",
			configKey: "",
			expected:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper(t)
			t.Setenv("OPENAI_API_KEY", tt.envKey)

			// Set up config
			if tt.configKey != "" {
				viper.Set("llm.openai_key", tt.configKey)
			}

			got := GetOpenAIKey()
			if got != tt.expected {
				t.Errorf("GetOpenAIKey() = %v, want %v", got, tt.expected)
			}
		})
	}
}
