package testutil

import (
	"os"
	"strings"
	"testing"
)

// AssertFileExists checks if a file exists
func AssertFileExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("Expected file to exist: %s", path)
	}
}

// AssertFileNotExists checks if a file does not exist
func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); err == nil {
		t.Errorf("Expected file to not exist: %s", path)
	}
}

// AssertFileContains checks if a file contains a substring
func AssertFileContains(t *testing.T, path string, substring string) {
	t.Helper()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}

	if !strings.Contains(string(content), substring) {
		t.Errorf("File %s does not contain expected substring: %q\nContent: %q", path, substring, content)
	}
}

// LongText is a clipboard snippet comfortably above the generation threshold
const LongText = "Photosynthesis converts light energy into chemical energy stored in glucose."

// SuggestionsJSON is a well-formed provider reply with two suggestions
const SuggestionsJSON = `{
  "suggestions": [
    {
      "front": "What does photosynthesis convert light energy into?",
      "back": "Chemical energy stored in glucose",
      "confidence": 0.95,
      "reasoning": "Tests the core definition"
    },
    {
      "front": "Where is the energy from photosynthesis stored?",
      "back": "In glucose",
      "confidence": 0.8
    }
  ]
}`
