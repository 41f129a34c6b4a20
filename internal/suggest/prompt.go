package suggest

import "strings"

// SystemPrompt carries the card-authoring guidelines and the reply shape
const SystemPrompt = `You are an expert at writing high-quality Anki flashcards. Analyse the text you are given and propose question/answer pairs that work well for spaced repetition.

Guidelines:
1. Keep cards atomic: each card tests exactly ONE concept
2. Questions must be clear and unambiguous
3. Answers must be concise (1-3 sentences at most)
4. Vary the question type (what, why, how, when, ...)
5. Test understanding rather than rote memorisation
6. Propose 2-4 cards and rank them by confidence (how good the card is)

Return ONLY a JSON object with this structure:
{
  "suggestions": [
    {
      "front": "Question here?",
      "back": "Answer here",
      "confidence": 0.95,
      "reasoning": "Why this is a good card"
    }
  ]
}`

// BuildUserPrompt embeds the source text verbatim, followed by the source URL
// and application as hints when they are known.
func BuildUserPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("Generate 2-4 Anki flashcards from this text:\n\n")
	b.WriteString(req.SourceText)
	b.WriteString("\n")

	if c := req.Context; c != nil {
		if url := strings.TrimSpace(c.SourceURL); url != "" {
			b.WriteString("\nSource URL: " + url)
		}
		if app := strings.TrimSpace(c.SourceAppName); app != "" {
			b.WriteString("\nSource App: " + app)
		}
	}

	b.WriteString("\n\nReturn suggestions as JSON only.")
	return b.String()
}
