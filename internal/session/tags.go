package session

import (
	"net/url"
	"strings"

	"codeberg.org/snonux/ankify/internal/capture"
)

// ProvenanceTag is added to every note created by ankify
const ProvenanceTag = "ankify"

// DeriveTags returns the provenance tag plus source:<app> and url:<host>
// tags when the context carries them. A URL without a parsable host adds no
// tag.
func DeriveTags(c capture.Context) []string {
	tags := []string{ProvenanceTag}

	if app := strings.Fields(c.SourceAppName); len(app) > 0 {
		tags = append(tags, "source:"+strings.Join(app, "-"))
	}

	if host := hostOf(c.SourceURL); host != "" {
		tags = append(tags, "url:"+strings.ReplaceAll(host, ".", "-"))
	}

	return tags
}

func hostOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
