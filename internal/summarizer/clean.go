package summarizer

import (
	"regexp"
	"strings"
)

// Markers some providers prepend before the actual answer.
var responseMarkers = []string{
	"**💬 Response:**",
	"Response:**",
	"Análisis:**",
	"final**",
}

var (
	boldRe   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicRe = regexp.MustCompile(`\*([^*]+)\*`)
)

// Cap applied to cleaned summaries before they reach the artifact.
const responseCap = 400

// CleanResponse strips provider chrome and markdown from a generated
// summary and caps its length. Provider-side error strings come back
// empty so callers treat them as failures.
func CleanResponse(text string) string {
	if text == "" {
		return ""
	}
	if strings.Contains(text, "Error") || strings.Contains(text, "BadRequest") {
		return ""
	}

	result := text
	for _, m := range responseMarkers {
		if idx := strings.LastIndex(result, m); idx >= 0 {
			result = result[idx+len(m):]
		}
	}

	result = boldRe.ReplaceAllString(result, "$1")
	result = italicRe.ReplaceAllString(result, "$1")
	result = strings.TrimSpace(result)

	runes := []rune(result)
	if len(runes) > responseCap {
		result = string(runes[:responseCap])
	}
	return result
}
