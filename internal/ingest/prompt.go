package ingest

import (
	_ "embed"
	"strings"
)

//go:embed prompts/resume_extract.txt
var extractPromptTemplate string

// NormalizeWhitespace collapses every whitespace run into a single space
// and trims both ends.
func NormalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// BuildPrompt embeds the normalized resume text after the fixed extraction
// instructions. It is pure and deterministic.
func BuildPrompt(text string) string {
	var b strings.Builder
	b.Grow(len(extractPromptTemplate) + len(text))
	b.WriteString(extractPromptTemplate)
	b.WriteString(NormalizeWhitespace(text))
	return b.String()
}
