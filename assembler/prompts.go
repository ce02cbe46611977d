package assembler

import (
	"fmt"
	"strings"

	"github.com/poiesic/ratatoskr/core"
)

// buildRAGSummaryPrompt renders retrieved documents into a single
// bullet-point-summary instruction for the model.
func buildRAGSummaryPrompt(hits []*core.SimilarityHit) string {
	var b strings.Builder
	b.WriteString("Create a bullet point summary of the following documents found related to the user query. ")
	b.WriteString("Each entry lists the content found and its source document.\n")
	for _, hit := range hits {
		fmt.Fprintf(&b, "\ncontent: %s\nsource: %s\n", hit.Content, hit.Source)
	}
	return b.String()
}

// buildSessionSummaryPrompt renders prior completed turns into a
// summarization instruction for the model.
func buildSessionSummaryPrompt(turns []*core.QueryRecord) string {
	var b strings.Builder
	b.WriteString("Summarize the following conversation:\n")
	for _, turn := range turns {
		fmt.Fprintf(&b, "\nuser: %s\nassistant: %s\n", turn.Query, turn.Response)
	}
	return b.String()
}

// buildSourceSummaryPrompt renders one source's chunks into a
// summarization instruction for the model.
func buildSourceSummaryPrompt(chunks []*core.ContextChunk) string {
	var b strings.Builder
	b.WriteString("Summarize the following documents:\n")
	for _, chunk := range chunks {
		b.WriteString("\n")
		b.WriteString(chunk.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// composePrompt combines the raw query with whichever summaries exist.
// Precedence is fixed: query, then RAG summary, then session summary.
// With no summaries the composed prompt is the raw query, unchanged.
func composePrompt(query, ragSummary, sessionSummary string) string {
	switch {
	case ragSummary != "" && sessionSummary != "":
		return fmt.Sprintf(
			"User query: %s.\nSummarized content from documents found related to the user query: %s\nContext from the current chat session: %s",
			query, ragSummary, sessionSummary)
	case ragSummary != "":
		return fmt.Sprintf(
			"User query: %s.\nSummarized content from documents found related to the user query: %s",
			query, ragSummary)
	case sessionSummary != "":
		return fmt.Sprintf(
			"User query: %s.\nContext from the current chat session: %s",
			query, sessionSummary)
	default:
		return query
	}
}
