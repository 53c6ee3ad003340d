package generator

import (
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"resumeqa/internal/domain"
)

const qaTemplate = `You are an AI assistant for HR professionals analyzing resumes.
Use the following pieces of context to answer the question at the end.
If you don't know the answer, just say that you don't know, don't try to make up an answer.

{{.context}}

Question: {{.question}}
Answer:`

var qaPrompt = prompts.NewPromptTemplate(qaTemplate, []string{"context", "question"})

// BuildPrompt stuffs the retrieved chunks, in retrieval order, into the QA template.
func BuildPrompt(question string, results []domain.SearchResult) (string, error) {
	return qaPrompt.Format(map[string]any{
		"context":  joinContext(results),
		"question": question,
	})
}

func joinContext(results []domain.SearchResult) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Chunk.Text
	}
	return strings.Join(texts, "\n\n")
}
