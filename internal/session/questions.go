package session

import "strings"

// PredefinedQuestions are offered in the question dropdown after a blank entry.
var PredefinedQuestions = []string{
	"What are the candidate's key skills?",
	"Summarize the candidate's work experience.",
	"What is the candidate's educational background?",
	"Does the candidate have experience with project management?",
	"What programming languages does the candidate know?",
	"Summarize the candidate's qualifications for a software developer role.",
}

// ResolveQuestion picks the query to run. Non-blank custom text wins over the
// dropdown selection; ok is false when neither holds a question.
func ResolveQuestion(selected, custom string) (question string, ok bool) {
	if q := strings.TrimSpace(custom); q != "" {
		return q, true
	}
	if q := strings.TrimSpace(selected); q != "" {
		return q, true
	}
	return "", false
}

// Preset returns the n-th predefined question, counting from 1.
func Preset(n int) (string, bool) {
	if n < 1 || n > len(PredefinedQuestions) {
		return "", false
	}
	return PredefinedQuestions[n-1], true
}
