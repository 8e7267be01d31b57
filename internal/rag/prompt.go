package rag

import "fmt"

// promptTemplate grounds the generation service in the retrieved context.
// The instruction to admit ignorance matters: without it the model
// answers from its own training data and the provenance of the response
// becomes meaningless.
const promptTemplate = `You are a helpful assistant answering questions about a website.
Answer the question using only the context below. If the context does not
contain the answer, say you could not find that information on the site.
Do not invent facts.

[Context]
%s

[Question]
%s

Answer:`

// buildPrompt fills the instructional template with context and question.
func buildPrompt(contextText, question string) string {
	return fmt.Sprintf(promptTemplate, contextText, question)
}
