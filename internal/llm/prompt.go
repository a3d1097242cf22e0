// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"text/template"
)

// answerPromptTmpl instructs the model to answer only from the numbered
// context passages and to cite them with bracketed indices. The citation
// extractor resolves those indices back to the candidate list, so the
// instruction wording and the marker syntax must stay in sync with it.
var answerPromptTmpl = template.Must(template.New("answer").Parse(`You are an expert researcher in statistical learning and regression analysis.

CRITICAL INSTRUCTIONS:
1. Answer ONLY using information from the provided papers
2. Include ALL relevant technical terminology (L1, L2, regularization, etc.)
3. Provide mathematical formulations when relevant
4. Cite sources using [1], [2], etc.
5. Be comprehensive but precise

Question: {{.Question}}

Research Papers:
{{.Context}}

Provide a thorough answer covering:
- Clear definitions with proper terminology
- Mathematical formulation (if applicable)
- Key properties and characteristics
- Practical implications
- Comparisons (if asked)

Answer:
`))

// BuildPrompt renders the grounded answer prompt for a question and its
// numbered context.
func BuildPrompt(question, contextText string) (string, error) {
	var buf bytes.Buffer
	err := answerPromptTmpl.Execute(&buf, struct {
		Question string
		Context  string
	}{Question: question, Context: contextText})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
