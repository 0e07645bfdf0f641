package llm

import (
	"fmt"
	"strings"

	"github.com/flarexio/edumentor/intent"
	"github.com/flarexio/edumentor/vector"
)

const systemPrompt = "You are EduMentor AI, an AI tutor for JEE/NEET preparation. " +
	"Use ONLY the provided context. " +
	"If information is missing, clearly state that it is not available in the context. " +
	"Do NOT hallucinate.\n\n" +
	"Structure the answer with these sections:\n" +
	"1. Problem or Topic\n" +
	"2. Retrieved Context\n" +
	"3. Key Ideas\n" +
	"4. Formulae\n" +
	"5. Step-by-Step Solution or Derivation\n" +
	"6. Units and Significant Figures\n" +
	"7. Common Mistakes\n" +
	"8. Quick Revision\n" +
	"9. Suggested Next Topics\n\n" +
	"Always include citations with title, file name, and page number."

type Prompt struct {
	System string
	User   string
}

// Combined is the single prompt string sent to generators that take one
// input.
func (p Prompt) Combined() string {
	return p.System + "\n\n" + p.User
}

// Citation formats a chunk's provenance as "title | source | p.page".
func Citation(m vector.Metadata) string {
	return fmt.Sprintf("%s | %s | p.%d", m.Title, m.Source, m.Page)
}

func BuildPrompt(question string, contexts []vector.Chunk, in intent.Intent, examFocus string) Prompt {
	texts := make([]string, len(contexts))
	citations := make([]string, len(contexts))
	for i, c := range contexts {
		texts[i] = c.Text
		citations[i] = Citation(c.Metadata)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Exam Focus: %s\n", examFocus)
	fmt.Fprintf(&b, "Intent: %s\n", in)
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	fmt.Fprintf(&b, "Context:\n%s\n\n", strings.Join(texts, "\n\n"))
	b.WriteString("Citations:\n")
	b.WriteString(strings.Join(citations, "\n"))

	return Prompt{
		System: systemPrompt,
		User:   b.String(),
	}
}
