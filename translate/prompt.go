package translate

import (
	"fmt"
	"strings"

	"github.com/exilekit/langsync/document"
	"github.com/exilekit/langsync/locale"
)

// Prompt carries the project context embedded in every system prompt.
type Prompt struct {
	ProjectName        string
	ProjectDescription string
	// Guidance is appended to the system prompt verbatim (brand voice,
	// domain terms to keep in English, and so on).
	Guidance string
}

// SystemPrompt returns the system message for a translation call.
func (p Prompt) SystemPrompt() string {
	var b strings.Builder
	b.WriteString(`You are a professional UI/UX localization expert with deep knowledge of:
- Software interface conventions in different languages
- When to keep English terms vs. when to translate them
- Cultural adaptations for each target market
- Technical terminology standards in each language

Some languages prefer English tech terms while others have established local equivalents.
Always consider the target audience: tech-savvy users might prefer English terms, while general users might need localized versions.
`)
	if p.ProjectName != "" {
		b.WriteString("\nYou are translating for ")
		b.WriteString(p.ProjectName)
		if p.ProjectDescription != "" {
			b.WriteString(", ")
			b.WriteString(p.ProjectDescription)
		}
		b.WriteString(".\n")
	}
	if g := strings.TrimSpace(p.Guidance); g != "" {
		b.WriteString("\n")
		b.WriteString(g)
		b.WriteString("\n")
	}
	return b.String()
}

// UserPrompt returns the user message asking for chunk to be translated
// into langs.
func UserPrompt(chunk *document.Object, langs []string) (string, error) {
	source, err := chunk.Marshal()
	if err != nil {
		return "", err
	}

	names := make([]string, len(langs))
	for i, l := range langs {
		m := locale.Resolve(l)
		if m.Name != l {
			names[i] = fmt.Sprintf("%s (%s)", l, m.Name)
		} else {
			names[i] = l
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Translate the following English UI texts to these languages: %s.\n\n", strings.Join(names, ", "))
	b.WriteString(`CRITICAL RULES:
1. For EACH target language, independently decide whether English terms should be kept as-is, translated, or adapted to local usage.

2. Consider context and UI conventions:
- Button texts should be action-oriented
- Navigation items should be clear and concise
- Error messages should be helpful, not literal translations
- Keep consistent terminology throughout

3. Technical considerations:
- Preserve ALL placeholders exactly: {name}, {count}, {{variable}}
- Maintain appropriate text length for UI elements
- Consider text expansion when translating from English

4. Quality standards:
- Apply proper capitalization rules for each language
- Ensure grammatical gender agreement where applicable

English source texts:
`)
	b.Write(source)
	fmt.Fprintf(&b, `
Return a JSON object with language codes (%s) as keys. Each language should contain the same keys as the input.
Return ONLY valid JSON without any explanation or markdown.
`, strings.Join(langs, ", "))
	return b.String(), nil
}
