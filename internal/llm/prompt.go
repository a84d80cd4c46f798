package llm

import (
	"strings"

	"github.com/joseph-ayodele/taxdocs-pipeline/constants"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/forms"
)

// promptTextCap bounds how much document text travels in one prompt.
const promptTextCap = 6000

// BuildClassifyPrompts asks for exactly one label from the closed set plus
// a confidence. The label list comes from the registry, so a new form type
// reaches the classifier without touching this file.
func BuildClassifyPrompts(text string) (system, user string) {
	labels := constants.AsStringSlice()
	system = strings.Join([]string{
		"You classify US tax documents.",
		"Choose exactly one document_type from this list: " + strings.Join(labels, ", ") + ".",
		"Use OTHER when the document matches none of the specific types.",
		`Return ONLY a JSON object of the form {"document_type": "<label>", "confidence": <0..1>}.`,
		"confidence is your own estimate that the label is correct.",
	}, " ")
	user = "Document text:\n" + capText(text)
	return system, user
}

// BuildExtractPrompts renders the extraction instruction for one form
// schema. Every schema field must appear in the reply, null when the box is
// absent or unreadable.
func BuildExtractPrompts(schema *forms.Schema, text string) (system, user string) {
	var b strings.Builder
	b.WriteString("You extract fields from a US tax form of type ")
	b.WriteString(string(schema.Form))
	b.WriteString(". Return ONLY JSON matching the provided schema. ")
	b.WriteString("Emit every listed key; use null when a value is absent or unreadable. ")
	b.WriteString("Money values are strings with up to two decimals and no currency symbol, e.g. \"75000.00\". ")
	b.WriteString("Copy identifiers exactly as printed. Never invent values.\n\nFields:\n")
	for _, f := range schema.Fields {
		b.WriteString("- ")
		b.WriteString(f.Name)
		b.WriteString(" (")
		b.WriteString(string(f.Kind))
		if f.Required {
			b.WriteString(", required")
		}
		b.WriteString(")")
		if f.Example != "" {
			b.WriteString(" e.g. ")
			b.WriteString(f.Example)
		}
		b.WriteString("\n")
	}
	user = "Document text:\n" + capText(text)
	return b.String(), user
}

func capText(text string) string {
	if len(text) > promptTextCap {
		return text[:promptTextCap]
	}
	return text
}
