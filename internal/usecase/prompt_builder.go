package usecase

import (
	"fmt"
	"strings"

	"rag-governor/internal/domain"
)

// PromptInput contains the pieces that feed into the prompt builder.
type PromptInput struct {
	Question      string
	PromptVersion string
	Passages      []domain.Passage
}

// PromptBuilder builds the chat messages sent to the LLM.
type PromptBuilder interface {
	Build(input PromptInput) ([]domain.Message, error)
}

// XMLPromptBuilder creates structured prompts that separate context, instructions, query, and format.
type XMLPromptBuilder struct {
	additionalInstructions []string
}

// NewXMLPromptBuilder creates a prompt builder with optional extra instructions appended.
func NewXMLPromptBuilder(additionalInstructions ...string) PromptBuilder {
	return &XMLPromptBuilder{
		additionalInstructions: additionalInstructions,
	}
}

var baseInstructions = []string{
	"You answer questions based ONLY on the provided <context>.",
	"1. Read every <document> in the <context>.",
	"2. Answer the <query> using strictly the facts from the <context>.",
	"3. Set \"fallback\": true only if the context holds no relevant information.",
	"4. List every doc_id you relied on in \"citations\" and append [doc_id] to the sentences that use it.",
	"5. Redaction tokens such as [REDACTED_EMAIL] must be reproduced as-is, never guessed.",
	"6. Do not include external knowledge.",
	"7. Follow the JSON format specified below EXACTLY.",
}

// Build renders the Messages for the chat API.
func (b *XMLPromptBuilder) Build(input PromptInput) ([]domain.Message, error) {
	if input.PromptVersion == "" {
		return nil, fmt.Errorf("prompt version is required")
	}
	if strings.TrimSpace(input.Question) == "" {
		return nil, fmt.Errorf("question is required")
	}

	var sysSb strings.Builder
	sysSb.WriteString("<instructions>\n")
	for _, inst := range append(append([]string{}, baseInstructions...), b.additionalInstructions...) {
		sysSb.WriteString("  <line>")
		sysSb.WriteString(escape(inst))
		sysSb.WriteString("</line>\n")
	}
	sysSb.WriteString("</instructions>\n\n")

	sysSb.WriteString("<format>\n")
	sysSb.WriteString("JSON: {\n")
	sysSb.WriteString("  \"answer\": \"text... [doc_id]\",\n")
	sysSb.WriteString("  \"citations\": [{\"doc_id\":\"...\"}],\n")
	sysSb.WriteString("  \"fallback\": false,\n")
	sysSb.WriteString("  \"reason\": \"\"\n")
	sysSb.WriteString("}\n")
	sysSb.WriteString("</format>\n")

	var userSb strings.Builder
	userSb.WriteString(fmt.Sprintf("<context version=\"%s\">\n", escape(input.PromptVersion)))
	for _, p := range input.Passages {
		userSb.WriteString("  <document>\n")
		userSb.WriteString("    <doc_id>")
		userSb.WriteString(escape(p.DocID))
		userSb.WriteString("</doc_id>\n")
		userSb.WriteString("    <score>")
		userSb.WriteString(fmt.Sprintf("%.6f", p.Score))
		userSb.WriteString("</score>\n")
		userSb.WriteString("    <text>")
		userSb.WriteString(escape(p.Text))
		userSb.WriteString("</text>\n")
		userSb.WriteString("  </document>\n")
	}
	userSb.WriteString("</context>\n\n")

	userSb.WriteString("<query>\n")
	userSb.WriteString(escape(input.Question))
	userSb.WriteString("\n</query>\n")

	return []domain.Message{
		{Role: "system", Content: sysSb.String()},
		{Role: "user", Content: userSb.String()},
	}, nil
}

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
	"'", "&#39;",
)

func escape(value string) string {
	return xmlReplacer.Replace(strings.TrimSpace(value))
}
