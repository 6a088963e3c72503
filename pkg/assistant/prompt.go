package assistant

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/aura-edu/aura/pkg/models"
)

// BuildPrompt joins the system preamble with the labelled request fields.
// Empty fields are left out so equal requests always yield equal prompts.
func BuildPrompt(system string, req models.InteractRequest) string {
	interaction := req.InteractionType
	if interaction == "" {
		interaction = models.InteractionConversation
	}

	fields := lo.Compact([]string{
		label("Tipo de interacción", string(interaction)),
		label("Módulo", req.Module),
		label("Dificultad", req.Difficulty),
		label("Contexto", req.Context),
	})

	var b strings.Builder
	if s := strings.TrimSpace(system); s != "" {
		b.WriteString(s)
		b.WriteString("\n\n")
	}
	b.WriteString(strings.Join(fields, "\n"))

	if len(req.ConversationHistory) > 0 {
		turns := lo.Map(req.ConversationHistory, func(t models.HistoryTurn, _ int) string {
			return fmt.Sprintf("%s: %s", speaker(t.Role), strings.TrimSpace(t.Content))
		})
		b.WriteString("\n\nHistorial:\n")
		b.WriteString(strings.Join(turns, "\n"))
	}

	b.WriteString("\n\nMensaje del estudiante:\n")
	b.WriteString(strings.TrimSpace(req.Message))
	return b.String()
}

func label(name, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return name + ": " + value
}

func speaker(role string) string {
	if role == "assistant" {
		return "Tutor"
	}
	return "Estudiante"
}
