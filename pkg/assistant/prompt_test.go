package assistant

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aura-edu/aura/pkg/models"
)

func TestBuildPrompt(t *testing.T) {
	req := models.InteractRequest{
		Message:         "  ¿Cuánto es 2/3 + 1/6?  ",
		InteractionType: models.InteractionExplanation,
		Difficulty:      "intermedio",
		ConversationHistory: []models.HistoryTurn{
			{Role: "user", Content: "Hola"},
			{Role: "assistant", Content: "¡Hola! ¿En qué te ayudo?"},
		},
	}

	got := BuildPrompt("Eres un tutor.", req)
	want := strings.Join([]string{
		"Eres un tutor.",
		"",
		"Tipo de interacción: explanation",
		"Dificultad: intermedio",
		"",
		"Historial:",
		"Estudiante: Hola",
		"Tutor: ¡Hola! ¿En qué te ayudo?",
		"",
		"Mensaje del estudiante:",
		"¿Cuánto es 2/3 + 1/6?",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestBuildPromptDefaults(t *testing.T) {
	got := BuildPrompt("", models.InteractRequest{Message: "hola"})
	assert.Equal(t, "Tipo de interacción: conversation\n\nMensaje del estudiante:\nhola", got)
}

func TestBuildPromptDeterministic(t *testing.T) {
	req := models.InteractRequest{Message: "x", Module: "fracciones", Context: "tarea"}
	assert.Equal(t, BuildPrompt("s", req), BuildPrompt("s", req))
}
