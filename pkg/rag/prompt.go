package rag

import (
	"fmt"
	"strings"
)

const defaultPersona = "You are a helpful assistant answering on behalf of a content creator. Be concise and friendly."

// BuildMessages assembles the chat exchange: a system turn carrying the
// persona and retrieved context, the recent conversation window, then the
// question. With no matches the system turn is persona-only, so the model
// still answers in character instead of refusing.
func BuildMessages(persona string, matches []Match, history []Turn, question string) []ChatMessage {
	if strings.TrimSpace(persona) == "" {
		persona = defaultPersona
	}

	var system strings.Builder
	system.WriteString(persona)
	if len(matches) > 0 {
		system.WriteString("\n\nUse the following knowledge when it is relevant to the question:\n")
		for _, match := range matches {
			system.WriteString(fmt.Sprintf("\n- %s", strings.TrimSpace(match.Content)))
		}
		system.WriteString("\n\nIf the knowledge does not cover the question, say so rather than inventing details.")
	}

	messages := make([]ChatMessage, 0, len(history)+2)
	messages = append(messages, ChatMessage{Role: "system", Content: system.String()})
	for _, turn := range history {
		messages = append(messages, ChatMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, ChatMessage{Role: "user", Content: question})
	return messages
}
