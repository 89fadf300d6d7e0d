package provider

import "strings"

// systemPreamble describes the assistant's capabilities. Prepended to every
// request as the system instruction.
const systemPreamble = `You are an AI assistant that helps users with various tasks.
You can control applications, search the web, manage files, and automate workflows.

When responding:
1. Be helpful, concise, and natural
2. If you're performing an action, mention it clearly
3. For complex tasks, break them down into steps
4. Always maintain user privacy and security

Available capabilities:
- Application control (open, close apps)
- File system operations
- Web search and research
- Email management
- System monitoring
- Task automation`

// maxExchanges bounds the conversation window sent per request,
// inclusive of the new command.
const maxExchanges = 10

// BuildSystemPrompt builds the system instruction from context preferences.
// Built fresh per call.
func BuildSystemPrompt(conv *Context) string {
	var sb strings.Builder
	sb.WriteString(systemPreamble)

	if conv != nil && conv.Preferences.Language != "" {
		sb.WriteString("\nUser's preferred language: ")
		sb.WriteString(conv.Preferences.Language)
	}

	return sb.String()
}

// chatMessage is the role/content pair shared by the chat-style providers.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BuildMessages assembles the bounded conversation for a chat-style request:
// system instruction, then the most recent history oldest-first, then the
// command itself.
func BuildMessages(command string, conv *Context) []chatMessage {
	messages := []chatMessage{
		{Role: "system", Content: BuildSystemPrompt(conv)},
	}

	if conv != nil {
		history := conv.History
		if len(history) > maxExchanges-1 {
			history = history[len(history)-(maxExchanges-1):]
		}
		for _, ex := range history {
			role := "assistant"
			if ex.Role == "user" {
				role = "user"
			}
			messages = append(messages, chatMessage{Role: role, Content: ex.Content})
		}
	}

	messages = append(messages, chatMessage{Role: "user", Content: command})
	return messages
}
