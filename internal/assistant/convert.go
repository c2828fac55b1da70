package assistant

import (
	"encoding/json"
	"strings"

	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/muhammadolammi/jobmatchassistant/internal/memory"
)

const userAuthor = "user"

// toolResult is what every tool returns to the agent framework.
type toolResult struct {
	Result string `json:"result"`
}

// eventMessages converts an agent event into conversation messages: one
// assistant message for its text and calls, then one tool message per
// function response.
func eventMessages(ev *session.Event) []memory.Message {
	if ev == nil || ev.Content == nil {
		return nil
	}
	var (
		text    strings.Builder
		calls   []memory.ToolCall
		results []memory.Message
	)
	for _, p := range ev.Content.Parts {
		switch {
		case p == nil:
		case p.FunctionCall != nil:
			calls = append(calls, memory.ToolCall{
				ID:        p.FunctionCall.ID,
				Name:      p.FunctionCall.Name,
				Arguments: p.FunctionCall.Args,
			})
		case p.FunctionResponse != nil:
			fr := p.FunctionResponse
			results = append(results, memory.Message{
				ID:         ev.ID + "/" + fr.ID,
				Role:       memory.RoleTool,
				Name:       fr.Name,
				ToolCallID: fr.ID,
				Content:    responseText(fr.Response),
			})
		case p.Text != "" && !p.Thought:
			text.WriteString(p.Text)
		}
	}

	var out []memory.Message
	if text.Len() > 0 || len(calls) > 0 {
		role := memory.RoleAssistant
		if ev.Author == userAuthor {
			role = memory.RoleUser
		}
		out = append(out, memory.Message{
			ID:        ev.ID,
			Role:      role,
			Content:   text.String(),
			ToolCalls: calls,
		})
	}
	return append(out, results...)
}

func responseText(resp map[string]any) string {
	if s, ok := resp["result"].(string); ok && len(resp) == 1 {
		return s
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return ""
	}
	return string(b)
}

// messageEvent rebuilds the agent event for a stored message.
func messageEvent(invocationID, agentName string, m memory.Message) *session.Event {
	ev := session.NewEvent(invocationID)
	if m.ID != "" {
		ev.ID = m.ID
	}
	switch m.Role {
	case memory.RoleUser:
		ev.Author = userAuthor
		ev.Content = genai.NewContentFromText(m.Content, genai.RoleUser)
	case memory.RoleTool:
		ev.Author = agentName
		ev.Content = &genai.Content{
			Role: string(genai.RoleUser),
			Parts: []*genai.Part{{FunctionResponse: &genai.FunctionResponse{
				ID:       m.ToolCallID,
				Name:     m.Name,
				Response: map[string]any{"result": m.Content},
			}}},
		}
	default:
		ev.Author = agentName
		content := &genai.Content{Role: string(genai.RoleModel)}
		if m.Content != "" {
			content.Parts = append(content.Parts, genai.NewPartFromText(m.Content))
		}
		for _, call := range m.ToolCalls {
			content.Parts = append(content.Parts, &genai.Part{FunctionCall: &genai.FunctionCall{
				ID:   call.ID,
				Name: call.Name,
				Args: call.Arguments,
			}})
		}
		ev.Content = content
	}
	return ev
}

func isFunctionResponse(c *genai.Content) bool {
	if c == nil || len(c.Parts) == 0 {
		return false
	}
	for _, p := range c.Parts {
		if p == nil || p.FunctionResponse == nil {
			return false
		}
	}
	return true
}

func finalText(ev *session.Event) string {
	if ev.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range ev.Content.Parts {
		if p != nil && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
