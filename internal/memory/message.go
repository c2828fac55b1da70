package memory

// Role identifies the author of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a tool invocation requested by an assistant message.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Message is a single turn in a conversation. ID drives the merge rule in
// Append: a message carrying the ID of an existing one replaces it.
type Message struct {
	ID         string     `json:"id,omitempty"`
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	// Name is the tool that produced a tool message.
	Name string `json:"name,omitempty"`
}

// IsToolResult reports whether m answers a tool call.
func (m Message) IsToolResult() bool {
	return m.Role == RoleTool
}

func cloneMessage(m Message) Message {
	if len(m.ToolCalls) == 0 {
		m.ToolCalls = nil
		return m
	}
	calls := make([]ToolCall, len(m.ToolCalls))
	for i, call := range m.ToolCalls {
		calls[i] = call
		if call.Arguments != nil {
			args := make(map[string]any, len(call.Arguments))
			for k, v := range call.Arguments {
				args[k] = v
			}
			calls[i].Arguments = args
		}
	}
	m.ToolCalls = calls
	return m
}

// Clone returns a deep copy of msgs.
func Clone(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = cloneMessage(m)
	}
	return out
}
