// Package memory holds the bounded conversation state handed to the model.
//
// Conversation state is a plain ordered slice of messages. Append merges new
// messages into it and then keeps only the most recent DefaultMaxMessages entries,
// so the state never grows past the window regardless of session length.
package memory

// DefaultMaxMessages keeps the last 20 exchanges.
const DefaultMaxMessages = 40

// Append merges incoming into existing and truncates the result to the last
// limit messages (DefaultMaxMessages when limit <= 0).
//
// A message whose non-empty ID matches a message already present replaces it
// in place; every other message is appended in the order received. Neither
// input slice is modified.
func Append(existing, incoming []Message, limit int) []Message {
	merged := make([]Message, 0, len(existing)+len(incoming))
	index := make(map[string]int, len(existing)+len(incoming))

	for _, m := range existing {
		if m.ID != "" {
			index[m.ID] = len(merged)
		}
		merged = append(merged, cloneMessage(m))
	}
	for _, m := range incoming {
		if m.ID != "" {
			if pos, ok := index[m.ID]; ok {
				merged[pos] = cloneMessage(m)
				continue
			}
			index[m.ID] = len(merged)
		}
		merged = append(merged, cloneMessage(m))
	}

	return Window(merged, limit, Message.IsToolResult)
}

// Window returns the last limit entries of msgs (DefaultMaxMessages when
// limit <= 0). When entries are cut, tool results at the head of the window
// are dropped too: their requesting message fell outside the window, and
// providers reject a result without its call.
//
// The returned slice never aliases msgs.
func Window[M any](msgs []M, limit int, isToolResult func(M) bool) []M {
	if limit <= 0 {
		limit = DefaultMaxMessages
	}
	start := 0
	if len(msgs) > limit {
		start = len(msgs) - limit
		for start < len(msgs) && isToolResult != nil && isToolResult(msgs[start]) {
			start++
		}
	}
	out := make([]M, len(msgs)-start)
	copy(out, msgs[start:])
	return out
}
