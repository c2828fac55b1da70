package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userMsg(i int) Message {
	return Message{ID: fmt.Sprintf("m%d", i), Role: RoleUser, Content: fmt.Sprintf("msg %d", i)}
}

func TestAppendNeverExceedsLimit(t *testing.T) {
	var state []Message
	for i := 0; i < 3*DefaultMaxMessages; i++ {
		state = Append(state, []Message{userMsg(i)}, DefaultMaxMessages)
		require.LessOrEqual(t, len(state), DefaultMaxMessages, "after append %d", i)
	}
	assert.Equal(t, "m119", state[len(state)-1].ID)
	assert.Equal(t, "m80", state[0].ID)
}

func TestAppendBelowLimitKeepsEverythingInOrder(t *testing.T) {
	var state []Message
	for i := 0; i < DefaultMaxMessages-1; i++ {
		state = Append(state, []Message{userMsg(i)}, 0)
	}
	require.Len(t, state, DefaultMaxMessages-1)
	for i, m := range state {
		assert.Equal(t, fmt.Sprintf("m%d", i), m.ID)
	}
}

func TestAppendBatchTruncatesOldestFirst(t *testing.T) {
	var batch []Message
	for i := 0; i < 7; i++ {
		batch = append(batch, userMsg(i))
	}
	state := Append(nil, batch, 5)
	require.Len(t, state, 5)
	assert.Equal(t, "m2", state[0].ID)
	assert.Equal(t, "m6", state[4].ID)
}

func TestAppendReplacesMessageWithSameID(t *testing.T) {
	state := Append(nil, []Message{userMsg(0), userMsg(1), userMsg(2)}, 10)
	updated := Message{ID: "m1", Role: RoleAssistant, Content: "edited"}

	state = Append(state, []Message{updated, userMsg(3)}, 10)

	require.Len(t, state, 4)
	assert.Equal(t, updated, state[1])
	assert.Equal(t, "m3", state[3].ID)
}

func TestAppendWithoutIDsAlwaysAppends(t *testing.T) {
	m := Message{Role: RoleUser, Content: "same"}
	state := Append([]Message{m}, []Message{m, m}, 10)
	assert.Len(t, state, 3)
}

func TestAppendDoesNotMutateInputs(t *testing.T) {
	existing := []Message{{
		ID:        "a",
		Role:      RoleAssistant,
		ToolCalls: []ToolCall{{ID: "c1", Name: "x", Arguments: map[string]any{"q": "v"}}},
	}}
	state := Append(existing, nil, 10)
	state[0].ToolCalls[0].Arguments["q"] = "changed"

	assert.Equal(t, "v", existing[0].ToolCalls[0].Arguments["q"])
}

func TestAppendDropsOrphanedToolResultsWhenTruncating(t *testing.T) {
	state := []Message{
		{ID: "u1", Role: RoleUser, Content: "hi"},
		{ID: "a1", Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c1", Name: "search"}, {ID: "c2", Name: "search"}}},
		{ID: "t1", Role: RoleTool, ToolCallID: "c1", Content: "r1"},
		{ID: "t2", Role: RoleTool, ToolCallID: "c2", Content: "r2"},
		{ID: "a2", Role: RoleAssistant, Content: "done"},
	}

	got := Append(state, []Message{{ID: "u2", Role: RoleUser, Content: "next"}}, 4)

	require.Len(t, got, 2)
	assert.Equal(t, "a2", got[0].ID)
	assert.Equal(t, "u2", got[1].ID)
}

func TestWindowKeepsLeadingToolResultsWithoutTruncation(t *testing.T) {
	msgs := []Message{
		{ID: "t1", Role: RoleTool, ToolCallID: "c0"},
		{ID: "u1", Role: RoleUser},
	}
	assert.Len(t, Window(msgs, 10, Message.IsToolResult), 2)
}

func TestWindowGeneric(t *testing.T) {
	got := Window([]int{1, 2, 3, 4, 5}, 3, func(n int) bool { return n == 3 })
	assert.Equal(t, []int{4, 5}, got)
}
