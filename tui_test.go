package main

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhammadolammi/jobmatchassistant/internal/assistant"
)

func typeAndSend(t *testing.T, m chatModel, text string) (chatModel, tea.Cmd) {
	t.Helper()
	m.textarea.SetValue(text)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(chatModel), cmd
}

func TestChatModelSendsAndRenders(t *testing.T) {
	chat := &fakeChatter{}
	m := newChatModel(context.Background(), chat)
	m.renderer = nil

	next, _ := m.Update(sessionMsg{id: "s1"})
	m = next.(chatModel)
	require.Equal(t, "s1", m.sessionID)

	m, cmd := typeAndSend(t, m, "分析这个JD")
	assert.True(t, m.busy)
	assert.Equal(t, "分析这个JD", m.pending)
	require.NotNil(t, cmd)

	next, _ = m.Update(replyMsg{sessionID: "s1", reply: chat.mustSend(t, "分析这个JD")})
	m = next.(chatModel)
	assert.False(t, m.busy)
	require.Len(t, m.turns, 1)
	assert.Equal(t, "匹配度较高", m.turns[0].reply.Text)
	assert.Contains(t, m.viewport.View(), "parse_resume_file")
}

func TestChatModelRejectsWhileBusy(t *testing.T) {
	m := newChatModel(context.Background(), &fakeChatter{})
	m.sessionID = "s1"
	m.busy = true

	m, _ = typeAndSend(t, m, "hi")
	assert.Error(t, m.err)
	assert.Empty(t, m.pending)
}

func TestChatModelCommands(t *testing.T) {
	m := newChatModel(context.Background(), &fakeChatter{})
	m.sessionID = "s1"
	m.turns = []chatTurn{{user: "hi"}}

	m, cmd := typeAndSend(t, m, "/new")
	assert.Empty(t, m.turns)
	assert.Empty(t, m.sessionID)
	assert.NotNil(t, cmd)

	_, cmd = typeAndSend(t, m, "/exit")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestChatModelNewWaitsForRunningTurn(t *testing.T) {
	m := newChatModel(context.Background(), &fakeChatter{})
	m.sessionID = "s1"
	m.busy = true
	m.pending = "分析这个JD"

	m, _ = typeAndSend(t, m, "/new")

	assert.Error(t, m.err)
	assert.Equal(t, "s1", m.sessionID)
}

func TestChatModelIgnoresReplyFromOtherSession(t *testing.T) {
	m := newChatModel(context.Background(), &fakeChatter{})
	m.renderer = nil
	m.sessionID = "s2"

	next, _ := m.Update(replyMsg{sessionID: "s1", reply: assistant.Reply{Text: "旧会话的回答"}})
	m = next.(chatModel)

	assert.Empty(t, m.turns)
}
