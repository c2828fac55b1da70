package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/muhammadolammi/jobmatchassistant/internal/assistant"
)

const localUser = "local"

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)

	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	toolStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true).Padding(0, 1)
)

type chatTurn struct {
	user  string
	reply assistant.Reply
}

type replyMsg struct {
	sessionID string
	reply     assistant.Reply
	err       error
}

type sessionMsg struct {
	id  string
	err error
}

type chatModel struct {
	ctx       context.Context
	assistant chatter
	sessionID string

	turns   []chatTurn
	pending string
	busy    bool
	err     error

	width    int
	viewport viewport.Model
	textarea textarea.Model
	renderer *glamour.TermRenderer
}

func newChatModel(ctx context.Context, a chatter) chatModel {
	ta := textarea.New()
	ta.Placeholder = "粘贴JD、招聘链接或简历路径... (/new 新会话, /exit 退出)"
	ta.Focus()
	ta.Prompt = "┃ "
	ta.CharLimit = 0
	ta.SetWidth(80)
	ta.SetHeight(3)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.ShowLineNumbers = false

	vp := viewport.New(80, 20)
	vp.SetContent("你好！我是职场JD智能分析助手，发送岗位描述开始分析。")

	// "light" avoids terminal queries leaking into the input
	r, _ := glamour.NewTermRenderer(
		glamour.WithStandardStyle("light"),
		glamour.WithWordWrap(80),
	)

	return chatModel{
		ctx:       ctx,
		assistant: a,
		viewport:  vp,
		textarea:  ta,
		renderer:  r,
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.startSession())
}

func (m chatModel) startSession() tea.Cmd {
	return func() tea.Msg {
		id, err := m.assistant.StartSession(m.ctx, localUser)
		return sessionMsg{id: id, err: err}
	}
}

func (m chatModel) send(text string) tea.Cmd {
	sessionID := m.sessionID
	return func() tea.Msg {
		reply, err := m.assistant.Send(m.ctx, localUser, sessionID, text)
		return replyMsg{sessionID: sessionID, reply: reply, err: err}
	}
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var tiCmd, vpCmd tea.Cmd
	m.textarea, tiCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds := []tea.Cmd{tiCmd, vpCmd}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.textarea.SetWidth(msg.Width)
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-m.textarea.Height()-3, 0)
		m.renderer, _ = glamour.NewTermRenderer(
			glamour.WithStandardStyle("light"),
			glamour.WithWordWrap(max(m.width-4, 20)),
		)
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			text := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			switch {
			case text == "":
			case text == "/exit":
				return m, tea.Quit
			case m.busy:
				m.err = fmt.Errorf("请等待上一条消息处理完成")
			case text == "/new":
				m.turns = nil
				m.err = nil
				m.sessionID = ""
				m.refresh()
				cmds = append(cmds, m.startSession())
			case m.sessionID == "":
				m.err = fmt.Errorf("会话尚未创建，请稍候")
			default:
				m.busy = true
				m.err = nil
				m.pending = text
				m.refresh()
				cmds = append(cmds, m.send(text))
			}
		}

	case sessionMsg:
		m.err = msg.err
		m.sessionID = msg.id

	case replyMsg:
		if msg.sessionID != m.sessionID {
			break
		}
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.turns = append(m.turns, chatTurn{user: m.pending, reply: msg.reply})
		}
		m.pending = ""
		m.refresh()
	}

	return m, tea.Batch(cmds...)
}

func (m *chatModel) refresh() {
	var b strings.Builder
	for _, t := range m.turns {
		b.WriteString(userStyle.Render("你: ") + t.user + "\n")
		if len(t.reply.ToolsUsed) > 0 {
			b.WriteString(toolStyle.Render("调用工具: "+strings.Join(t.reply.ToolsUsed, ", ")) + "\n")
		}
		b.WriteString(assistantStyle.Render("助手:") + "\n")
		b.WriteString(m.render(t.reply.Text) + "\n")
	}
	if m.pending != "" {
		b.WriteString(userStyle.Render("你: ") + m.pending + "\n")
		b.WriteString(toolStyle.Render("分析中...") + "\n")
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m chatModel) render(text string) string {
	if m.renderer == nil {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return out
}

func (m chatModel) View() string {
	header := titleStyle.Render("职场JD智能分析助手")
	if m.sessionID != "" {
		header += " " + toolStyle.Render(m.sessionID)
	}
	view := header + "\n" + m.viewport.View() + "\n"
	if m.err != nil {
		view += errorStyle.Render(m.err.Error()) + "\n"
	}
	return view + m.textarea.View()
}

func runChat(ctx context.Context, a chatter) error {
	p := tea.NewProgram(newChatModel(ctx, a), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
