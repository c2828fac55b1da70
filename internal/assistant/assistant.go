// Package assistant runs the JD and resume analysis agent: it owns the
// conversation sessions, hands each user message to the model with the tool
// set and keeps a bounded, checkpointed history per session.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
	"google.golang.org/genai"

	"github.com/muhammadolammi/jobmatchassistant/internal/checkpoint"
	"github.com/muhammadolammi/jobmatchassistant/internal/memory"
	"github.com/muhammadolammi/jobmatchassistant/internal/resume"
	"github.com/muhammadolammi/jobmatchassistant/internal/tools"
	"github.com/muhammadolammi/jobmatchassistant/internal/tracing"
)

const (
	DefaultAppName   = "jd_assistant"
	defaultAgentName = "jd_assistant"
)

var (
	// ErrSessionNotFound is returned for unknown sessions and for sessions
	// owned by another user.
	ErrSessionNotFound = checkpoint.ErrNotFound
	ErrEmptyMessage    = errors.New("message is empty")
)

type Config struct {
	AppName     string
	AgentName   string
	Description string
	Model       model.LLM
	Instruction string
	Tools       []tools.Spec
	// MaxMessages bounds both the stored history and each model request.
	MaxMessages int
	Store       checkpoint.Store
	Tracer      tracing.Sink
	Streaming   bool
}

type Reply struct {
	SessionID string   `json:"session_id"`
	Text      string   `json:"reply"`
	ToolsUsed []string `json:"tools_used"`
}

type Assistant struct {
	appName     string
	agentName   string
	maxMessages int
	streaming   bool
	store       checkpoint.Store
	tracer      tracing.Sink
	sessions    session.Service
	runner      *runner.Runner

	mu    sync.Mutex
	locks map[string]*sessionLock
	// live maps sessions loaded in the session service to their owner.
	live map[string]string
}

func New(ctx context.Context, cfg Config) (*Assistant, error) {
	if cfg.Model == nil {
		return nil, errors.New("assistant: model is required")
	}
	a := &Assistant{
		appName:     cfg.AppName,
		agentName:   cfg.AgentName,
		maxMessages: cfg.MaxMessages,
		streaming:   cfg.Streaming,
		store:       cfg.Store,
		tracer:      cfg.Tracer,
		sessions:    session.InMemoryService(),
		locks:       make(map[string]*sessionLock),
		live:        make(map[string]string),
	}
	if a.appName == "" {
		a.appName = DefaultAppName
	}
	if a.agentName == "" {
		a.agentName = defaultAgentName
	}
	if a.maxMessages <= 0 {
		a.maxMessages = memory.DefaultMaxMessages
	}
	if a.store == nil {
		a.store = checkpoint.NewMemory()
	}
	if a.tracer == nil {
		a.tracer = tracing.Noop{}
	}

	adkTools := make([]tool.Tool, 0, len(cfg.Tools))
	for _, spec := range cfg.Tools {
		t, err := a.functionTool(spec)
		if err != nil {
			return nil, fmt.Errorf("failed to create tool %s: %w", spec.Name(), err)
		}
		adkTools = append(adkTools, t)
	}

	description := cfg.Description
	if description == "" {
		description = "Analyze job postings, resumes, salaries and industry trends"
	}
	jdAgent, err := llmagent.New(llmagent.Config{
		Name:                 a.agentName,
		Model:                cfg.Model,
		Description:          description,
		Instruction:          cfg.Instruction,
		Tools:                adkTools,
		BeforeModelCallbacks: []llmagent.BeforeModelCallback{a.windowRequest},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	a.runner, err = runner.New(runner.Config{
		AppName:        a.appName,
		Agent:          jdAgent,
		SessionService: a.sessions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}
	slog.Info("assistant ready", "agent", a.agentName, "tools", tools.Names(cfg.Tools))
	return a, nil
}

// functionTool exposes spec to the agent, tracing every call.
func (a *Assistant) functionTool(spec tools.Spec) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        spec.Name(),
		Description: spec.Description(),
		InputSchema: spec.InputSchema(),
	}, func(ctx tool.Context, args map[string]any) (toolResult, error) {
		spanCtx, span := a.tracer.Start(ctx, "tool."+spec.Name(), map[string]string{
			"tool.name":    spec.Name(),
			"tool.call_id": ctx.FunctionCallID(),
		})
		out := spec.Invoke(spanCtx, args)
		span.End(nil)
		slog.Debug("tool invoked", "tool", spec.Name(), "chars", len(out))
		return toolResult{Result: out}, nil
	})
}

// windowRequest trims the request history to the message window before every
// model call.
func (a *Assistant) windowRequest(_ agent.CallbackContext, req *model.LLMRequest) (*model.LLMResponse, error) {
	req.Contents = memory.Window(req.Contents, a.maxMessages, isFunctionResponse)
	return nil, nil
}

// StartSession creates an empty conversation owned by userID.
func (a *Assistant) StartSession(ctx context.Context, userID string) (string, error) {
	id := uuid.NewString()
	if err := a.store.Create(ctx, id, userID); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	defer a.lockSession(id)()
	if _, err := a.load(ctx, userID, id); err != nil {
		return "", err
	}
	return id, nil
}

// Send runs one conversation turn. Turns of the same session are serialised.
func (a *Assistant) Send(ctx context.Context, userID, sessionID, text string) (Reply, error) {
	if strings.TrimSpace(text) == "" {
		return Reply{}, ErrEmptyMessage
	}
	defer a.lockSession(sessionID)()

	ctx, span := a.tracer.Start(ctx, "assistant.turn", map[string]string{
		"session_id": sessionID,
		"user_id":    userID,
	})
	reply, err := a.turn(ctx, userID, sessionID, text)
	span.SetAttr("tools_used", strings.Join(reply.ToolsUsed, ","))
	span.End(err)
	return reply, err
}

func (a *Assistant) turn(ctx context.Context, userID, sessionID, text string) (Reply, error) {
	stored, err := a.load(ctx, userID, sessionID)
	if err != nil {
		return Reply{}, err
	}
	if err := a.store.SetStatus(ctx, sessionID, checkpoint.StatusProcessing); err != nil {
		slog.Warn("failed to update session status", "session_id", sessionID, "error", err)
	}

	msgs := memory.Append(stored.Messages, []memory.Message{{
		ID:      uuid.NewString(),
		Role:    memory.RoleUser,
		Content: text,
	}}, a.maxMessages)

	runCfg := agent.RunConfig{}
	if a.streaming {
		runCfg.StreamingMode = agent.StreamingModeSSE
	}

	reply := Reply{SessionID: sessionID}
	for ev, err := range a.runner.Run(ctx, userID, sessionID, genai.NewContentFromText(text, genai.RoleUser), runCfg) {
		if err != nil {
			a.fail(ctx, sessionID)
			return reply, fmt.Errorf("agent run failed: %w", err)
		}
		if ev == nil || ev.Partial {
			continue
		}
		produced := eventMessages(ev)
		for _, m := range produced {
			for _, call := range m.ToolCalls {
				reply.ToolsUsed = append(reply.ToolsUsed, call.Name)
			}
		}
		msgs = memory.Append(msgs, produced, a.maxMessages)
		if ev.IsFinalResponse() {
			if t := finalText(ev); t != "" {
				reply.Text = t
			}
		}
	}

	if err := a.store.Save(ctx, sessionID, msgs); err != nil {
		a.fail(ctx, sessionID)
		return reply, fmt.Errorf("failed to checkpoint session: %w", err)
	}
	if err := a.store.SetStatus(ctx, sessionID, checkpoint.StatusActive); err != nil {
		slog.Warn("failed to update session status", "session_id", sessionID, "error", err)
	}
	a.compact(ctx, sessionID)
	return reply, nil
}

// fail marks the session failed and unloads it, so the next turn starts from
// the last checkpoint rather than from a half-finished run.
func (a *Assistant) fail(ctx context.Context, sessionID string) {
	if err := a.store.SetStatus(ctx, sessionID, checkpoint.StatusFailed); err != nil {
		slog.Warn("failed to update session status", "session_id", sessionID, "error", err)
	}
	a.unload(ctx, sessionID)
}

// compact unloads a live session whose event log has grown past twice the
// window; it is rebuilt from the checkpoint on the next turn.
func (a *Assistant) compact(ctx context.Context, sessionID string) {
	a.mu.Lock()
	userID, ok := a.live[sessionID]
	a.mu.Unlock()
	if !ok {
		return
	}
	resp, err := a.sessions.Get(ctx, &session.GetRequest{
		AppName:   a.appName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil || resp.Session.Events().Len() > 2*a.maxMessages {
		a.unload(ctx, sessionID)
	}
}

func (a *Assistant) unload(ctx context.Context, sessionID string) {
	a.mu.Lock()
	userID, ok := a.live[sessionID]
	delete(a.live, sessionID)
	a.mu.Unlock()
	if !ok {
		return
	}
	err := a.sessions.Delete(ctx, &session.DeleteRequest{
		AppName:   a.appName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		slog.Warn("failed to delete agent session", "session_id", sessionID, "error", err)
	}
}

// load returns the checkpointed session and makes sure it is present in the
// session service, replaying its messages when it is not.
func (a *Assistant) load(ctx context.Context, userID, sessionID string) (checkpoint.Session, error) {
	stored, err := a.store.Load(ctx, sessionID)
	if err != nil {
		return checkpoint.Session{}, err
	}
	if stored.UserID != userID {
		return checkpoint.Session{}, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}

	a.mu.Lock()
	_, ok := a.live[sessionID]
	a.mu.Unlock()
	if ok {
		return stored, nil
	}

	created, err := a.sessions.Create(ctx, &session.CreateRequest{
		AppName:   a.appName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return checkpoint.Session{}, fmt.Errorf("failed to create agent session: %w", err)
	}
	invocationID := "restore-" + uuid.NewString()
	for _, m := range stored.Messages {
		if err := a.sessions.AppendEvent(ctx, created.Session, messageEvent(invocationID, a.agentName, m)); err != nil {
			return checkpoint.Session{}, fmt.Errorf("failed to restore session %s: %w", sessionID, err)
		}
	}
	if len(stored.Messages) > 0 {
		slog.Info("restored session from checkpoint", "session_id", sessionID, "messages", len(stored.Messages))
	}

	a.mu.Lock()
	a.live[sessionID] = userID
	a.mu.Unlock()
	return stored, nil
}

// sessionLock serialises turns of one session. refs counts holders and
// waiters; the entry is dropped when it reaches zero.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// lockSession locks sessionID and returns the matching unlock.
func (a *Assistant) lockSession(sessionID string) func() {
	a.mu.Lock()
	l, ok := a.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		a.locks[sessionID] = l
	}
	l.refs++
	a.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		a.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(a.locks, sessionID)
		}
		a.mu.Unlock()
	}
}

// History returns the stored, windowed conversation of a session.
func (a *Assistant) History(ctx context.Context, userID, sessionID string) ([]memory.Message, error) {
	stored, err := a.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if stored.UserID != userID {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	return stored.Messages, nil
}

// EndSession deletes a session and everything stored for it.
func (a *Assistant) EndSession(ctx context.Context, userID, sessionID string) error {
	defer a.lockSession(sessionID)()

	if _, err := a.History(ctx, userID, sessionID); err != nil {
		return err
	}
	a.unload(ctx, sessionID)
	if err := a.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// AttachResume records an uploaded resume and tells the agent where to find
// it, so a later turn can parse it with parse_resume_file.
func (a *Assistant) AttachResume(ctx context.Context, userID, sessionID string, r checkpoint.Resume) error {
	if strings.TrimSpace(r.ObjectKey) == "" {
		return errors.New("resume object key is empty")
	}
	defer a.lockSession(sessionID)()

	stored, err := a.load(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if err := a.store.AttachResume(ctx, sessionID, r); err != nil {
		return fmt.Errorf("failed to attach resume: %w", err)
	}

	note := memory.Message{
		ID:      uuid.NewString(),
		Role:    memory.RoleUser,
		Content: fmt.Sprintf("我上传了简历文件《%s》，文件路径：%s%s", r.Filename, resume.ObjectScheme, r.ObjectKey),
	}
	current, err := a.sessions.Get(ctx, &session.GetRequest{
		AppName:   a.appName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return fmt.Errorf("failed to load agent session: %w", err)
	}
	if err := a.sessions.AppendEvent(ctx, current.Session, messageEvent("upload-"+uuid.NewString(), a.agentName, note)); err != nil {
		return fmt.Errorf("failed to record resume upload: %w", err)
	}
	return a.store.Save(ctx, sessionID, memory.Append(stored.Messages, []memory.Message{note}, a.maxMessages))
}

func (a *Assistant) Resumes(ctx context.Context, userID, sessionID string) ([]checkpoint.Resume, error) {
	if _, err := a.History(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return a.store.Resumes(ctx, sessionID)
}
