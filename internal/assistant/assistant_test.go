package assistant

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/muhammadolammi/jobmatchassistant/internal/checkpoint"
	"github.com/muhammadolammi/jobmatchassistant/internal/memory"
	"github.com/muhammadolammi/jobmatchassistant/internal/tools"
	"github.com/muhammadolammi/jobmatchassistant/internal/tracing"
)

// scriptedModel answers each request with the next scripted content and
// records what it was sent.
type scriptedModel struct {
	mu       sync.Mutex
	replies  []*genai.Content
	requests [][]*genai.Content
}

func (m *scriptedModel) Name() string { return "scripted" }

func (m *scriptedModel) GenerateContent(_ context.Context, req *model.LLMRequest, _ bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		m.mu.Lock()
		m.requests = append(m.requests, append([]*genai.Content(nil), req.Contents...))
		if len(m.replies) == 0 {
			m.mu.Unlock()
			yield(nil, errors.New("model unavailable"))
			return
		}
		next := m.replies[0]
		m.replies = m.replies[1:]
		m.mu.Unlock()
		yield(&model.LLMResponse{Content: next, TurnComplete: true}, nil)
	}
}

func (m *scriptedModel) lastRequest() []*genai.Content {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

func text(s string) *genai.Content {
	return &genai.Content{Role: "model", Parts: []*genai.Part{genai.NewPartFromText(s)}}
}

func call(id, name string, args map[string]any) *genai.Content {
	return &genai.Content{Role: "model", Parts: []*genai.Part{{FunctionCall: &genai.FunctionCall{ID: id, Name: name, Args: args}}}}
}

type companyTool struct {
	mu   sync.Mutex
	args []map[string]any
}

func (c *companyTool) Name() string        { return "search_company_info" }
func (c *companyTool) Description() string { return "搜索企业信息" }
func (c *companyTool) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{"company_name": {Type: "string"}},
		Required:   []string{"company_name"},
	}
}
func (c *companyTool) Invoke(_ context.Context, args map[string]any) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.args = append(c.args, args)
	return "企业信息查询结果：" + args["company_name"].(string)
}

func newAssistant(t *testing.T, llm model.LLM, store checkpoint.Store, max int, sink tracing.Sink, specs ...tools.Spec) *Assistant {
	t.Helper()
	a, err := New(context.Background(), Config{
		Model:       llm,
		Instruction: "你是职场JD智能分析助手",
		Tools:       specs,
		MaxMessages: max,
		Store:       store,
		Tracer:      sink,
	})
	require.NoError(t, err)
	return a
}

func contentText(c *genai.Content) string {
	var b strings.Builder
	for _, p := range c.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

func TestSendRunsToolAndRecordsHistory(t *testing.T) {
	ctx := context.Background()
	llm := &scriptedModel{replies: []*genai.Content{
		call("call-1", "search_company_info", map[string]any{"company_name": "腾讯"}),
		text("腾讯是一家大型互联网公司。"),
	}}
	company := &companyTool{}
	a := newAssistant(t, llm, nil, 0, nil, company)

	id, err := a.StartSession(ctx, "u1")
	require.NoError(t, err)

	reply, err := a.Send(ctx, "u1", id, "帮我了解一下腾讯")
	require.NoError(t, err)

	assert.Equal(t, id, reply.SessionID)
	assert.Equal(t, "腾讯是一家大型互联网公司。", reply.Text)
	assert.Equal(t, []string{"search_company_info"}, reply.ToolsUsed)
	require.Len(t, company.args, 1)
	assert.Equal(t, "腾讯", company.args[0]["company_name"])

	history, err := a.History(ctx, "u1", id)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, memory.RoleUser, history[0].Role)
	assert.Equal(t, "帮我了解一下腾讯", history[0].Content)
	assert.Equal(t, memory.RoleAssistant, history[1].Role)
	require.Len(t, history[1].ToolCalls, 1)
	assert.Equal(t, "search_company_info", history[1].ToolCalls[0].Name)
	assert.Equal(t, memory.RoleTool, history[2].Role)
	assert.Equal(t, "企业信息查询结果：腾讯", history[2].Content)
	assert.Equal(t, history[1].ToolCalls[0].ID, history[2].ToolCallID)
	assert.Equal(t, memory.RoleAssistant, history[3].Role)
	assert.Equal(t, "腾讯是一家大型互联网公司。", history[3].Content)

	second := llm.requests[1]
	require.NotEmpty(t, second)
	assert.NotNil(t, second[len(second)-1].Parts[0].FunctionResponse)
}

func TestSendRestoresFromCheckpoint(t *testing.T) {
	ctx := context.Background()
	store := checkpoint.NewMemory()

	first := newAssistant(t, &scriptedModel{replies: []*genai.Content{text("第一个回答")}}, store, 0, nil)
	id, err := first.StartSession(ctx, "u1")
	require.NoError(t, err)
	_, err = first.Send(ctx, "u1", id, "第一个问题")
	require.NoError(t, err)

	llm := &scriptedModel{replies: []*genai.Content{text("第二个回答")}}
	restarted := newAssistant(t, llm, store, 0, nil)
	reply, err := restarted.Send(ctx, "u1", id, "第二个问题")
	require.NoError(t, err)
	assert.Equal(t, "第二个回答", reply.Text)

	req := llm.lastRequest()
	require.Len(t, req, 3)
	assert.Equal(t, "第一个问题", contentText(req[0]))
	assert.Equal(t, "第一个回答", contentText(req[1]))
	assert.Equal(t, "第二个问题", contentText(req[2]))

	history, err := restarted.History(ctx, "u1", id)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestSendKeepsWindow(t *testing.T) {
	ctx := context.Background()
	llm := &scriptedModel{replies: []*genai.Content{text("一"), text("二"), text("三"), text("四")}}
	a := newAssistant(t, llm, nil, 3, nil)
	id, err := a.StartSession(ctx, "u1")
	require.NoError(t, err)

	for _, q := range []string{"问题1", "问题2", "问题3", "问题4"} {
		_, err := a.Send(ctx, "u1", id, q)
		require.NoError(t, err)

		history, err := a.History(ctx, "u1", id)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(history), 3)
		assert.LessOrEqual(t, len(llm.lastRequest()), 3)
	}

	history, err := a.History(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, "四", history[len(history)-1].Content)
	assert.Equal(t, "问题4", contentText(llm.lastRequest()[len(llm.lastRequest())-1]))
}

func TestSessionErrors(t *testing.T) {
	ctx := context.Background()
	a := newAssistant(t, &scriptedModel{}, nil, 0, nil)

	_, err := a.Send(ctx, "u1", "missing", "你好")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	id, err := a.StartSession(ctx, "u1")
	require.NoError(t, err)

	_, err = a.Send(ctx, "someone-else", id, "你好")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = a.Send(ctx, "u1", id, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = a.History(ctx, "someone-else", id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSendFailureLeavesCheckpointUsable(t *testing.T) {
	ctx := context.Background()
	store := checkpoint.NewMemory()
	llm := &scriptedModel{}
	a := newAssistant(t, llm, store, 0, nil)
	id, err := a.StartSession(ctx, "u1")
	require.NoError(t, err)

	_, err = a.Send(ctx, "u1", id, "你好")
	require.Error(t, err)

	stored, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, checkpoint.StatusFailed, stored.Status)
	assert.Empty(t, stored.Messages)

	llm.replies = []*genai.Content{text("恢复了")}
	reply, err := a.Send(ctx, "u1", id, "再试一次")
	require.NoError(t, err)
	assert.Equal(t, "恢复了", reply.Text)
	assert.Equal(t, "再试一次", contentText(llm.lastRequest()[0]))

	stored, err = store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, checkpoint.StatusActive, stored.Status)
}

func TestSendTracesTurnAndTools(t *testing.T) {
	ctx := context.Background()
	recorder := tracetest.NewSpanRecorder()
	sink := tracing.NewOTel(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)), "test")
	llm := &scriptedModel{replies: []*genai.Content{
		call("call-1", "search_company_info", map[string]any{"company_name": "字节跳动"}),
		text("好的"),
	}}
	a := newAssistant(t, llm, nil, 0, sink, &companyTool{})
	id, err := a.StartSession(ctx, "u1")
	require.NoError(t, err)

	_, err = a.Send(ctx, "u1", id, "字节跳动怎么样")
	require.NoError(t, err)

	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	assert.Contains(t, names, "tool.search_company_info")
	assert.Contains(t, names, "assistant.turn")
}

func TestAttachResumeAddsNote(t *testing.T) {
	ctx := context.Background()
	llm := &scriptedModel{replies: []*genai.Content{text("收到")}}
	a := newAssistant(t, llm, nil, 0, nil)
	id, err := a.StartSession(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, a.AttachResume(ctx, "u1", id, checkpoint.Resume{
		Filename:  "张三.pdf",
		Mime:      "application/pdf",
		ObjectKey: "uploads/zhangsan.pdf",
	}))

	resumes, err := a.Resumes(ctx, "u1", id)
	require.NoError(t, err)
	require.Len(t, resumes, 1)
	assert.Equal(t, "uploads/zhangsan.pdf", resumes[0].ObjectKey)

	_, err = a.Send(ctx, "u1", id, "帮我分析这份简历")
	require.NoError(t, err)
	req := llm.lastRequest()
	require.NotEmpty(t, req)
	assert.Contains(t, contentText(req[0]), "r2://uploads/zhangsan.pdf")

	assert.Error(t, a.AttachResume(ctx, "u1", id, checkpoint.Resume{}))
}

func TestEndSession(t *testing.T) {
	ctx := context.Background()
	a := newAssistant(t, &scriptedModel{}, nil, 0, nil)
	id, err := a.StartSession(ctx, "u1")
	require.NoError(t, err)

	assert.ErrorIs(t, a.EndSession(ctx, "u2", id), ErrSessionNotFound)
	require.NoError(t, a.EndSession(ctx, "u1", id))

	_, err = a.History(ctx, "u1", id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestWindowRequestDropsOrphanedResponses(t *testing.T) {
	a := &Assistant{maxMessages: 2}
	response := &genai.Content{Role: "user", Parts: []*genai.Part{{FunctionResponse: &genai.FunctionResponse{ID: "c1", Name: "t"}}}}
	req := &model.LLMRequest{Contents: []*genai.Content{
		genai.NewContentFromText("q1", genai.RoleUser),
		call("c1", "t", nil),
		response,
		text("a1"),
	}}

	_, err := a.windowRequest(nil, req)
	require.NoError(t, err)
	require.Len(t, req.Contents, 1)
	assert.Equal(t, "a1", contentText(req.Contents[0]))
}

func TestSessionLocksAreReleased(t *testing.T) {
	ctx := context.Background()
	a := newAssistant(t, &scriptedModel{replies: []*genai.Content{text("好的")}}, nil, 0, nil)

	id, err := a.StartSession(ctx, "u1")
	require.NoError(t, err)
	_, err = a.Send(ctx, "u1", id, "你好")
	require.NoError(t, err)
	_, err = a.Send(ctx, "u2", id, "你好")
	require.ErrorIs(t, err, ErrSessionNotFound)

	assert.Empty(t, a.locks)
}

func TestLockSessionSerialisesHolders(t *testing.T) {
	a := newAssistant(t, &scriptedModel{}, nil, 0, nil)

	unlock := a.lockSession("s1")
	acquired := make(chan func())
	go func() { acquired <- a.lockSession("s1") }()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held lock")
	case <-time.After(50 * time.Millisecond):
	}
	a.mu.Lock()
	assert.Equal(t, 2, a.locks["s1"].refs)
	a.mu.Unlock()

	unlock()
	(<-acquired)()

	a.mu.Lock()
	defer a.mu.Unlock()
	assert.Empty(t, a.locks)
}

func TestNewLogsToolSet(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	newAssistant(t, &scriptedModel{}, nil, 0, nil, &companyTool{})

	assert.Contains(t, buf.String(), "assistant ready")
	assert.Contains(t, buf.String(), "search_company_info")
}
