// Package openaicompat adapts an OpenAI-compatible chat completions API, such
// as Moonshot's Kimi, to the agent framework's model.LLM interface.
package openaicompat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"google.golang.org/adk/model"
)

const DefaultBaseURL = "https://api.moonshot.cn/v1"

var dataPrefix = []byte("data:")

type httpDoer interface {
	Do(*http.Request) (*http.Response, error)
}

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature *float64
	Timeout     time.Duration
	// HTTPClient overrides the client built from Timeout.
	HTTPClient httpDoer
}

// APIError is a non-2xx reply from the completions endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("unexpected status code: %d, body: %s", e.StatusCode, e.Body)
}

type Model struct {
	url         string
	apiKey      string
	name        string
	temperature *float64
	client      httpDoer
}

var _ model.LLM = (*Model)(nil)

func New(cfg Config) *Model {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Model{
		url:         base + "/chat/completions",
		apiKey:      cfg.APIKey,
		name:        cfg.Model,
		temperature: cfg.Temperature,
		client:      client,
	}
}

func (m *Model) Name() string { return m.name }

// GenerateContent sends req and yields the reply. With stream set, text
// arrives as partial responses followed by one complete response carrying
// the full text and any tool calls.
func (m *Model) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		res, err := m.send(ctx, req, stream)
		if err != nil {
			yield(nil, err)
			return
		}
		defer res.Body.Close()

		if !stream {
			resp, err := decodeResponse(res.Body)
			yield(resp, err)
			return
		}
		m.readStream(res.Body, yield)
	}
}

func (m *Model) send(ctx context.Context, req *model.LLMRequest, stream bool) (*http.Response, error) {
	msgs, err := toMessages(req)
	if err != nil {
		return nil, err
	}
	tools, err := toTools(req)
	if err != nil {
		return nil, err
	}
	body := chatRequest{
		Model:       m.name,
		Messages:    msgs,
		Temperature: m.temperature,
		Stream:      stream,
		Tools:       tools,
	}
	if req.Model != "" {
		body.Model = req.Model
	}
	if req.Config != nil && req.Config.Temperature != nil {
		t := float64(*req.Config.Temperature)
		body.Temperature = &t
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	res, err := m.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		defer res.Body.Close()
		excerpt, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return nil, &APIError{StatusCode: res.StatusCode, Body: string(excerpt)}
	}
	return res, nil
}

func decodeResponse(r io.Reader) (*model.LLMResponse, error) {
	var out chatResponse
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("response has no choices")
	}
	msg := out.Choices[0].Message
	content, err := toContent(msg.Content, msg.ToolCalls)
	if err != nil {
		return nil, err
	}
	return &model.LLMResponse{
		Content:       content,
		UsageMetadata: usageMetadata(out.Usage),
		TurnComplete:  true,
	}, nil
}

// callBuilder accumulates one streamed tool call. Arguments arrive as JSON
// fragments keyed by the call's index.
type callBuilder struct {
	id   string
	name string
	args strings.Builder
}

func (m *Model) readStream(body io.Reader, yield func(*model.LLMResponse, error) bool) {
	var (
		text  strings.Builder
		calls = map[int]*callBuilder{}
		last  *usage
	)

	br := bufio.NewReader(body)
	for {
		line, readErr := br.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if bytes.HasPrefix(line, dataPrefix) {
			payload := bytes.TrimSpace(bytes.TrimPrefix(line, dataPrefix))
			if string(payload) == "[DONE]" {
				break
			}
			var chunk chatCompletionChunk
			if err := json.Unmarshal(payload, &chunk); err != nil {
				slog.Debug("skipping undecodable stream chunk", "chunk", string(payload), "error", err)
			} else {
				if chunk.Usage != nil {
					last = chunk.Usage
				}
				if piece := applyChunk(chunk, calls); piece != "" {
					text.WriteString(piece)
					partial, _ := toContent(piece, nil)
					if !yield(&model.LLMResponse{Content: partial, Partial: true}, nil) {
						return
					}
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			yield(nil, fmt.Errorf("failed to read line: %w", readErr))
			return
		}
	}

	content, err := toContent(text.String(), orderedCalls(calls))
	if err != nil {
		yield(nil, err)
		return
	}
	yield(&model.LLMResponse{
		Content:       content,
		UsageMetadata: usageMetadata(last),
		TurnComplete:  true,
	}, nil)
}

// applyChunk folds tool call deltas into calls and returns the text delta.
func applyChunk(chunk chatCompletionChunk, calls map[int]*callBuilder) string {
	if len(chunk.Choices) == 0 {
		return ""
	}
	d := chunk.Choices[0].Delta
	for _, tc := range d.ToolCalls {
		b, ok := calls[tc.Index]
		if !ok {
			b = &callBuilder{}
			calls[tc.Index] = b
		}
		if tc.ID != "" {
			b.id = tc.ID
		}
		if tc.Function.Name != "" {
			b.name = tc.Function.Name
		}
		b.args.WriteString(tc.Function.Arguments)
	}
	return d.Content
}

func orderedCalls(calls map[int]*callBuilder) []toolCall {
	indexes := make([]int, 0, len(calls))
	for i := range calls {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	out := make([]toolCall, 0, len(indexes))
	for _, i := range indexes {
		b := calls[i]
		out = append(out, toolCall{
			Index:    i,
			ID:       b.id,
			Type:     "function",
			Function: functionCall{Name: b.name, Arguments: b.args.String()},
		})
	}
	return out
}
