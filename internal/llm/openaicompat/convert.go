package openaicompat

import (
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// toMessages flattens the request contents into chat messages. Function
// responses become tool messages and function calls become assistant
// tool_calls.
func toMessages(req *model.LLMRequest) ([]chatMessage, error) {
	var msgs []chatMessage
	if req.Config != nil && req.Config.SystemInstruction != nil {
		if sp := partsText(req.Config.SystemInstruction.Parts); sp != "" {
			msgs = append(msgs, chatMessage{Role: "system", Content: sp})
		}
	}

	for _, c := range req.Contents {
		if c == nil {
			continue
		}
		switch c.Role {
		case string(genai.RoleModel):
			msg := chatMessage{Role: "assistant", Content: partsText(c.Parts)}
			for _, p := range c.Parts {
				if p.FunctionCall == nil {
					continue
				}
				args, err := json.Marshal(p.FunctionCall.Args)
				if err != nil {
					return nil, fmt.Errorf("encode args of %s: %w", p.FunctionCall.Name, err)
				}
				msg.ToolCalls = append(msg.ToolCalls, toolCall{
					Index:    len(msg.ToolCalls),
					ID:       p.FunctionCall.ID,
					Type:     "function",
					Function: functionCall{Name: p.FunctionCall.Name, Arguments: string(args)},
				})
			}
			if msg.Content == "" && len(msg.ToolCalls) == 0 {
				continue
			}
			msgs = append(msgs, msg)
		default:
			for _, p := range c.Parts {
				if p.FunctionResponse == nil {
					continue
				}
				content, err := responseText(p.FunctionResponse.Response)
				if err != nil {
					return nil, fmt.Errorf("encode response of %s: %w", p.FunctionResponse.Name, err)
				}
				msgs = append(msgs, chatMessage{
					Role:       "tool",
					Content:    content,
					ToolCallID: p.FunctionResponse.ID,
					Name:       p.FunctionResponse.Name,
				})
			}
			if text := partsText(c.Parts); text != "" {
				msgs = append(msgs, chatMessage{Role: "user", Content: text})
			}
		}
	}
	return msgs, nil
}

func partsText(parts []*genai.Part) string {
	var b strings.Builder
	for _, p := range parts {
		if p == nil || p.Thought || p.Text == "" {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

// responseText unwraps {"result": "..."} to the bare string and encodes any
// other response as JSON.
func responseText(resp map[string]any) (string, error) {
	if len(resp) == 1 {
		if s, ok := resp["result"].(string); ok {
			return s, nil
		}
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func toTools(req *model.LLMRequest) ([]toolSuper, error) {
	if req.Config == nil {
		return nil, nil
	}
	var out []toolSuper
	for _, t := range req.Config.Tools {
		if t == nil {
			continue
		}
		for _, fd := range t.FunctionDeclarations {
			params, err := parameters(fd)
			if err != nil {
				return nil, fmt.Errorf("encode parameters of %s: %w", fd.Name, err)
			}
			out = append(out, toolSuper{
				Type: "function",
				Function: toolFunction{
					Name:        fd.Name,
					Description: fd.Description,
					Parameters:  params,
				},
			})
		}
	}
	return out, nil
}

func parameters(fd *genai.FunctionDeclaration) (json.RawMessage, error) {
	switch {
	case fd.ParametersJsonSchema != nil:
		return json.Marshal(fd.ParametersJsonSchema)
	case fd.Parameters != nil:
		return json.Marshal(schemaMap(fd.Parameters))
	default:
		return json.RawMessage(`{"type":"object","properties":{}}`), nil
	}
}

// schemaMap rewrites a genai schema into JSON Schema, whose type names are
// lower case.
func schemaMap(s *genai.Schema) map[string]any {
	out := map[string]any{"type": strings.ToLower(string(s.Type))}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	if s.Items != nil {
		out["items"] = schemaMap(s.Items)
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = schemaMap(p)
		}
		out["properties"] = props
	}
	return out
}

// toContent builds the model turn of a response.
func toContent(text string, calls []toolCall) (*genai.Content, error) {
	content := &genai.Content{Role: string(genai.RoleModel)}
	if text != "" {
		content.Parts = append(content.Parts, genai.NewPartFromText(text))
	}
	for _, call := range calls {
		args := map[string]any{}
		if strings.TrimSpace(call.Function.Arguments) != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("decode arguments of %s: %w", call.Function.Name, err)
			}
		}
		content.Parts = append(content.Parts, &genai.Part{FunctionCall: &genai.FunctionCall{
			ID:   call.ID,
			Name: call.Function.Name,
			Args: args,
		}})
	}
	return content, nil
}

func usageMetadata(u *usage) *genai.GenerateContentResponseUsageMetadata {
	if u == nil {
		return nil
	}
	return &genai.GenerateContentResponseUsageMetadata{
		PromptTokenCount:     u.PromptTokens,
		CandidatesTokenCount: u.CompletionTokens,
		TotalTokenCount:      u.TotalTokens,
	}
}
