// Package tools describes the functions the assistant can call and binds
// them to the resume, search and job posting packages.
package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// Spec is a callable tool. Invoke always returns text; argument problems and
// downstream failures are reported in the text.
type Spec interface {
	Name() string
	Description() string
	InputSchema() *jsonschema.Schema
	Invoke(ctx context.Context, args map[string]any) string
}

// stringTool is a tool taking a single required string argument.
type stringTool struct {
	name        string
	description string
	param       string
	paramDesc   string
	fn          func(ctx context.Context, value string) string
}

func (t stringTool) Name() string        { return t.name }
func (t stringTool) Description() string { return t.description }

func (t stringTool) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			t.param: {Type: "string", Description: t.paramDesc},
		},
		Required: []string{t.param},
	}
}

func (t stringTool) Invoke(ctx context.Context, args map[string]any) string {
	raw, ok := args[t.param]
	if !ok || raw == nil {
		return fmt.Sprintf("参数错误：缺少必填参数 '%s'。", t.param)
	}
	value, ok := raw.(string)
	if !ok {
		return fmt.Sprintf("参数错误：参数 '%s' 必须是字符串。", t.param)
	}
	if strings.TrimSpace(value) == "" && t.param != "resume_text" {
		return fmt.Sprintf("参数错误：参数 '%s' 不能为空。", t.param)
	}
	return t.fn(ctx, value)
}

// Names lists the names of specs in order.
func Names(specs []Spec) []string {
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name())
	}
	return names
}
