package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Schema describes a tool's name, purpose, and JSON argument shape for the
// ReAct agent's system prompt — the free-form text the agent's tool-call
// parser reads back against.
type Schema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Result is what a tool call hands back to the agent: the text placed into
// the conversation as the observation, plus structured metadata the caller
// (phase orchestration, token accounting) can inspect without re-parsing
// the text.
type Result struct {
	Text     string
	Metadata map[string]any
}

// Tool is an executable capability the agent can call. Call must not panic
// on malformed arguments — argument errors are returned as Go errors, which
// Dispatch turns into an observation-safe error Result rather than failing
// the session.
type Tool interface {
	Name() string
	JSONSchema() map[string]any
	Call(ctx context.Context, raw json.RawMessage) (Result, error)
}

// Registry keeps track of tools and dispatches calls by name.
type Registry interface {
	Schemas() []Schema
	Dispatch(ctx context.Context, name string, raw json.RawMessage) (Result, error)
	Register(t Tool)
}

type defaultRegistry struct {
	byName map[string]Tool
	order  []string
}

// NewRegistry returns a basic in-memory registry.
func NewRegistry() Registry {
	return &defaultRegistry{byName: make(map[string]Tool)}
}

func (r *defaultRegistry) Register(t Tool) {
	if _, exists := r.byName[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.byName[t.Name()] = t
}

func (r *defaultRegistry) Schemas() []Schema {
	out := make([]Schema, 0, len(r.order))
	for _, name := range r.order {
		schema := r.byName[name].JSONSchema()
		out = append(out, Schema{
			Name:        name,
			Description: strFrom(schema["description"]),
			Parameters:  mapFrom(schema["parameters"]),
		})
	}
	return out
}

// Dispatch looks up name and calls it. An unknown tool name is a hard
// error — the caller should treat this as a parsing bug, not feed it back
// to the model as an observation. A tool that itself returns an error is
// NOT a hard error: its error is folded into the Result text so the agent
// sees it as an observation and can retry differently.
func (r *defaultRegistry) Dispatch(ctx context.Context, name string, raw json.RawMessage) (Result, error) {
	t := r.byName[name]
	if t == nil {
		return Result{}, fmt.Errorf("tools: unknown tool %q", name)
	}
	res, err := t.Call(ctx, raw)
	if err != nil {
		return Result{Text: fmt.Sprintf("error: %s", err.Error())}, nil
	}
	return res, nil
}

func strFrom(v any) string         { s, _ := v.(string); return s }
func mapFrom(v any) map[string]any { m, _ := v.(map[string]any); return m }
