package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoTool struct{}

func (echoTool) Name() string { return "echo" }
func (echoTool) JSONSchema() map[string]any {
	return map[string]any{"description": "echoes input", "parameters": map[string]any{}}
}
func (echoTool) Call(ctx context.Context, raw json.RawMessage) (Result, error) {
	return Result{Text: string(raw)}, nil
}

func TestDispatch_UnknownToolIsHardError(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool{})

	_, err := r.Dispatch(context.Background(), "does_not_exist", nil)
	assert.Error(t, err)
}

func TestDispatch_KnownToolReturnsResult(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool{})

	res, err := r.Dispatch(context.Background(), "echo", json.RawMessage(`{"x":1}`))
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, res.Text)
}

func TestRecordingRegistry_CallsOnForEveryDispatch(t *testing.T) {
	base := NewRegistry()
	base.Register(echoTool{})

	var events []DispatchEvent
	r := NewRecordingRegistry(base, func(e DispatchEvent) { events = append(events, e) })

	_, _ = r.Dispatch(context.Background(), "echo", json.RawMessage(`{}`))
	require.Len(t, events, 1)
	assert.Equal(t, "echo", events[0].Name)
}

func TestSchemas_PreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(namedTool{name: "b"})
	r.Register(namedTool{name: "a"})

	schemas := r.Schemas()
	require.Len(t, schemas, 2)
	assert.Equal(t, "b", schemas[0].Name)
	assert.Equal(t, "a", schemas[1].Name)
}

type namedTool struct{ name string }

func (n namedTool) Name() string { return n.name }
func (n namedTool) JSONSchema() map[string]any {
	return map[string]any{"description": n.name, "parameters": map[string]any{}}
}
func (n namedTool) Call(ctx context.Context, raw json.RawMessage) (Result, error) {
	return Result{}, nil
}
