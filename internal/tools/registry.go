package tools

import (
	"context"
	"encoding/json"
)

// DispatchEvent captures a single tool dispatch invocation and result.
type DispatchEvent struct {
	Name   string
	Args   json.RawMessage
	Result Result
	Err    error
}

type recordingRegistry struct {
	base Registry
	on   func(DispatchEvent)
}

// NewRecordingRegistry wraps an existing Registry and calls on for each Dispatch.
func NewRecordingRegistry(base Registry, on func(DispatchEvent)) Registry {
	if base == nil {
		base = NewRegistry()
	}
	return &recordingRegistry{base: base, on: on}
}

func (r *recordingRegistry) Register(t Tool)   { r.base.Register(t) }
func (r *recordingRegistry) Schemas() []Schema { return r.base.Schemas() }

func (r *recordingRegistry) Dispatch(ctx context.Context, name string, raw json.RawMessage) (Result, error) {
	res, err := r.base.Dispatch(ctx, name, raw)
	if r.on != nil {
		r.on(DispatchEvent{Name: name, Args: raw, Result: res, Err: err})
	}
	return res, err
}
