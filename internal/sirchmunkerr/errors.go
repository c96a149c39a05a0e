// Package sirchmunkerr defines typed error kinds and a wrapper so callers can
// branch on failure category (is this a config problem, a storage
// corruption, a budget sentinel?) without string matching. The other
// packages of this module return plain errors wrapped with fmt.Errorf and do
// not construct these values.
package sirchmunkerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure into one of the categories the failure model
// distinguishes. Most kinds degrade quality rather than aborting a session;
// KindBudget in particular is never fatal.
type Kind int

const (
	// KindUnknown is the zero value; never constructed intentionally.
	KindUnknown Kind = iota
	// KindConfig marks a missing or invalid required setting.
	KindConfig
	// KindExternalProcess marks a spawn, timeout, or non-zero exit from an
	// external process (rga or equivalent).
	KindExternalProcess
	// KindExtraction marks a format-specific content extractor failure.
	KindExtraction
	// KindLLMTransport marks a network or authentication failure talking to
	// the LLM service.
	KindLLMTransport
	// KindLLMResponse marks a malformed or missing tagged field in an LLM
	// response (e.g. no <ANSWER> tag where one was required).
	KindLLMResponse
	// KindStorage marks an I/O failure or detected corruption in the
	// cluster store or spec cache.
	KindStorage
	// KindBudget marks a session-level budget exhaustion. Not fatal — callers
	// treat this as a signal to force synthesis, not to abort.
	KindBudget
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindExternalProcess:
		return "external_process"
	case KindExtraction:
		return "extraction"
	case KindLLMTransport:
		return "llm_transport"
	case KindLLMResponse:
		return "llm_response"
	case KindStorage:
		return "storage"
	case KindBudget:
		return "budget"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with the operation that produced it and
// its Kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an Error for op failing with cause err and the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err (or any error it wraps) is a sirchmunkerr.Error of
// kind k.
func Is(err error, k Kind) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == k
	}
	return false
}
