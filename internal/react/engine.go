// Package react implements the ReAct agent's bounded reason-act loop:
// prompt assembly, best-effort tool-call parsing over free-form LLM text,
// observation feedback, and answer extraction.
package react

import (
	"context"
	"fmt"
	"strings"

	"sirchmunk/internal/llm"
	"sirchmunk/internal/searchctx"
	"sirchmunk/internal/tools"
)

const (
	maxObservationChars = 8000
	nudgeText           = "Your last turn contained neither a tool call nor an <ANSWER> block. " +
		"Call exactly one tool, or wrap your final answer in <ANSWER>...</ANSWER>."
)

// Engine runs one ReAct session: Init → optional preseed keyword_search →
// LoopIteration (LLM turn → parse → tool call or answer or nudge) →
// ForceSynthesis when the budget or loop limit is hit → End.
type Engine struct {
	LLM   llm.Provider
	Tools tools.Registry
	Ctx   *searchctx.Context
	Model string

	// System is the strategy/role text prepended to the tool-schema block in
	// the system prompt. Tool schemas, budget counters, and loop counters are
	// appended automatically on every turn.
	System string

	// OnAssistant is invoked with every assistant turn's raw content.
	OnAssistant func(content string)
	// OnToolStart is invoked just before a parsed tool call is dispatched.
	OnToolStart func(toolName string, args string)
	// OnTool is invoked with a tool call's result after dispatch.
	OnTool func(toolName string, args string, result tools.Result, err error)
}

// Run executes the full state machine for one query. initialKeywords, when
// non-empty and a keyword_search tool is registered, is executed once
// before the first LLM call (the preseed step), converting a known-good
// first move into zero LLM tokens.
func (e *Engine) Run(ctx context.Context, query string, initialKeywords []string) (string, error) {
	e.Ctx.AddSearch(query)

	messages := []llm.Message{
		{Role: "system", Content: e.systemPrompt()},
		{Role: "user", Content: query},
	}

	if len(initialKeywords) > 0 {
		messages = e.preseed(ctx, messages, initialKeywords)
	}

	for {
		if e.Ctx.IsBudgetExceeded() || e.Ctx.IsLoopLimitReached() {
			return e.forceSynthesis(ctx, messages)
		}

		e.Ctx.IncrementLoop()
		resp, err := e.LLM.Chat(ctx, messages, llm.ChatOptions{Model: e.Model})
		if err != nil {
			return "", fmt.Errorf("react: llm turn: %w", err)
		}
		e.Ctx.AddLLMTokens(searchctx.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		})
		if e.OnAssistant != nil {
			e.OnAssistant(resp.Content)
		}
		messages = append(messages, llm.Message{Role: "assistant", Content: resp.Content})

		if answer, ok := ExtractAnswer(resp.Content); ok {
			return answer, nil
		}

		call, ok := ParseToolCall(resp.Content)
		if !ok {
			messages = append(messages, llm.Message{Role: "user", Content: e.continuation(nudgeText)})
			continue
		}

		observation := e.callTool(ctx, call)
		messages = append(messages, llm.Message{Role: "user", Content: e.continuation(observation)})
	}
}

// preseed runs keyword_search once before the first LLM call and splices a
// synthetic assistant+tool-result exchange into the conversation.
func (e *Engine) preseed(ctx context.Context, messages []llm.Message, keywords []string) []llm.Message {
	registered := false
	for _, s := range e.Tools.Schemas() {
		if s.Name == "keyword_search" {
			registered = true
			break
		}
	}
	if !registered {
		return messages
	}

	call := ToolCall{Name: "keyword_search", Args: map[string]any{"keywords": keywords}}
	observation := e.callTool(ctx, call)

	synthCall := fmt.Sprintf(`{"tool":"keyword_search","arguments":{"keywords":%s}}`, jsonStringList(keywords))
	messages = append(messages,
		llm.Message{Role: "assistant", Content: synthCall},
		llm.Message{Role: "user", Content: e.continuation(observation)},
	)
	return messages
}

func (e *Engine) callTool(ctx context.Context, call ToolCall) string {
	rawArgs, _ := marshalArgs(call.Args)
	if e.OnToolStart != nil {
		e.OnToolStart(call.Name, string(rawArgs))
	}

	res, err := e.Tools.Dispatch(ctx, call.Name, rawArgs)
	if e.OnTool != nil {
		e.OnTool(call.Name, string(rawArgs), res, err)
	}
	if err != nil {
		return fmt.Sprintf("tool dispatch failed: %s", err.Error())
	}

	tokens := approxTokens(res.Text)
	if call.Name == "knowledge_query" {
		tokens = 0 // its cost is one embedding call, not retrieved text
	}
	e.Ctx.AddLog(call.Name, tokens, res.Metadata)
	for _, p := range discoveredPaths(res.Metadata) {
		e.Ctx.MarkFileRead(p)
	}

	text := res.Text
	if len(text) > maxObservationChars {
		text = text[:maxObservationChars]
	}
	return text
}

// forceSynthesis asks the model to synthesize its best answer from
// accumulated evidence when the budget or loop limit has been reached.
func (e *Engine) forceSynthesis(ctx context.Context, messages []llm.Message) (string, error) {
	messages = append(messages, llm.Message{
		Role: "user",
		Content: "Budget or loop limit reached. Synthesize the best possible answer from the evidence " +
			"gathered so far. Wrap it in <ANSWER>...</ANSWER> if possible.",
	})
	resp, err := e.LLM.Chat(ctx, messages, llm.ChatOptions{Model: e.Model})
	if err != nil {
		return "", fmt.Errorf("react: force synthesis: %w", err)
	}
	e.Ctx.AddLLMTokens(searchctx.Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	})
	if e.OnAssistant != nil {
		e.OnAssistant(resp.Content)
	}
	if answer, ok := ExtractAnswer(resp.Content); ok {
		return answer, nil
	}
	return resp.Content, nil
}

func (e *Engine) systemPrompt() string {
	var sb strings.Builder
	sb.WriteString(e.System)
	sb.WriteString("\n\nAvailable tools:\n")
	for _, s := range e.Tools.Schemas() {
		fmt.Fprintf(&sb, "- %s: %s\n", s.Name, s.Description)
	}
	sb.WriteString("\nTo call a tool, respond with a JSON object: ")
	sb.WriteString(`{"tool":"<name>","arguments":{...}}`)
	sb.WriteString(" wrapped in a ```json code block, or bare. ")
	sb.WriteString("To give your final answer, wrap it in <ANSWER>...</ANSWER>.\n")
	sb.WriteString(e.counters())
	return sb.String()
}

func (e *Engine) continuation(observationOrNudge string) string {
	return fmt.Sprintf("**Tool result**: %s\n\n%s", observationOrNudge, e.counters())
}

func (e *Engine) counters() string {
	return fmt.Sprintf(
		"[budget_remaining=%d loop=%d/%d]",
		e.Ctx.BudgetRemaining(), e.Ctx.LoopCount(), e.Ctx.MaxLoops,
	)
}

// approxTokens is a cheap token-count proxy (chars/4) used for retrieval-log
// bookkeeping — tool results don't carry an LLM usage report.
func approxTokens(text string) int {
	return len(text) / 4
}

func discoveredPaths(metadata map[string]any) []string {
	raw, ok := metadata["discovered_paths"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	default:
		return nil
	}
}

func jsonStringList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}
