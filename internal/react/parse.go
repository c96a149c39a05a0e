package react

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ToolCall is a parsed tool invocation, regardless of which of the three
// free-form syntaxes the model used to express it.
type ToolCall struct {
	Name string
	Args map[string]any
}

var (
	jsonCodeBlock   = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	functionCallRe  = regexp.MustCompile(`(?s)([a-zA-Z_][a-zA-Z0-9_]*)\s*\(\s*(\{.*\})\s*\)`)
	answerBlockRe   = regexp.MustCompile(`(?s)<ANSWER>(.*?)</ANSWER>`)
)

type rawToolCall struct {
	Tool      string         `json:"tool"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Args      map[string]any `json:"args"`
	Params    map[string]any `json:"parameters"`
}

func (r rawToolCall) normalize() (ToolCall, bool) {
	name := r.Tool
	if name == "" {
		name = r.Name
	}
	if name == "" {
		return ToolCall{}, false
	}
	args := r.Arguments
	if args == nil {
		args = r.Args
	}
	if args == nil {
		args = r.Params
	}
	if args == nil {
		args = map[string]any{}
	}
	return ToolCall{Name: name, Args: args}, true
}

// ParseToolCall tries, in order: a ```json``` code block, a bare balanced
// JSON object with a tool/name key, then tool_name({...}) function-call
// syntax. The first form that parses into a recognizable tool call wins.
func ParseToolCall(content string) (ToolCall, bool) {
	if m := jsonCodeBlock.FindStringSubmatch(content); m != nil {
		if tc, ok := parseRawJSON(m[1]); ok {
			return tc, true
		}
	}

	if obj, ok := findBalancedJSONObject(content); ok {
		if tc, ok := parseRawJSON(obj); ok {
			return tc, true
		}
	}

	if m := functionCallRe.FindStringSubmatch(content); m != nil {
		var args map[string]any
		if err := json.Unmarshal([]byte(m[2]), &args); err == nil {
			if args == nil {
				args = map[string]any{}
			}
			return ToolCall{Name: m[1], Args: args}, true
		}
	}

	return ToolCall{}, false
}

func parseRawJSON(s string) (ToolCall, bool) {
	var raw rawToolCall
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return ToolCall{}, false
	}
	return raw.normalize()
}

// findBalancedJSONObject scans content for the first brace-balanced `{...}`
// span whose raw text contains the quoted string "tool" or "name" — a
// substring check, not a decode, so parseRawJSON still validates the span; a
// best-effort substitute for a real JSON-in-text grammar.
func findBalancedJSONObject(content string) (string, bool) {
	start := strings.IndexByte(content, '{')
	for start >= 0 {
		end, found := matchingBrace(content, start)
		if !found {
			return "", false
		}
		candidate := content[start : end+1]
		if strings.Contains(candidate, `"tool"`) || strings.Contains(candidate, `"name"`) {
			return candidate, true
		}
		next := strings.IndexByte(content[end+1:], '{')
		if next < 0 {
			return "", false
		}
		start = end + 1 + next
	}
	return "", false
}

// matchingBrace returns the index of the closing brace matching the open
// brace at content[start], honoring string-quoted braces.
func matchingBrace(content string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// ExtractAnswer pulls the first <ANSWER>...</ANSWER> block's trimmed
// contents, if present.
func ExtractAnswer(content string) (string, bool) {
	m := answerBlockRe.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

func marshalArgs(args map[string]any) ([]byte, error) {
	if args == nil {
		args = map[string]any{}
	}
	return json.Marshal(args)
}
