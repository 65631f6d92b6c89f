// Package model defines the normalized webhook event shapes.
//
// The voice platform's payload layout has drifted across releases: the event
// type and tool calls may sit at the top level or under a "message" key, tool
// calls arrive as "toolCallList", "toolCalls" or wrapped in
// "toolWithToolCallList", and arguments may be a JSON string or an object.
// ParseEvent absorbs every known shape here so nothing downstream branches on
// shape again.
package model

import "encoding/json"

// EventKind discriminates the normalized webhook event union.
type EventKind string

const (
	KindAssistantRequest EventKind = "assistant-request"
	KindToolCalls        EventKind = "tool-calls"
	KindNonActionable    EventKind = "non-actionable"
	KindUnknown          EventKind = "unknown"
)

// nonActionableTypes are informational events that only need an
// acknowledgement. Answering them without work keeps call latency flat when
// the platform floods status chatter.
var nonActionableTypes = map[string]bool{
	"status-update":       true,
	"speech-update":       true,
	"transcript":          true,
	"conversation-update": true,
	"hang":                true,
	"end-of-call-report":  true,
	"phone-call-control":  true,
	"user-interrupted":    true,
}

// ToolInvocation is one tool call requested by the assistant. ID is opaque
// and echoed back unchanged; Arguments is nil when none were supplied.
type ToolInvocation struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// WebhookEvent is the immutable normalized form of one inbound webhook body,
// constructed once per request by ParseEvent.
type WebhookEvent struct {
	Kind         EventKind
	RawType      string
	CallerNumber string
	ToolCalls    []ToolInvocation
	TopLevelKeys []string
}

// ToolResponseEntry pairs a tool call id with its string result. The
// platform's tool-result contract is string-only; structured data is
// serialized to a JSON string before it lands here.
type ToolResponseEntry struct {
	ToolCallID string `json:"toolCallId"`
	Result     string `json:"result"`
}

// ParseEvent builds a WebhookEvent from a raw JSON body. Classification is
// deliberately permissive: an unrecognized type still becomes tool-calls or
// assistant-request when a tool-call list or caller number can be located.
func ParseEvent(body []byte) (*WebhookEvent, error) {
	var top map[string]any
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, err
	}

	ev := &WebhookEvent{Kind: KindUnknown}
	for key := range top {
		ev.TopLevelKeys = append(ev.TopLevelKeys, key)
	}

	envelope := top
	if msg, ok := top["message"].(map[string]any); ok {
		envelope = msg
	}

	if t, ok := envelope["type"].(string); ok {
		ev.RawType = t
	} else if t, ok := top["type"].(string); ok {
		ev.RawType = t
	}

	ev.CallerNumber = extractCallerNumber(top, envelope)
	ev.ToolCalls = extractToolCalls(top, envelope)

	switch {
	case ev.RawType == "assistant-request":
		ev.Kind = KindAssistantRequest
	case ev.RawType == "tool-calls" || ev.RawType == "function-call":
		ev.Kind = KindToolCalls
	case nonActionableTypes[ev.RawType]:
		ev.Kind = KindNonActionable
	case len(ev.ToolCalls) > 0:
		ev.Kind = KindToolCalls
	case ev.CallerNumber != "":
		ev.Kind = KindAssistantRequest
	}

	return ev, nil
}

func extractCallerNumber(top, envelope map[string]any) string {
	paths := []map[string]any{envelope, top}
	for _, root := range paths {
		if call, ok := root["call"].(map[string]any); ok {
			if n := customerNumber(call); n != "" {
				return n
			}
		}
		if n := customerNumber(root); n != "" {
			return n
		}
	}
	return ""
}

func customerNumber(m map[string]any) string {
	customer, ok := m["customer"].(map[string]any)
	if !ok {
		return ""
	}
	n, _ := customer["number"].(string)
	return n
}

// extractToolCalls checks each known list key in priority order, envelope
// before top level. First non-empty list wins.
func extractToolCalls(top, envelope map[string]any) []ToolInvocation {
	keys := []string{"toolCallList", "toolCalls", "toolWithToolCallList"}
	for _, root := range []map[string]any{envelope, top} {
		for _, key := range keys {
			list, ok := root[key].([]any)
			if !ok || len(list) == 0 {
				continue
			}
			if calls := normalizeToolCalls(list); len(calls) > 0 {
				return calls
			}
		}
	}
	return nil
}

func normalizeToolCalls(list []any) []ToolInvocation {
	calls := make([]ToolInvocation, 0, len(list))
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		// toolWithToolCallList wraps the actual call under "toolCall".
		if wrapped, ok := entry["toolCall"].(map[string]any); ok {
			entry = wrapped
		}

		inv := ToolInvocation{}
		inv.ID, _ = entry["id"].(string)

		fn, ok := entry["function"].(map[string]any)
		if !ok {
			continue
		}
		inv.Name, _ = fn["name"].(string)
		inv.Arguments = parseArguments(fn["arguments"])

		if inv.Name != "" {
			calls = append(calls, inv)
		}
	}
	return calls
}

// parseArguments accepts either the structured object form or the
// JSON-string form the platform sometimes emits. Unparseable input yields
// nil; the dispatcher reports missing arguments per tool.
func parseArguments(raw any) map[string]any {
	switch v := raw.(type) {
	case map[string]any:
		return v
	case string:
		var args map[string]any
		if err := json.Unmarshal([]byte(v), &args); err != nil {
			return nil
		}
		return args
	default:
		return nil
	}
}
