// Package apperror defines the router's error taxonomy and the caller-facing
// strings substituted for each class. No class ever surfaces as a non-200
// response: a hard failure here disrupts a live phone call.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes, used as sentinels with errors.Is at component boundaries.
var (
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
	ErrMalformedInput      = errors.New("malformed input")
	ErrUnknownTool         = errors.New("unknown tool")
	ErrConfigMissing       = errors.New("configuration missing")
)

// SearchUnavailable is spoken to the caller when the knowledge base cannot
// be reached or times out.
const SearchUnavailable = "I'm having trouble accessing the knowledge base right now. Let me connect you with an agent who can help."

// UnknownTool is returned as the per-invocation result for a dispatch miss,
// keeping drift between tool registration and router logic observable in
// transcripts.
func UnknownTool(name string) string {
	return fmt.Sprintf("Error: unknown tool %q", name)
}

// MissingArgument reports a tool invocation that arrived without a required
// argument.
func MissingArgument(tool, arg string) string {
	return fmt.Sprintf("Error: tool %q called without required argument %q", tool, arg)
}

// ConfigMissing reports absent configuration for one component. Distinct
// wording from upstream failures so the two are distinguishable in logs.
func ConfigMissing(component string, fields []string) string {
	return fmt.Sprintf("Configuration error: %s is missing %s", component, strings.Join(fields, ", "))
}
