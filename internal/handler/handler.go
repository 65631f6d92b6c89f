// Package handler contains HTTP handlers for the webhook API.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"voice-webhook-router/internal/apperror"
	"voice-webhook-router/internal/config"
	"voice-webhook-router/internal/crm"
	"voice-webhook-router/internal/model"
	"voice-webhook-router/internal/search"
)

const genericGreeting = "Thank you for calling! How can I help you today?"

// Handler routes inbound voice-platform webhook events. Stateless per
// request; every path answers 200 with a JSON body because the platform
// penalizes non-2xx or slow responses during a live call.
type Handler struct {
	log    *zap.Logger
	cfg    *config.Config
	lookup crm.Lookup
	search search.Searcher
}

// New creates a new Handler instance.
func New(logger *zap.Logger, cfg *config.Config, lookup crm.Lookup, searcher search.Searcher) *Handler {
	return &Handler{log: logger, cfg: cfg, lookup: lookup, search: searcher}
}

// Healthz is a simple health check endpoint.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Webhook is the single entry point for all voice-platform events. The
// outermost recover boundary swallows any internal failure and substitutes
// the no-op success body.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			h.log.Error("webhook handler panicked", zap.Any("panic", rec))
			h.respond(w, map[string]any{"success": true})
		}
	}()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.log.Error("failed to read webhook body", zap.Error(err))
		h.respond(w, map[string]any{"success": true})
		return
	}

	ev, err := model.ParseEvent(body)
	if err != nil {
		h.log.Warn("unparseable webhook body", zap.Error(err))
		h.respond(w, map[string]any{"success": true})
		return
	}

	h.log.Info("event classified",
		zap.String("kind", string(ev.Kind)),
		zap.String("rawType", ev.RawType),
		zap.Int("toolCalls", len(ev.ToolCalls)))

	switch ev.Kind {
	case model.KindAssistantRequest:
		h.respond(w, h.handleAssistantRequest(r.Context(), ev))
	case model.KindToolCalls:
		h.respond(w, h.handleToolCalls(r.Context(), ev))
	case model.KindNonActionable:
		h.respond(w, map[string]any{"success": true})
	default:
		h.respond(w, h.fallbackResponse(ev))
	}
}

// assistantResponse selects the fixed downstream assistant and injects the
// per-call greeting through its one override extension point.
type assistantResponse struct {
	AssistantID        string             `json:"assistantId"`
	AssistantOverrides assistantOverrides `json:"assistantOverrides"`
}

type assistantOverrides struct {
	FirstMessage string `json:"firstMessage"`
}

func (h *Handler) handleAssistantRequest(ctx context.Context, ev *model.WebhookEvent) any {
	greeting := genericGreeting

	if ev.CallerNumber == "" {
		h.log.Info("assistant-request without caller number, using generic greeting")
	} else {
		res := h.lookup.LookupByPhone(ctx, ev.CallerNumber)
		h.log.Info("lookup outcome",
			zap.Bool("found", res.Found),
			zap.Bool("needsPhoneNumber", res.NeedsPhoneNumber))
		if res.Found && res.Contact.DisplayName != "" {
			greeting = fmt.Sprintf("Hello %s! Thanks for calling. How can I help you today?",
				firstName(res.Contact.DisplayName))
		}
	}

	if h.cfg.AssistantID == "" {
		msg := apperror.ConfigMissing("assistant selection", []string{"VAPI_ASSISTANT_ID"})
		h.log.Error("assistant-request misconfigured", zap.String("reason", msg))
		return map[string]any{"success": true, "error": msg}
	}

	return assistantResponse{
		AssistantID:        h.cfg.AssistantID,
		AssistantOverrides: assistantOverrides{FirstMessage: greeting},
	}
}

// handleToolCalls dispatches the invocations concurrently and reassembles
// results in input order. A panicking invocation only poisons its own entry.
func (h *Handler) handleToolCalls(ctx context.Context, ev *model.WebhookEvent) any {
	entries := make([]model.ToolResponseEntry, len(ev.ToolCalls))

	var wg sync.WaitGroup
	for i, inv := range ev.ToolCalls {
		wg.Add(1)
		go func(i int, inv model.ToolInvocation) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					h.log.Error("tool dispatch panicked",
						zap.String("tool", inv.Name), zap.Any("panic", rec))
					entries[i] = model.ToolResponseEntry{
						ToolCallID: inv.ID,
						Result:     fmt.Sprintf("Error: tool %q failed unexpectedly", inv.Name),
					}
				}
			}()
			entries[i] = model.ToolResponseEntry{
				ToolCallID: inv.ID,
				Result:     h.dispatch(ctx, ev, inv),
			}
		}(i, inv)
	}
	wg.Wait()

	return map[string]any{"results": entries}
}

func (h *Handler) dispatch(ctx context.Context, ev *model.WebhookEvent, inv model.ToolInvocation) string {
	switch inv.Name {
	case "lookup_contact", "check_mailbox_status":
		phone := stringArg(inv.Arguments, "phone", "phone_number", "number")
		if phone == "" {
			phone = ev.CallerNumber
		}
		if phone == "" {
			return apperror.MissingArgument(inv.Name, "phone")
		}
		res := h.lookup.LookupByPhone(ctx, phone)
		// The platform's tool-result contract is string-only.
		out, err := json.Marshal(res)
		if err != nil {
			return apperror.SearchUnavailable
		}
		return string(out)

	case "search_knowledge_base", "search_help_articles":
		query := stringArg(inv.Arguments, "query", "question")
		if query == "" {
			return apperror.MissingArgument(inv.Name, "query")
		}
		return h.search.Search(ctx, query)

	default:
		h.log.Warn("unknown tool requested", zap.String("tool", inv.Name))
		return apperror.UnknownTool(inv.Name)
	}
}

// fallbackResponse is the never-fail diagnostic body for payloads with no
// recognizable type, tool calls, or phone number. Top-level keys are echoed
// so drift in the platform's payload shape shows up in logs and transcripts.
func (h *Handler) fallbackResponse(ev *model.WebhookEvent) any {
	keys := append([]string(nil), ev.TopLevelKeys...)
	sort.Strings(keys)

	h.log.Warn("unrecognized webhook payload", zap.Strings("receivedKeys", keys))

	resp := map[string]any{"success": true, "received": keys}
	if h.cfg.Debug {
		resp["classifiedAs"] = string(ev.Kind)
		resp["rawType"] = ev.RawType
	}
	return resp
}

func (h *Handler) respond(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("unable to write response stream", zap.Error(err))
	}
}

func firstName(displayName string) string {
	fields := strings.Fields(displayName)
	if len(fields) == 0 {
		return displayName
	}
	return fields[0]
}

func stringArg(args map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := args[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
