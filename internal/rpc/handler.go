package rpc

import (
	"encoding/json"
	"strings"

	"betterclaw/internal/devicectx"
	"betterclaw/internal/devicemodel"
	"betterclaw/internal/pipeline"
)

// Version is the plugin's reported version string.
const Version = "0.1.0"

// Handler dispatches the plugin's inbound RPC methods.
type Handler struct {
	ctxStore    *devicectx.Store
	pipe        *pipeline.Pipeline
	initialized bool
}

// NewHandler constructs a Handler. initialized reports whether startup
// init (load context + restore cooldowns) has completed; intake arriving
// earlier is expected to be held by the caller until it has.
func NewHandler(ctxStore *devicectx.Store, pipe *pipeline.Pipeline) *Handler {
	return &Handler{ctxStore: ctxStore, pipe: pipe}
}

// MarkInitialized flips the ping readiness flag once startup init completes.
func (h *Handler) MarkInitialized() {
	h.initialized = true
}

type eventParams struct {
	SubscriptionID string             `json:"subscriptionId"`
	Source         string             `json:"source"`
	Data           map[string]float64 `json:"data"`
	Metadata       map[string]string  `json:"metadata,omitempty"`
	FiredAt        *float64           `json:"firedAt,omitempty"`
}

// Handle dispatches req and returns the response to send back.
func (h *Handler) Handle(req *Request, nowEpoch float64) *Response {
	switch req.Method {
	case "betterclaw.ping":
		return &Response{ID: req.ID, Result: map[string]any{
			"ok":          true,
			"version":     Version,
			"initialized": h.initialized,
		}}
	case "betterclaw.event":
		return h.handleEvent(req, nowEpoch)
	default:
		return &Response{ID: req.ID, Error: &RPCError{Code: CodeInvalidParams, Message: "unknown method: " + req.Method}}
	}
}

func (h *Handler) handleEvent(req *Request, nowEpoch float64) *Response {
	var params eventParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return &Response{ID: req.ID, Error: &RPCError{Code: CodeInvalidParams, Message: "malformed params: " + err.Error()}}
		}
	}
	if strings.TrimSpace(params.SubscriptionID) == "" || strings.TrimSpace(params.Source) == "" {
		return &Response{ID: req.ID, Error: &RPCError{Code: CodeInvalidParams, Message: "subscriptionId and source are required"}}
	}

	firedAt := nowEpoch
	if params.FiredAt != nil {
		firedAt = *params.FiredAt
	}

	event := devicemodel.DeviceEvent{
		SubscriptionID: params.SubscriptionID,
		Source:         params.Source,
		Data:           params.Data,
		Metadata:       params.Metadata,
		FiredAt:        firedAt,
	}
	h.pipe.Submit(event)

	return &Response{ID: req.ID, Result: map[string]any{"accepted": true}}
}

// GetContextSections is the accepted values for get_context's "include".
var GetContextSections = []string{"device", "activity", "patterns", "meta"}

// GetContext builds the agent-facing tool payload (spec.md §6): pretty
// JSON of the requested sections plus patterns.
func (h *Handler) GetContext(include []string) (string, error) {
	if len(include) == 0 {
		include = GetContextSections
	}
	want := make(map[string]bool, len(include))
	for _, s := range include {
		want[s] = true
	}

	ctx := h.ctxStore.Get()
	out := make(map[string]any)
	if want["device"] {
		out["device"] = ctx.Device
	}
	if want["activity"] {
		out["activity"] = ctx.Activity
	}
	if want["meta"] {
		out["meta"] = ctx.Meta
	}
	if want["patterns"] {
		out["patterns"] = h.ctxStore.ReadPatterns()
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
