// Package judgment implements component D: the async LLM call that
// resolves an ambiguous rules-engine verdict into push or drop, with a
// hard timeout and a fail-open policy on every failure mode. Grounded on
// the teacher's jsonrepair usage in internal/agent/tool_executor.go and its
// tiktoken-backed token counting in internal/shared/token.
package judgment

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"github.com/pkoukk/tiktoken-go"

	"betterclaw/internal/devicemodel"
	"betterclaw/internal/errorsx"
	"betterclaw/internal/logging"
)

// maxPromptTokens is the ceiling past which the prompt is logged at warn;
// the judgment prompt is small and fixed-shape so this should never trip
// in practice, but it's cheap insurance against a runaway metadata blob.
const maxPromptTokens = 2000

// Reply is the LLM's expected response shape.
type Reply struct {
	Push   bool   `json:"push"`
	Reason string `json:"reason"`
}

// Invoker calls an LLM with a fully-built prompt and returns its raw text
// reply. Implementations live outside the core (spec.md §1 Out of scope).
type Invoker interface {
	Invoke(ctx context.Context, model, prompt string) (string, error)
}

// Layer is component D.
type Layer struct {
	invoker Invoker
	model   string
	timeout time.Duration
	logger  logging.Logger
	enc     *tiktoken.Tiktoken
}

// New constructs the judgment layer. model is the "provider/model" string
// from configuration; timeout defaults to 15s per spec.md §4.D.
func New(invoker Invoker, model string, timeout time.Duration, logger logging.Logger) *Layer {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	enc, _ := tiktoken.GetEncoding("cl100k_base")
	return &Layer{invoker: invoker, model: model, timeout: timeout, logger: logging.OrNop(logger), enc: enc}
}

// Evaluate resolves an ambiguous event into push or drop. It never returns
// drop on a failure: the fail-open policy is absolute (spec.md §4.D, §8.6).
func (l *Layer) Evaluate(ctx context.Context, event devicemodel.DeviceEvent, deviceCtx devicemodel.DeviceContext, pushBudget int, now time.Time) devicemodel.Verdict {
	if l.invoker == nil || l.model == "" {
		return failOpen("model misconfigured — fail open")
	}

	prompt := BuildPrompt(event, deviceCtx, pushBudget, now)
	if l.enc != nil {
		if n := len(l.enc.Encode(prompt, nil, nil)); n > maxPromptTokens {
			l.logger.Warn("judgment: prompt is %d tokens, exceeds %d ceiling", n, maxPromptTokens)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	raw, err := l.invoker.Invoke(callCtx, l.model, prompt)
	if err != nil {
		l.logger.Warn("judgment: invocation failed: %v", &errorsx.TransientError{Op: "judgment.invoke", Err: err})
		return failOpen("llm invocation error — fail open")
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return failOpen("empty llm output — fail open")
	}

	reply, err := parseReply(raw)
	if err != nil {
		l.logger.Warn("judgment: parse failed: %v", &errorsx.DegradedError{Op: "judgment.parse", Err: err})
		return failOpen("unparseable llm output — fail open")
	}

	reason := "llm: " + reply.Reason
	if reply.Push {
		return devicemodel.Verdict{Action: devicemodel.DecisionPush, Reason: reason}
	}
	return devicemodel.Verdict{Action: devicemodel.DecisionDrop, Reason: reason}
}

func failOpen(reason string) devicemodel.Verdict {
	return devicemodel.Verdict{Action: devicemodel.DecisionPush, Reason: "llm: " + reason}
}

// parseReply strips an optional triple-backtick fence, attempts strict
// JSON, then falls back to jsonrepair for near-valid LLM output.
func parseReply(raw string) (Reply, error) {
	text := stripFence(raw)

	var reply Reply
	if err := json.Unmarshal([]byte(text), &reply); err == nil {
		return reply, nil
	}

	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return Reply{}, err
	}
	if err := json.Unmarshal([]byte(repaired), &reply); err != nil {
		return Reply{}, err
	}
	return reply, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		first := strings.TrimSpace(s[:idx])
		if first == "json" || first == "" {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
