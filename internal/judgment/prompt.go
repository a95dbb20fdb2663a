package judgment

import (
	"encoding/json"
	"time"

	"betterclaw/internal/devicemodel"
)

// sanitizedLocation strips raw coordinates, keeping only label/updatedAt —
// the prompt must never leak latitude/longitude (spec.md §4.D, §8.10).
type sanitizedLocation struct {
	Label     string  `json:"label,omitempty"`
	UpdatedAt float64 `json:"updatedAt,omitempty"`
}

type sanitizedContext struct {
	Battery  *devicemodel.Battery `json:"battery,omitempty"`
	Location *sanitizedLocation   `json:"location,omitempty"`
	Health   *devicemodel.Health  `json:"health,omitempty"`
	Activity devicemodel.Activity `json:"activity"`
}

type promptPayload struct {
	Context      sanitizedContext       `json:"context"`
	Event        devicemodel.DeviceEvent `json:"event"`
	PushesToday  int                    `json:"pushesToday"`
	PushBudget   int                    `json:"pushBudget"`
	NowISO       string                 `json:"now"`
}

// BuildPrompt constructs the deterministic judgment prompt: a sanitized
// context, the raw event, budget counters, and the current ISO timestamp.
func BuildPrompt(event devicemodel.DeviceEvent, ctx devicemodel.DeviceContext, pushBudget int, now time.Time) string {
	sanitized := sanitizedContext{
		Battery:  ctx.Device.Battery,
		Health:   ctx.Device.Health,
		Activity: ctx.Activity,
	}
	if ctx.Device.Location != nil {
		sanitized.Location = &sanitizedLocation{
			Label:     ctx.Device.Location.Label,
			UpdatedAt: ctx.Device.Location.UpdatedAt,
		}
	}

	payload := promptPayload{
		Context:     sanitized,
		Event:       event,
		PushesToday: ctx.Meta.PushesToday,
		PushBudget:  pushBudget,
		NowISO:      now.UTC().Format(time.RFC3339),
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		data = []byte("{}")
	}

	return "You are triaging a device telemetry event for an AI agent. " +
		"Decide whether this event is worth interrupting the user about. " +
		"Respond with a JSON object of the exact shape {\"push\": bool, \"reason\": string} " +
		"and nothing else.\n\n" + string(data)
}
