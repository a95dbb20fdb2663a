// Package devicemodel defines the value types shared by every component of
// the triage pipeline: the inbound event, the device context snapshot, the
// event log's durable record shape, and the pattern engine's output.
package devicemodel

// DeviceEvent is the inbound telemetry payload from the companion app.
// Immutable once received.
type DeviceEvent struct {
	SubscriptionID string             `json:"subscriptionId"`
	Source         string             `json:"source"`
	Data           map[string]float64 `json:"data"`
	Metadata       map[string]string  `json:"metadata,omitempty"`
	FiredAt        float64            `json:"firedAt"`
}

// DataFloat returns the named numeric field and whether it was present.
func (e DeviceEvent) DataFloat(key string) (float64, bool) {
	if e.Data == nil {
		return 0, false
	}
	v, ok := e.Data[key]
	return v, ok
}

// MetaString returns the named metadata field and whether it was present.
func (e DeviceEvent) MetaString(key string) (string, bool) {
	if e.Metadata == nil {
		return "", false
	}
	v, ok := e.Metadata[key]
	return v, ok
}

// Decision is the three-valued outcome recorded in the event log. The
// rules engine additionally produces "ambiguous", which the pipeline always
// resolves to push or drop before logging.
type Decision string

const (
	DecisionPush   Decision = "push"
	DecisionDrop   Decision = "drop"
	DecisionDefer  Decision = "defer"
	decisionAmbiguous Decision = "ambiguous"
)

// Verdict is the rules engine's synchronous classification result.
type Verdict struct {
	Action Decision
	Reason string
}

// IsAmbiguous reports whether the rules engine could not decide on its own.
func (v Verdict) IsAmbiguous() bool {
	return v.Action == decisionAmbiguous
}

// Ambiguous constructs the ambiguous verdict. The underlying Decision value
// is unexported, so this constructor is the only way to produce one; the
// rules engine is its only caller.
func Ambiguous(reason string) Verdict {
	return Verdict{Action: decisionAmbiguous, Reason: reason}
}

// EventLogEntry is component A's durable append-only record.
type EventLogEntry struct {
	Event     DeviceEvent `json:"event"`
	Decision  Decision    `json:"decision"`
	Reason    string      `json:"reason"`
	Timestamp float64     `json:"timestamp"`
}
