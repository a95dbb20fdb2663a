package judgment

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"betterclaw/internal/devicemodel"
)

type stubInvoker struct {
	reply string
	err   error
}

func (s stubInvoker) Invoke(ctx context.Context, model, prompt string) (string, error) {
	return s.reply, s.err
}

func sampleEvent() devicemodel.DeviceEvent {
	return devicemodel.DeviceEvent{SubscriptionID: "custom.thing", Source: "custom.source", FiredAt: 1740000000}
}

func TestEvaluate_PushOnValidReply(t *testing.T) {
	l := New(stubInvoker{reply: `{"push": true, "reason": "interesting"}`}, "openai/gpt-4o-mini", time.Second, nil)
	v := l.Evaluate(context.Background(), sampleEvent(), devicemodel.DeviceContext{}, 10, time.Now())
	if v.Action != devicemodel.DecisionPush {
		t.Fatalf("expected push, got %+v", v)
	}
}

func TestEvaluate_DropOnValidReply(t *testing.T) {
	l := New(stubInvoker{reply: `{"push": false, "reason": "not interesting"}`}, "openai/gpt-4o-mini", time.Second, nil)
	v := l.Evaluate(context.Background(), sampleEvent(), devicemodel.DeviceContext{}, 10, time.Now())
	if v.Action != devicemodel.DecisionDrop {
		t.Fatalf("expected drop, got %+v", v)
	}
}

func TestEvaluate_FencedReplyIsStripped(t *testing.T) {
	l := New(stubInvoker{reply: "```json\n{\"push\": true, \"reason\": \"ok\"}\n```"}, "openai/gpt-4o-mini", time.Second, nil)
	v := l.Evaluate(context.Background(), sampleEvent(), devicemodel.DeviceContext{}, 10, time.Now())
	if v.Action != devicemodel.DecisionPush {
		t.Fatalf("expected push from fenced reply, got %+v", v)
	}
}

func TestEvaluate_NeverDropsOnFailure(t *testing.T) {
	cases := []Invoker{
		stubInvoker{err: errors.New("timeout")},
		stubInvoker{reply: ""},
		stubInvoker{reply: "not json at all and not repairable {{{"},
	}
	for i, invoker := range cases {
		t.Run("case"+strconv.Itoa(i), func(t *testing.T) {
			l := New(invoker, "openai/gpt-4o-mini", time.Second, nil)
			v := l.Evaluate(context.Background(), sampleEvent(), devicemodel.DeviceContext{}, 10, time.Now())
			if v.Action != devicemodel.DecisionPush {
				t.Fatalf("expected fail-open push, got %+v", v)
			}
		})
	}
}

func TestEvaluate_MisconfiguredModelFailsOpen(t *testing.T) {
	l := New(stubInvoker{reply: `{"push": false}`}, "", time.Second, nil)
	v := l.Evaluate(context.Background(), sampleEvent(), devicemodel.DeviceContext{}, 10, time.Now())
	if v.Action != devicemodel.DecisionPush {
		t.Fatalf("expected fail-open push on misconfigured model, got %+v", v)
	}
}

func TestBuildPrompt_OmitsRawCoordinates(t *testing.T) {
	ctx := devicemodel.DeviceContext{
		Device: devicemodel.Device{
			Location: &devicemodel.Location{Latitude: 37.422, Longitude: -122.084, Label: "Work", UpdatedAt: 100},
		},
	}
	prompt := BuildPrompt(sampleEvent(), ctx, 10, time.Now())
	if !strings.Contains(prompt, "Work") {
		t.Fatal("expected location label present in prompt")
	}
	if strings.Contains(prompt, "37.422") || strings.Contains(prompt, "-122.084") {
		t.Fatal("prompt must not contain raw latitude/longitude")
	}
}
