package delivery

import (
	"context"
	"testing"
	"time"
)

func TestDeliver_SuccessfulCommand(t *testing.T) {
	d := New("true", time.Second)
	if err := d.Deliver(context.Background(), "hello"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestDeliver_NonZeroExitReturnsError(t *testing.T) {
	d := New("false", time.Second)
	if err := d.Deliver(context.Background(), "hello"); err == nil {
		t.Fatal("expected error from non-zero exit")
	}
}

func TestDeliver_UnknownCommandReturnsError(t *testing.T) {
	d := New("definitely-not-a-real-command-xyz", time.Second)
	if err := d.Deliver(context.Background(), "hello"); err == nil {
		t.Fatal("expected error from missing command")
	}
}
