package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestContextFieldsAreStamped(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug")

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithBookingID(ctx, "b-1")
	log.InfoContext(ctx, "accepted")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal: %v (%s)", err, buf.String())
	}
	if line["request_id"] != "req-1" || line["booking_id"] != "b-1" {
		t.Fatalf("missing context fields: %v", line)
	}
	if _, ok := line["user_id"]; ok {
		t.Fatalf("user_id should be omitted when unset: %v", line)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn")
	log.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %s", buf.String())
	}
	log.Warn("kept")
	if buf.Len() == 0 {
		t.Fatal("warn should be written")
	}
}

func TestDetachKeepsFieldsDropsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(WithUserID(context.Background(), "u1"))
	cancel()
	d := Detach(ctx)
	if d.Err() != nil {
		t.Fatal("detached context must not be cancelled")
	}
	if fieldsFrom(d).UserID != "u1" {
		t.Fatal("detached context lost user id")
	}
}
