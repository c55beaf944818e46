package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
)

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, "info", "json")
	t.Cleanup(func() { Setup(os.Stderr, "info", "text") })

	Debug("hidden")
	Info("event registered", "eventId", "e-1")

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("expected a single json line, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "event registered" || line["eventId"] != "e-1" {
		t.Fatalf("unexpected record: %v", line)
	}
}
