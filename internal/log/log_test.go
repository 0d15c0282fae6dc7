package log

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestConfigure(t *testing.T) {
	t.Cleanup(func() { Configure(Config{}) })

	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "pcm-test"})

	l := WithComponent("store")
	l.Debug().Str("event", "list").Int("count", 2).Msg("listed configurations")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log entry: %v\n%s", err, buf.String())
	}
	for key, want := range map[string]any{
		"level":     "debug",
		"service":   "pcm-test",
		"component": "store",
		"event":     "list",
		"count":     float64(2),
		"message":   "listed configurations",
	} {
		if entry[key] != want {
			t.Errorf("entry[%q] = %v, want %v", key, entry[key], want)
		}
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected a timestamp")
	}
}

func TestConfigure_Level(t *testing.T) {
	t.Cleanup(func() { Configure(Config{}) })

	var buf bytes.Buffer
	Configure(Config{Level: "warn", Output: &buf})
	l := Base()
	l.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info entry written at warn level: %s", buf.String())
	}
	l.Warn().Msg("kept")
	if buf.Len() == 0 {
		t.Fatal("warn entry not written")
	}
}

func TestConfigure_InvalidLevelDefaultsToInfo(t *testing.T) {
	t.Cleanup(func() { Configure(Config{}) })

	var buf bytes.Buffer
	Configure(Config{Level: "chatty", Output: &buf})
	l := Base()
	l.Debug().Msg("dropped")
	l.Info().Msg("kept")
	if bytes.Count(buf.Bytes(), []byte("\n")) != 1 {
		t.Fatalf("expected exactly one entry, got %q", buf.String())
	}
}
