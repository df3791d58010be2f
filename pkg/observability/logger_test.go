package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WarnLevel, &buf)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()
	if strings.Contains(output, "debug message") {
		t.Error("Debug message should be filtered at warn level")
	}
	if strings.Contains(output, "info message") {
		t.Error("Info message should be filtered at warn level")
	}
	if !strings.Contains(output, "warn message") {
		t.Error("Warn message should be logged at warn level")
	}
	if !strings.Contains(output, "error message") {
		t.Error("Error message should be logged at warn level")
	}
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithField("tree_id", "t-123").WithField("check", "can_delete_wish").Info("decision")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}

	if entry["tree_id"] != "t-123" {
		t.Errorf("tree_id = %v, want t-123", entry["tree_id"])
	}
	if entry["check"] != "can_delete_wish" {
		t.Errorf("check = %v, want can_delete_wish", entry["check"])
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	ctx := WithLogger(context.Background(), logger)
	ctx = WithRequestID(ctx, "req-42")
	ctx = WithCallerID(ctx, "user-7")

	FromContext(ctx).Info("hello")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}

	if entry["request_id"] != "req-42" {
		t.Errorf("request_id = %v, want req-42", entry["request_id"])
	}
	if entry["user_id"] != "user-7" {
		t.Errorf("user_id = %v, want user-7", entry["user_id"])
	}
}

func TestFromContextFallback(t *testing.T) {
	logger := FromContext(context.Background())
	if logger == nil {
		t.Fatal("FromContext must never return nil")
	}
}
