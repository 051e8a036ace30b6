package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContextDefaultsToNop(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext returned nil")
	}
}

func TestWithLoggerRoundTrip(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := WithLogger(context.Background(), zap.New(core))
	FromContext(ctx).Info("hello", zap.String("k", "v"))
	if logs.Len() != 1 || logs.All()[0].Message != "hello" {
		t.Fatalf("unexpected logs: %+v", logs.All())
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New("loud", "json"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if _, err := New("info", "xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if _, err := New("debug", "console"); err != nil {
		t.Fatalf("New: %v", err)
	}
}
