package otelexport

import (
	"context"
	"testing"
)

func TestNewRequiresEndpoint(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Error("expected error for empty endpoint")
	}
}

func TestNewRejectsUnknownProtocol(t *testing.T) {
	if _, err := New(context.Background(), Config{Endpoint: "localhost:4318", Protocol: "udp"}); err == nil {
		t.Error("expected error for unknown protocol")
	}
}

func TestNewHTTPAndShutdown(t *testing.T) {
	// The exporter connects lazily, so no collector is needed.
	e, err := New(context.Background(), Config{Endpoint: "localhost:4318", Insecure: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = e.Shutdown(ctx)

	var nilExp *Exporter
	if err := nilExp.Shutdown(context.Background()); err != nil {
		t.Errorf("nil Shutdown = %v", err)
	}
}
