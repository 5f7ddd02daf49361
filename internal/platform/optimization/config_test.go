package optimization

import (
	"testing"
	"time"

	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/metrics"
)

func TestForProfile(t *testing.T) {
	tests := []struct {
		name    string
		clients int
		wantErr bool
	}{
		{"", 16, false},
		{"default", 16, false},
		{"STRESS", 500, false},
		{"low", 4, false},
		{"turbo", 0, true},
	}
	for _, tc := range tests {
		cfg, err := ForProfile(tc.name)
		if (err != nil) != tc.wantErr {
			t.Errorf("%q: expected error=%v, got %v", tc.name, tc.wantErr, err)
			continue
		}
		if cfg != nil && cfg.MaxClients != tc.clients {
			t.Errorf("%q: expected %d clients, got %d", tc.name, tc.clients, cfg.MaxClients)
		}
	}
}

func TestAnalyzeHealthySnapshot(t *testing.T) {
	s := metrics.Snapshot{}
	s.Tick.Count = 100
	s.Tick.AvgLatencyMs = 0.2
	s.WebSocket.MessagesIn = 100
	s.WebSocket.RateLimited = 1

	if rec := Analyze(s, DefaultConfig()); rec.Any() {
		t.Errorf("Expected no recommendations, got %+v", rec.Notes)
	}
}

func TestAnalyzeAndApply(t *testing.T) {
	// Setup
	s := metrics.Snapshot{}
	s.Tick.Count = 10
	s.Tick.AvgLatencyMs = 12
	s.WebSocket.Errors = 3
	s.WebSocket.MessagesIn = 10
	s.WebSocket.RateLimited = 5
	s.Persistence.SaveErrors = 1
	cfg := DefaultConfig()

	// Act
	rec := Analyze(s, cfg)
	ApplyRecommendations(cfg, rec)

	// Assert
	if !rec.SlowDownTicks || !rec.IncreaseBroadcastBuffer || !rec.RelaxRateLimit || !rec.CheckStorage {
		t.Fatalf("Expected every recommendation, got %+v", rec)
	}
	if len(rec.Notes) != 4 {
		t.Errorf("Expected 4 notes, got %v", rec.Notes)
	}
	if cfg.TickInterval != 32*time.Millisecond {
		t.Errorf("Expected tick interval doubled, got %s", cfg.TickInterval)
	}
	if cfg.ClientSendBuffer != 128 || cfg.MaxMessagesPerSecond != 30 {
		t.Errorf("Expected buffers and rate relaxed, got %+v", cfg)
	}
}
