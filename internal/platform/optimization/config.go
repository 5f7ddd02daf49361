// Package optimization provides transport and frame-loop tuning profiles,
// and reads metrics snapshots back into tuning recommendations.
package optimization

import (
	"fmt"
	"strings"
	"time"

	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/metrics"
)

// Profile names accepted by ForProfile.
const (
	ProfileDefault     = "default"
	ProfileStressTest  = "stress"
	ProfileLowResource = "low"
)

// Config holds tuned parameters for a deployment profile.
type Config struct {
	// Frame loop
	TickInterval time.Duration

	// Channel buffer sizes
	BroadcastChannelBuffer int
	ClientSendBuffer       int

	// Rate limiting
	MaxMessagesPerSecond float64
	MaxClients           int
}

// DefaultConfig returns sensible defaults for production.
func DefaultConfig() *Config {
	return &Config{
		TickInterval: 16 * time.Millisecond,

		// Channel buffers - larger = more memory, less dropping
		BroadcastChannelBuffer: 64,
		ClientSendBuffer:       64,

		MaxMessagesPerSecond: 20, // Per client
		MaxClients:           16,
	}
}

// StressTestConfig returns aggressive settings for load generation runs.
func StressTestConfig() *Config {
	return &Config{
		TickInterval: 16 * time.Millisecond,

		BroadcastChannelBuffer: 512,
		ClientSendBuffer:       128,

		MaxMessagesPerSecond: 500,
		MaxClients:           500,
	}
}

// LowResourceConfig returns minimal settings for development.
func LowResourceConfig() *Config {
	return &Config{
		TickInterval: 50 * time.Millisecond,

		BroadcastChannelBuffer: 16,
		ClientSendBuffer:       8,

		MaxMessagesPerSecond: 10,
		MaxClients:           4,
	}
}

// ForProfile returns the config of a named profile.
func ForProfile(name string) (*Config, error) {
	switch strings.ToLower(name) {
	case "", ProfileDefault:
		return DefaultConfig(), nil
	case ProfileStressTest:
		return StressTestConfig(), nil
	case ProfileLowResource:
		return LowResourceConfig(), nil
	}
	return nil, fmt.Errorf("unknown tuning profile %q", name)
}

// Recommendations provides suggestions based on observed metrics.
type Recommendations struct {
	SlowDownTicks           bool
	IncreaseBroadcastBuffer bool
	RelaxRateLimit          bool
	CheckStorage            bool
	Notes                   []string
}

// Any reports whether at least one change is recommended.
func (r *Recommendations) Any() bool {
	return r.SlowDownTicks || r.IncreaseBroadcastBuffer || r.RelaxRateLimit || r.CheckStorage
}

// Analyze examines a metrics snapshot taken while running with config and
// returns optimization recommendations.
func Analyze(s metrics.Snapshot, config *Config) *Recommendations {
	rec := &Recommendations{
		Notes: make([]string, 0),
	}
	budgetMs := float64(config.TickInterval) / float64(time.Millisecond)

	// Check tick latency against the frame budget
	if s.Tick.Count > 0 && s.Tick.AvgLatencyMs > budgetMs/2 {
		rec.SlowDownTicks = true
		rec.Notes = append(rec.Notes, fmt.Sprintf("Average tick takes %.2fms of a %.0fms frame - raise the tick interval", s.Tick.AvgLatencyMs, budgetMs))
	}

	// Check persistence
	if s.Persistence.SaveErrors > 0 || s.Persistence.EventWriteErrs > 0 {
		rec.CheckStorage = true
		rec.Notes = append(rec.Notes, "Save or event write errors detected - check the database")
	}
	if s.Persistence.MaxSaveMs > 1000 {
		rec.CheckStorage = true
		rec.Notes = append(rec.Notes, "A save took over a second - check disk latency")
	}

	// Check WebSocket backpressure
	if s.WebSocket.Errors > 0 {
		rec.IncreaseBroadcastBuffer = true
		rec.Notes = append(rec.Notes, "WebSocket errors detected - increase client send buffer")
	}
	if s.WebSocket.MessagesIn > 0 && float64(s.WebSocket.RateLimited)/float64(s.WebSocket.MessagesIn) > 0.1 {
		rec.RelaxRateLimit = true
		rec.Notes = append(rec.Notes, "Over 10% of client messages were rate limited")
	}

	return rec
}

// ApplyRecommendations modifies config based on recommendations.
func ApplyRecommendations(config *Config, rec *Recommendations) *Config {
	if rec.SlowDownTicks {
		config.TickInterval *= 2
	}
	if rec.IncreaseBroadcastBuffer {
		config.BroadcastChannelBuffer *= 2
		config.ClientSendBuffer *= 2
	}
	if rec.RelaxRateLimit {
		config.MaxMessagesPerSecond *= 1.5
	}
	return config
}
