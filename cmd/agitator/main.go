// Package main - agitator
// Load generator: many concurrent renderers spamming actions over the
// websocket and timing the replies.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/state"
	"github.com/MRamiBalles/ReactorIdle/server/internal/engine"
	"github.com/MRamiBalles/ReactorIdle/server/internal/network"
	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/logger"
	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/metrics"
	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/optimization"
)

// Config for the agitator
type Config struct {
	ServerURL      string
	MetricsURL     string
	NumClients     int
	ActionInterval time.Duration
	TestDuration   time.Duration
}

// Stats tracks performance metrics
type Stats struct {
	MessagesSent     int64
	MessagesReceived int64
	Accepted         int64
	Rejected         int64
	RateLimited      int64
	Errors           int64
	Latencies        []time.Duration
	mu               sync.Mutex
}

func (s *Stats) addLatency(d time.Duration) {
	s.mu.Lock()
	s.Latencies = append(s.Latencies, d)
	s.mu.Unlock()
}

// envelope is an action frame with a correlation id.
type envelope struct {
	Type      engine.ActionType `json:"type"`
	Payload   json.RawMessage   `json:"payload,omitempty"`
	RequestID string            `json:"requestId"`
}

var categories = []state.CategoryID{state.Reactor, state.Processor, state.CrewQuarters, state.Manufacturing}

var log = logger.NewConsole("info").With("agitator")

func main() {
	// Parse flags
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	metricsURL := flag.String("metrics", "http://localhost:8080/metrics", "Metrics endpoint, empty to skip")
	numClients := flag.Int("clients", 50, "Number of concurrent clients")
	interval := flag.Duration("interval", 100*time.Millisecond, "Action interval per client")
	duration := flag.Duration("duration", 60*time.Second, "Test duration")
	flag.Parse()

	config := Config{
		ServerURL:      *serverURL,
		MetricsURL:     *metricsURL,
		NumClients:     *numClients,
		ActionInterval: *interval,
		TestDuration:   *duration,
	}

	fmt.Println("=========================================")
	fmt.Println("AGITATOR - Reactor load test")
	fmt.Println("=========================================")
	fmt.Printf("Server: %s\n", config.ServerURL)
	fmt.Printf("Clients: %d\n", config.NumClients)
	fmt.Printf("Interval: %v\n", config.ActionInterval)
	fmt.Printf("Duration: %v\n", config.TestDuration)
	fmt.Println("=========================================")

	// Setup graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), config.TestDuration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupt received, stopping...")
		cancel()
	}()

	// Run the stress test
	stats := runStressTest(ctx, config)

	// Print results
	printResults(stats, config)
	analyzeServer(config)
}

func runStressTest(ctx context.Context, config Config) *Stats {
	stats := &Stats{
		Latencies: make([]time.Duration, 0, 10000),
	}

	var wg sync.WaitGroup

	fmt.Println("\nStarting clients...")

	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(ctx, clientID, config, stats)
		}(i)

		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}

	fmt.Printf("All %d clients started\n\n", config.NumClients)

	// Progress updates
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sent := atomic.LoadInt64(&stats.MessagesSent)
				recv := atomic.LoadInt64(&stats.MessagesReceived)
				errs := atomic.LoadInt64(&stats.Errors)
				fmt.Printf("Progress: Sent=%d Recv=%d Errors=%d\n", sent, recv, errs)
			}
		}
	}()

	wg.Wait()
	return stats
}

func runClient(ctx context.Context, clientID int, config Config, stats *Stats) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		log.Warnf("Client %d: connection failed: %v", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	var pending sync.Map // requestId -> time.Time
	rnd := rand.New(rand.NewSource(int64(clientID) + time.Now().UnixNano()))

	// Start receiver goroutine
	go func() {
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			atomic.AddInt64(&stats.MessagesReceived, 1)

			var msg struct {
				Type      string `json:"type"`
				RequestID string `json:"requestId"`
				Payload   struct {
					Success bool   `json:"success"`
					Error   string `json:"error"`
				} `json:"payload"`
			}
			if json.Unmarshal(raw, &msg) != nil {
				atomic.AddInt64(&stats.Errors, 1)
				continue
			}
			if sent, ok := pending.LoadAndDelete(msg.RequestID); ok {
				stats.addLatency(time.Since(sent.(time.Time)))
			}
			switch msg.Type {
			case network.MessageActionResult:
				if msg.Payload.Success {
					atomic.AddInt64(&stats.Accepted, 1)
				} else {
					atomic.AddInt64(&stats.Rejected, 1)
				}
			case network.MessageError:
				if msg.Payload.Error == "rate limit exceeded" {
					atomic.AddInt64(&stats.RateLimited, 1)
				} else {
					atomic.AddInt64(&stats.Errors, 1)
				}
			}
		}
	}()

	// Send actions at configured interval
	ticker := time.NewTicker(config.ActionInterval)
	defer ticker.Stop()

	seq := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			seq++
			id := fmt.Sprintf("c%03d-%d", clientID, seq)
			frame, err := encode(generateRandomAction(rnd), id)
			if err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				continue
			}

			pending.Store(id, time.Now())
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}
			atomic.AddInt64(&stats.MessagesSent, 1)
		}
	}
}

func encode(a engine.Action, requestID string) ([]byte, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: a.Kind(), Payload: payload, RequestID: requestID})
}

// generateRandomAction mostly clicks, with the occasional purchase or jump.
func generateRandomAction(rnd *rand.Rand) engine.Action {
	switch roll := rnd.Intn(100); {
	case roll < 70:
		return engine.ClickResource{Category: categories[rnd.Intn(len(categories))]}
	case roll < 85:
		upgrades := []string{"reactorExpansions", "energyConverters", "manualOverride"}
		return engine.PurchaseUpgrade{Category: state.Reactor, UpgradeType: upgrades[rnd.Intn(len(upgrades))]}
	case roll < 90:
		return engine.PurchaseUpgrade{Category: state.Processor, UpgradeType: "navigationComputer"}
	case roll < 95:
		return engine.InitiateJump{}
	case roll < 98:
		return engine.CompleteEncounter{}
	default:
		return engine.RetreatFromBattle{}
	}
}

func printResults(stats *Stats, config Config) {
	fmt.Println("\n=========================================")
	fmt.Println("STRESS TEST RESULTS")
	fmt.Println("=========================================")

	sent := atomic.LoadInt64(&stats.MessagesSent)
	recv := atomic.LoadInt64(&stats.MessagesReceived)
	errs := atomic.LoadInt64(&stats.Errors)

	fmt.Printf("Messages Sent:     %d\n", sent)
	fmt.Printf("Messages Received: %d\n", recv)
	fmt.Printf("Accepted:          %d\n", atomic.LoadInt64(&stats.Accepted))
	fmt.Printf("Rejected:          %d\n", atomic.LoadInt64(&stats.Rejected))
	fmt.Printf("Rate Limited:      %d\n", atomic.LoadInt64(&stats.RateLimited))
	fmt.Printf("Errors:            %d\n", errs)
	fmt.Printf("Error Rate:        %.2f%%\n", float64(errs)/float64(sent+1)*100)

	// Calculate throughput
	throughput := float64(sent) / config.TestDuration.Seconds()
	fmt.Printf("Throughput:        %.2f msg/sec\n", throughput)

	// Round-trip latency stats
	stats.mu.Lock()
	latencies := stats.Latencies
	stats.mu.Unlock()
	if len(latencies) > 0 {
		var total time.Duration
		lo, hi := latencies[0], latencies[0]
		for _, l := range latencies {
			total += l
			lo = min(lo, l)
			hi = max(hi, l)
		}
		avg := total / time.Duration(len(latencies))

		fmt.Printf("\nRound-trip latency:\n")
		fmt.Printf("  Min: %v\n", lo)
		fmt.Printf("  Avg: %v\n", avg)
		fmt.Printf("  Max: %v\n", hi)
	}

	// Verdict
	fmt.Println("\n-----------------------------------------")
	if errs == 0 {
		fmt.Println("TEST PASSED: System handled the load")
	} else if float64(errs)/float64(sent+1) < 0.05 {
		fmt.Println("TEST WARNING: Some errors detected")
	} else {
		fmt.Println("TEST FAILED: High error rate")
	}
	fmt.Println("=========================================")

	// Export results as JSON
	results := map[string]interface{}{
		"messages_sent":      sent,
		"messages_received":  recv,
		"accepted":           atomic.LoadInt64(&stats.Accepted),
		"rejected":           atomic.LoadInt64(&stats.Rejected),
		"rate_limited":       atomic.LoadInt64(&stats.RateLimited),
		"errors":             errs,
		"throughput_per_sec": throughput,
		"config": map[string]interface{}{
			"clients":  config.NumClients,
			"interval": config.ActionInterval.String(),
			"duration": config.TestDuration.String(),
		},
	}

	jsonData, _ := json.MarshalIndent(results, "", "  ")
	if err := os.WriteFile("stress_test_results.json", jsonData, 0644); err != nil {
		log.Warnf("Failed to write results: %v", err)
		return
	}
	fmt.Println("\nResults saved to stress_test_results.json")
}

// analyzeServer pulls the server's metrics and prints tuning advice.
func analyzeServer(config Config) {
	if config.MetricsURL == "" {
		return
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(config.MetricsURL)
	if err != nil {
		log.Warnf("Failed to fetch server metrics: %v", err)
		return
	}
	defer resp.Body.Close()

	var snap metrics.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		log.Warnf("Failed to decode server metrics: %v", err)
		return
	}

	rec := optimization.Analyze(snap, optimization.DefaultConfig())
	fmt.Printf("\nServer: %d ticks, avg %.3fms, %d ws messages in\n", snap.Tick.Count, snap.Tick.AvgLatencyMs, snap.WebSocket.MessagesIn)
	if !rec.Any() {
		fmt.Println("No tuning changes recommended.")
		return
	}
	for _, note := range rec.Notes {
		fmt.Println("Tuning: " + note)
	}
}
