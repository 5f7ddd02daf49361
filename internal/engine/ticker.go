package engine

import (
	"context"
	"sync"
	"time"

	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/logger"
)

// DefaultTickInterval is one animation frame at ~60 Hz.
const DefaultTickInterval = 16 * time.Millisecond

type periodicJob struct {
	name  string
	every time.Duration
	next  time.Time
	fn    func()
}

// Ticker drives the frame loop. Each frame is handed the wall-clock time
// elapsed since the previous one, so a slow frame never loses production.
// Periodic jobs (autosave) run from the same goroutine.
type Ticker struct {
	logger     *logger.Logger
	interval   time.Duration
	now        func() time.Time
	frame      func(delta float64)
	jobs       []*periodicJob
	tickNumber int64
	last       time.Time
	stopChan   chan struct{}
	stopOnce   sync.Once
}

// NewTicker creates a frame ticker calling frame with delta seconds.
func NewTicker(interval time.Duration, now func() time.Time, frame func(delta float64), log *logger.Logger) *Ticker {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if now == nil {
		now = time.Now
	}
	return &Ticker{
		logger:   log.With("ticker"),
		interval: interval,
		now:      now,
		frame:    frame,
		stopChan: make(chan struct{}),
	}
}

// Every registers fn to run at most once per d, checked after each frame.
func (t *Ticker) Every(name string, d time.Duration, fn func()) {
	if d <= 0 {
		return
	}
	t.jobs = append(t.jobs, &periodicJob{name: name, every: d, fn: fn})
}

// Start runs the loop until ctx is cancelled or Stop is called. It blocks.
func (t *Ticker) Start(ctx context.Context) {
	t.logger.Infof("frame loop started (%s)", t.interval)
	t.last = t.now()
	for _, j := range t.jobs {
		j.next = t.last.Add(j.every)
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("frame loop stopped by context")
			return
		case <-t.stopChan:
			t.logger.Info("frame loop stopped")
			return
		case <-ticker.C:
			t.Step()
		}
	}
}

// Stop ends the loop. Safe to call more than once.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stopChan) })
}

// Step runs one frame immediately and any periodic job that is due. It
// returns the delta handed to the frame.
func (t *Ticker) Step() float64 {
	now := t.now()
	if t.last.IsZero() {
		t.last = now
	}
	delta := now.Sub(t.last).Seconds()
	if delta < 0 {
		// Clock went backwards; skip rather than un-produce.
		delta = 0
	}
	t.last = now
	t.tickNumber++
	t.frame(delta)

	for _, j := range t.jobs {
		if j.next.IsZero() {
			j.next = now.Add(j.every)
			continue
		}
		if now.Before(j.next) {
			continue
		}
		j.next = now.Add(j.every)
		t.logger.Debug("running " + j.name)
		j.fn()
	}
	return delta
}

// TickNumber reports how many frames have run.
func (t *Ticker) TickNumber() int64 {
	return t.tickNumber
}
