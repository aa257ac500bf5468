package common

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Stats holds atomic counters for model runs shared by worker goroutines.
type Stats struct {
	SeriesDone   atomic.Uint64 // Model calls that succeeded
	SeriesFailed atomic.Uint64 // Model calls or writes that failed
	Samples      atomic.Uint64 // Samples produced by successful calls
	LastLatency  atomic.Int64  // Duration of the most recent call, ns

	out      io.Writer
	interval time.Duration
	started  time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	SeriesDone   uint64
	SeriesFailed uint64
	Samples      uint64
	LastLatency  time.Duration
	Elapsed      time.Duration
}

// NewStats creates a Stats reporting to stdout every interval.
func NewStats(interval time.Duration) *Stats {
	return &Stats{
		out:      os.Stdout,
		interval: interval,
		started:  time.Now(),
	}
}

// SetOutput redirects reporter output.
func (s *Stats) SetOutput(w io.Writer) {
	s.out = w
}

// Record counts one finished model call.
func (s *Stats) Record(samples int, latency time.Duration, err error) {
	s.LastLatency.Store(int64(latency))
	if err != nil {
		s.SeriesFailed.Add(1)
		return
	}
	s.SeriesDone.Add(1)
	s.Samples.Add(uint64(samples))
}

// Snapshot reads all counters.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		SeriesDone:   s.SeriesDone.Load(),
		SeriesFailed: s.SeriesFailed.Load(),
		Samples:      s.Samples.Load(),
		LastLatency:  time.Duration(s.LastLatency.Load()),
		Elapsed:      time.Since(s.started),
	}
}

// String formats the snapshot as a single progress line.
func (sn Snapshot) String() string {
	rate := 0.0
	if secs := sn.Elapsed.Seconds(); secs > 0 {
		rate = float64(sn.Samples) / secs
	}
	return fmt.Sprintf("[Progress] Series: %d ok, %d failed | Samples: %d (%.0f/s) | Last run: %.2f ms",
		sn.SeriesDone, sn.SeriesFailed, sn.Samples, rate,
		float64(sn.LastLatency)/float64(time.Millisecond))
}

// StartReporter prints a progress line every interval until StopReporter.
func (s *Stats) StartReporter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.interval <= 0 {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.reporterLoop(s.stopCh, s.doneCh)
}

// StopReporter stops the reporter and waits for it to exit.
func (s *Stats) StopReporter() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()
	<-done
}

func (s *Stats) reporterLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			fmt.Fprintln(s.out, s.Snapshot())
		}
	}
}
