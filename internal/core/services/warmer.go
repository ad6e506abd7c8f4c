package services

import (
	"context"
	"log"
	"sync"
	"time"
)

// warmable is anything that can preload its data.
type warmable interface {
	Warm(ctx context.Context) error
}

// Warmer periodically preloads every framework so that expired cache
// entries are reloaded before a caller asks for them.
type Warmer struct {
	target   warmable
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	runs    int
	lastErr error
}

// NewWarmer creates a warmer. A non-positive interval defaults to ten minutes.
func NewWarmer(target warmable, interval time.Duration) *Warmer {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Warmer{target: target, interval: interval}
}

// Start begins the warming loop. This method blocks until Stop is called
// or ctx ends.
func (w *Warmer) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil // Already running
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	w.wg.Add(1)
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		if w.stopCh == stopCh {
			w.running = false
		}
		w.mu.Unlock()
		w.wg.Done()
	}()

	return w.run(ctx, stopCh)
}

// Stop shuts the loop down and waits for an in-progress warm to finish.
func (w *Warmer) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	w.wg.Wait()
	return nil
}

// run is the main loop.
func (w *Warmer) run(ctx context.Context, stopCh <-chan struct{}) error {
	// Warm immediately on startup
	w.warm(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			w.warm(ctx)
		}
	}
}

func (w *Warmer) warm(ctx context.Context) {
	err := w.target.Warm(ctx)
	if err != nil {
		log.Printf("warmer: failed to warm frameworks: %v", err)
	}

	w.mu.Lock()
	w.runs++
	w.lastErr = err
	w.mu.Unlock()
}

// Runs returns how many warm passes completed and the error of the last one.
func (w *Warmer) Runs() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runs, w.lastErr
}
