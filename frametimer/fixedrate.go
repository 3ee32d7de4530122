// Package frametimer provides FrameTimer implementations for the
// scheduler: a fixed-rate timer that paces frames the way a display's
// vertical sync would, and a manual timer fired by hand in tests and
// headless runs.
package frametimer

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/perceptlab/go-frame-scheduler/core"
)

// DefaultFPS is the frame rate used when the config does not name one.
const DefaultFPS = 60.0

// FixedRateConfig holds configuration for a FixedRate timer.
type FixedRateConfig struct {
	// FPS is the number of frames per second. Zero or negative values
	// fall back to DefaultFPS.
	FPS float64

	// Logger receives timer lifecycle logs. If nil, logging is disabled.
	Logger core.Logger
}

// FixedRate invokes frame callbacks at a steady rate, standing in for a
// display refresh in windowless programs. Callbacks run one at a time on
// a dedicated goroutine, so the scheduler's single-frame-goroutine
// contract holds.
type FixedRate struct {
	limiter *rate.Limiter
	logger  core.Logger

	mu      sync.Mutex
	pending []func()

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewFixedRate creates a FixedRate timer and starts its pacing goroutine.
// A nil config selects DefaultFPS without logging. Call Stop to release
// the goroutine when the timer is no longer needed.
func NewFixedRate(config *FixedRateConfig) *FixedRate {
	if config == nil {
		config = &FixedRateConfig{}
	}
	fps := config.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	logger := config.Logger
	if logger == nil {
		logger = core.NewNoOpLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &FixedRate{
		limiter: rate.NewLimiter(rate.Limit(fps), 1),
		logger:  logger,
		wake:    make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go t.loop()
	t.logger.Debug("frame timer started", core.F("fps", fps))
	return t
}

// RequestFrame schedules callback to run at the next frame tick. Requests
// made after Stop are dropped without being invoked.
//
// Parameters:
//   - callback: function to invoke at the tick; must not be nil
func (t *FixedRate) RequestFrame(callback func()) {
	if callback == nil {
		panic("frametimer: RequestFrame called with a nil callback")
	}
	t.mu.Lock()
	t.pending = append(t.pending, callback)
	t.mu.Unlock()

	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// Stop cancels pacing and waits for the goroutine to exit. It must not be
// called from inside a frame callback, which would wait for itself to
// return. Stop is safe to call more than once.
func (t *FixedRate) Stop() {
	t.cancel()
	<-t.done
	t.logger.Debug("frame timer stopped")
}

// loop serves frame requests until the context is canceled. Each request
// consumes one limiter token, so back-to-back requests are spaced a full
// frame interval apart.
func (t *FixedRate) loop() {
	defer close(t.done)
	for {
		select {
		case <-t.ctx.Done():
			return
		case <-t.wake:
		}

		for {
			callback := t.next()
			if callback == nil {
				break
			}
			if err := t.limiter.Wait(t.ctx); err != nil {
				return
			}
			callback()
		}
	}
}

// next pops the oldest pending callback, or nil when none are queued.
func (t *FixedRate) next() func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.pending) == 0 {
		return nil
	}
	callback := t.pending[0]
	t.pending[0] = nil
	t.pending = t.pending[1:]
	return callback
}
