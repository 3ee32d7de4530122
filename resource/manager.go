// Package resource downloads and caches experiment stimuli ahead of the
// frames that present them. A Manager registers name-to-location mappings,
// prefetches them concurrently off the frame goroutine, and exposes the
// per-resource status a gate task polls each frame until everything a
// routine needs is ready.
package resource

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/perceptlab/go-frame-scheduler/core"
)

// DefaultConcurrency is the parallel fetch bound used when Options does
// not name one.
const DefaultConcurrency = 4

// Status is the lifecycle state of a registered resource.
type Status int

const (
	// StatusPending means the resource is registered but not yet fetched.
	StatusPending Status = iota

	// StatusReady means the resource's bytes are cached in memory.
	StatusReady

	// StatusFailed means fetching gave up after exhausting retries.
	StatusFailed
)

// String returns the status name for logs.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options holds configuration for a Manager.
type Options struct {
	// Client performs http and https fetches. Nil means http.DefaultClient.
	Client *http.Client

	// Concurrency bounds parallel fetches. Zero or negative values fall
	// back to DefaultConcurrency.
	Concurrency int

	// Retry governs re-attempts of failed fetches. The zero value means
	// no retries; a nil Options selects DefaultRetryPolicy.
	Retry RetryPolicy

	// Logger receives fetch lifecycle logs. If nil, logging is disabled.
	Logger core.Logger
}

type entry struct {
	name    string
	locator string
	status  Status
	claimed bool
	data    []byte
	err     error
}

// Manager registers, prefetches and serves experiment resources. It is
// safe for concurrent use: prefetching happens on worker goroutines while
// gate tasks poll statuses from the frame goroutine.
type Manager struct {
	client      *http.Client
	logger      core.Logger
	retry       RetryPolicy
	concurrency int

	mu       sync.Mutex
	entries  map[string]*entry
	firstErr error
}

// NewManager creates a Manager. A nil opts selects http.DefaultClient,
// DefaultConcurrency and DefaultRetryPolicy without logging.
func NewManager(opts *Options) *Manager {
	if opts == nil {
		opts = &Options{Retry: DefaultRetryPolicy()}
	}
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = core.NewNoOpLogger()
	}
	return &Manager{
		client:      client,
		logger:      logger,
		retry:       opts.Retry,
		concurrency: concurrency,
		entries:     make(map[string]*entry),
	}
}

// Add registers a resource under name. The locator is an http(s) URL, a
// file:// URL, or a bare filesystem path. Panics on an empty name or a
// name registered twice; resources are registered once, up front.
func (m *Manager) Add(name, locator string) {
	if name == "" {
		panic("resource: Add called with an empty name")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[name]; ok {
		panic("resource: Add called twice for resource " + name)
	}
	m.entries[name] = &entry{name: name, locator: locator}
}

// Names returns the registered resource names, sorted.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Status returns the lifecycle state of a registered resource. Panics on
// an unknown name.
func (m *Manager) Status(name string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookupLocked(name).status
}

// Get returns the cached bytes of a ready resource. It returns an error
// while the resource is still pending and the recorded fetch error once it
// has failed. Panics on an unknown name.
func (m *Manager) Get(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.lookupLocked(name)
	switch e.status {
	case StatusReady:
		return e.data, nil
	case StatusFailed:
		return nil, e.err
	default:
		return nil, errors.Errorf("resource %q is not ready", name)
	}
}

// Err returns the first fetch error recorded by any prefetch, nil while
// everything has succeeded so far.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.firstErr
}

// Prefetch fetches every pending resource, at most Concurrency at a time,
// and blocks until all attempts finish. It returns the first error; all
// resources are attempted regardless. Per-resource outcomes stay readable
// through Status, Get and Err, so calling code may ignore the return and
// let a gate task react instead.
func (m *Manager) Prefetch(ctx context.Context) error {
	pending := m.claimPending()
	if len(pending) == 0 {
		return nil
	}
	m.logger.Info("prefetch started",
		core.F("resources", len(pending)),
		core.F("concurrency", m.concurrency))

	g := new(errgroup.Group)
	g.SetLimit(m.concurrency)
	for _, e := range pending {
		e := e
		g.Go(func() error {
			return m.fetchWithRetry(ctx, e)
		})
	}

	err := g.Wait()
	if err != nil {
		m.mu.Lock()
		if m.firstErr == nil {
			m.firstErr = err
		}
		m.mu.Unlock()
	}
	return err
}

// StartPrefetch runs Prefetch on its own goroutine and returns
// immediately. The outcome is observed through Status, Get, Err and
// GateTask; a typical experiment starts the prefetch before Start and lets
// the gate task hold the first routine until it completes.
func (m *Manager) StartPrefetch(ctx context.Context) {
	go func() {
		_ = m.Prefetch(ctx)
	}()
}

// claimPending snapshots the entries still pending and not yet claimed by
// another Prefetch, so overlapping calls never fetch a resource twice.
func (m *Manager) claimPending() []*entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []*entry
	for _, e := range m.entries {
		if e.status == StatusPending && !e.claimed {
			e.claimed = true
			pending = append(pending, e)
		}
	}
	return pending
}

func (m *Manager) lookupLocked(name string) *entry {
	e, ok := m.entries[name]
	if !ok {
		panic("resource: unknown resource " + name)
	}
	return e
}

// fetchWithRetry fetches one resource under the retry policy and records
// the outcome on its entry.
func (m *Manager) fetchWithRetry(ctx context.Context, e *entry) error {
	var lastErr error
	for attempt := 0; attempt <= m.retry.MaxRetries; attempt++ {
		data, err := m.fetch(ctx, e.locator)
		if err == nil {
			if attempt > 0 {
				m.logger.Debug("fetch succeeded after retry",
					core.F("resource", e.name),
					core.F("attempt", attempt))
			}
			m.mu.Lock()
			e.status = StatusReady
			e.data = data
			m.mu.Unlock()
			m.logger.Debug("resource ready",
				core.F("resource", e.name),
				core.F("bytes", len(data)))
			return nil
		}

		lastErr = err
		m.logger.Warn("fetch failed, retrying",
			core.F("resource", e.name),
			core.F("attempt", attempt),
			core.F("maxRetries", m.retry.MaxRetries),
			core.F("error", err))

		if attempt < m.retry.MaxRetries {
			delay := m.retry.calculateDelay(attempt)
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = m.retry.MaxRetries // no further attempts
			case <-time.After(delay):
			}
		}
	}

	m.logger.Error("fetch failed after all retries",
		core.F("resource", e.name),
		core.F("totalAttempts", m.retry.MaxRetries+1),
		core.F("error", lastErr))

	wrapped := errors.Wrapf(lastErr, "fetch resource %q", e.name)
	m.mu.Lock()
	e.status = StatusFailed
	e.err = wrapped
	if m.firstErr == nil {
		m.firstErr = wrapped
	}
	m.mu.Unlock()
	return wrapped
}

// fetch retrieves the bytes behind a locator: http(s) via the configured
// client, file:// and bare paths via the filesystem.
func (m *Manager) fetch(ctx context.Context, locator string) ([]byte, error) {
	u, err := url.Parse(locator)
	if err == nil {
		switch u.Scheme {
		case "http", "https":
			return m.fetchHTTP(ctx, locator)
		case "file":
			return os.ReadFile(u.Path)
		}
	}
	return os.ReadFile(locator)
}

func (m *Manager) fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected HTTP status %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return data, nil
}
