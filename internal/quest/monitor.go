package quest

import (
	"context"
	"fmt"
	"sync"

	"github.com/Aditya4503/YATRIK/internal/gps"
)

// DefaultThresholdMeters is how close a sample must be to conquer a checkpoint.
const DefaultThresholdMeters = 20.0

// State is the monitor lifecycle state.
type State int

const (
	Idle State = iota
	Running
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Errored:
		return "errored"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ConquestFunc receives each newly conquered checkpoint.
type ConquestFunc func(cp Checkpoint)

// ErrorFunc receives the error that stopped the position stream.
type ErrorFunc func(err error)

// MonitorConfig tunes a Monitor. Zero values take defaults.
type MonitorConfig struct {
	ThresholdMeters float64
	Watch           gps.WatchOptions
}

// Monitor turns a position stream into conquest events against a registry.
// It is the only writer of the registry's conquered flags during a quest.
//
// Samples are evaluated one at a time on a single goroutine. Handlers run on
// that goroutine and must not call Stop synchronously; onError runs after
// the stream has been torn down, so it may call Start to retry.
type Monitor struct {
	reg       *Registry
	provider  gps.Provider
	threshold float64
	opts      gps.WatchOptions

	mu     sync.Mutex
	state  State
	err    error
	cancel context.CancelFunc
	done   chan struct{}

	tornDown func() // test hook, runs between teardown and onError
}

// NewMonitor watches provider for reg. Zero config fields take defaults.
func NewMonitor(reg *Registry, provider gps.Provider, cfg MonitorConfig) *Monitor {
	if cfg.ThresholdMeters <= 0 {
		cfg.ThresholdMeters = DefaultThresholdMeters
	}
	if cfg.Watch == (gps.WatchOptions{}) {
		cfg.Watch = gps.DefaultWatchOptions()
	}
	return &Monitor{
		reg:       reg,
		provider:  provider,
		threshold: cfg.ThresholdMeters,
		opts:      cfg.Watch,
	}
}

// Start subscribes to the provider. It does nothing while already running.
// A subscription failure leaves the monitor Errored and is returned.
func (m *Monitor) Start(ctx context.Context, onConquest ConquestFunc, onError ErrorFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == Running {
		return nil
	}

	wctx, cancel := context.WithCancel(ctx)
	updates, err := m.provider.Watch(wctx, m.opts)
	if err != nil {
		cancel()
		m.state = Errored
		m.err = err
		return fmt.Errorf("quest: watch %s: %w", m.provider.Name(), err)
	}

	done := make(chan struct{})
	m.state = Running
	m.err = nil
	m.cancel = cancel
	m.done = done
	go m.run(wctx, updates, done, onConquest, onError)
	return nil
}

// Stop ends observation and waits for the sample in flight, if any. No
// conquest is delivered after it returns. Safe to call when not running.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	if m.state == Running {
		m.state = Idle
	}
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// State returns the current lifecycle state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the error that moved the monitor to Errored, if any.
func (m *Monitor) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// ThresholdMeters returns the conquest radius.
func (m *Monitor) ThresholdMeters() float64 { return m.threshold }

func (m *Monitor) run(ctx context.Context, updates <-chan gps.Update, done chan struct{},
	onConquest ConquestFunc, onError ErrorFunc) {
	var failure error
	defer func() {
		m.mu.Lock()
		owned := m.done == done // false once Stop took over
		if owned {
			if failure != nil {
				m.state = Errored
				m.err = failure
			} else {
				m.state = Idle
			}
			m.cancel()
			m.cancel, m.done = nil, nil
		}
		m.mu.Unlock()
		close(done)

		if !owned || failure == nil || onError == nil {
			return
		}
		if m.tornDown != nil {
			m.tornDown()
		}
		// A Start that got in first makes this error stale.
		m.mu.Lock()
		restarted := m.done != nil
		m.mu.Unlock()
		if !restarted {
			onError(failure)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				if ctx.Err() == nil {
					failure = &gps.Error{Code: gps.PositionUnavailable, Message: "position stream ended"}
				}
				return
			}
			if u.Err != nil {
				failure = u.Err
				return
			}
			if u.Sample == nil || ctx.Err() != nil {
				continue
			}
			m.evaluate(*u.Sample, onConquest)
		}
	}
}

// evaluate conquers the checkpoints s is within reach of, one at a time, so
// each handler sees the progress up to and including its own checkpoint.
func (m *Monitor) evaluate(s gps.Sample, onConquest ConquestFunc) {
	for from := 0; ; {
		cp, next, ok := m.reg.conquerNext(s.Location, m.threshold, from)
		if !ok {
			return
		}
		if onConquest != nil {
			onConquest(cp)
		}
		from = next
	}
}
