package gps

import (
	"context"
	"sync"
	"time"
)

const watcherBuffer = 16

// hub fans a single position source out to any number of watchers.
type hub struct {
	mu       sync.Mutex
	watchers map[*watcher]struct{}
}

type watcher struct {
	ch      chan Update
	opts    WatchOptions
	gotFix  bool
	timer   *time.Timer
	stopped bool
}

func newHub() *hub {
	return &hub{watchers: make(map[*watcher]struct{})}
}

// add registers a watcher that lives until ctx is done, an error is
// delivered, or no fix arrives within opts.Timeout.
func (h *hub) add(ctx context.Context, opts WatchOptions) <-chan Update {
	w := &watcher{
		ch:   make(chan Update, watcherBuffer),
		opts: opts,
	}

	h.mu.Lock()
	h.watchers[w] = struct{}{}
	if opts.Timeout > 0 {
		w.timer = time.AfterFunc(opts.Timeout, func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if !w.gotFix {
				h.failLocked(w, &Error{Code: Timeout, Message: "no position fix within " + opts.Timeout.String()})
			}
		})
	}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		h.removeLocked(w)
		h.mu.Unlock()
	}()
	return w.ch
}

// publish delivers a sample to every watcher. Slow watchers drop samples.
func (h *hub) publish(s Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for w := range h.watchers {
		w.gotFix = true
		sample := s
		select {
		case w.ch <- Update{Sample: &sample}:
		default:
			// Watcher too slow, skip
		}
	}
}

// fail delivers err to every watcher and ends their streams.
func (h *hub) fail(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for w := range h.watchers {
		h.failLocked(w, err)
	}
}

// closeAll ends every stream without an error.
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for w := range h.watchers {
		h.removeLocked(w)
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.watchers)
}

func (h *hub) failLocked(w *watcher, err error) {
	if w.stopped {
		return
	}
	select {
	case w.ch <- Update{Err: err}:
	default:
		// Make room: the error matters more than the oldest sample.
		select {
		case <-w.ch:
		default:
		}
		w.ch <- Update{Err: err}
	}
	h.removeLocked(w)
}

func (h *hub) removeLocked(w *watcher) {
	if w.stopped {
		return
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	delete(h.watchers, w)
	close(w.ch)
}
