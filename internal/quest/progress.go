package quest

import "sync"

// Progress is the derived conquered/total count of a registry.
type Progress struct {
	Conquered int `json:"conquered"`
	Total     int `json:"total"`
}

// Complete reports whether every checkpoint has been conquered.
func (p Progress) Complete() bool { return p.Total > 0 && p.Conquered == p.Total }

// Notifier is told about every conquest along with the progress after it.
type Notifier interface {
	Conquered(cp Checkpoint, p Progress)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(cp Checkpoint, p Progress)

func (f NotifierFunc) Conquered(cp Checkpoint, p Progress) { f(cp, p) }

// Tracker derives quest progress from a registry and forwards conquests to
// its notifiers. It holds no counts of its own.
type Tracker struct {
	reg *Registry

	mu        sync.RWMutex
	notifiers []Notifier
}

// NewTracker returns a tracker over reg with no notifiers.
func NewTracker(reg *Registry) *Tracker {
	return &Tracker{reg: reg}
}

// Progress scans the registry.
func (t *Tracker) Progress() Progress { return t.reg.Progress() }

// Notify registers n for conquest notifications.
func (t *Tracker) Notify(n Notifier) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notifiers = append(t.notifiers, n)
}

// Conquer is the monitor's conquest callback. The monitor flips one
// checkpoint per call, so the progress read here counts cp and no later one.
func (t *Tracker) Conquer(cp Checkpoint) {
	p := t.Progress()
	t.mu.RLock()
	notifiers := t.notifiers
	t.mu.RUnlock()
	for _, n := range notifiers {
		n.Conquered(cp, p)
	}
}
