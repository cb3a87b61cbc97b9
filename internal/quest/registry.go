package quest

import (
	"fmt"
	"sync"

	"github.com/Aditya4503/YATRIK/internal/geo"
)

// Checkpoint is a fixed point of interest on the temple site.
type Checkpoint struct {
	ID         int       `yaml:"id" json:"id"`
	Name       string    `yaml:"name" json:"name"`
	Location   geo.Point `yaml:"location" json:"location"`
	ContentRef string    `yaml:"content_ref" json:"contentRef"` // Story key
	MapX       float64   `yaml:"map_x" json:"mapX"`             // % across the illustrated map
	MapY       float64   `yaml:"map_y" json:"mapY"`             // % down the illustrated map
	Conquered  bool      `yaml:"-" json:"conquered"`
}

// Registry is the fixed, ordered checkpoint set of one quest session.
// Membership and order never change after construction; only the
// conquered flags do.
type Registry struct {
	mu          sync.RWMutex
	checkpoints []Checkpoint
	index       map[int]int // id -> position
}

// NewRegistry copies the seed into a fresh registry with every checkpoint
// unconquered.
func NewRegistry(seed []Checkpoint) (*Registry, error) {
	if err := ValidateSeed(seed); err != nil {
		return nil, err
	}
	r := &Registry{
		checkpoints: make([]Checkpoint, len(seed)),
		index:       make(map[int]int, len(seed)),
	}
	for i, cp := range seed {
		cp.Conquered = false
		r.checkpoints[i] = cp
		r.index[cp.ID] = i
	}
	return r, nil
}

// ValidateSeed checks a checkpoint list before it becomes a registry.
func ValidateSeed(seed []Checkpoint) error {
	if len(seed) == 0 {
		return fmt.Errorf("quest: empty checkpoint list")
	}
	ids := make(map[int]bool, len(seed))
	refs := make(map[string]bool, len(seed))
	for _, cp := range seed {
		if ids[cp.ID] {
			return fmt.Errorf("quest: duplicate checkpoint id %d", cp.ID)
		}
		ids[cp.ID] = true
		if cp.ContentRef != "" {
			if refs[cp.ContentRef] {
				return fmt.Errorf("quest: duplicate content ref %q", cp.ContentRef)
			}
			refs[cp.ContentRef] = true
		}
		if !cp.Location.Valid() {
			return fmt.Errorf("quest: checkpoint %d has invalid location %+v", cp.ID, cp.Location)
		}
	}
	return nil
}

// Len returns the fixed registry size.
func (r *Registry) Len() int { return len(r.checkpoints) }

// Checkpoints returns a snapshot in registry order.
func (r *Registry) Checkpoints() []Checkpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Checkpoint, len(r.checkpoints))
	copy(out, r.checkpoints)
	return out
}

// Lookup returns the checkpoint with the given id.
func (r *Registry) Lookup(id int) (Checkpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[id]
	if !ok {
		return Checkpoint{}, false
	}
	return r.checkpoints[i], true
}

// ByContentRef returns the checkpoint carrying the given story key.
func (r *Registry) ByContentRef(ref string) (Checkpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, cp := range r.checkpoints {
		if cp.ContentRef == ref {
			return cp, true
		}
	}
	return Checkpoint{}, false
}

// MarkConquered flips the checkpoint to conquered. Unknown ids and
// already-conquered checkpoints are ignored. Reports whether the flag
// changed.
func (r *Registry) MarkConquered(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.markLocked(id)
}

func (r *Registry) markLocked(id int) bool {
	i, ok := r.index[id]
	if !ok || r.checkpoints[i].Conquered {
		return false
	}
	r.checkpoints[i].Conquered = true
	return true
}

// conquerNext marks the first unconquered checkpoint at or after index from
// that lies within threshold meters of p. It returns that checkpoint and the
// index to resume scanning at.
func (r *Registry) conquerNext(p geo.Point, threshold float64, from int) (Checkpoint, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := from; i < len(r.checkpoints); i++ {
		cp := r.checkpoints[i]
		if cp.Conquered || geo.DistanceMeters(p, cp.Location) > threshold {
			continue
		}
		r.checkpoints[i].Conquered = true
		cp.Conquered = true
		return cp, i + 1, true
	}
	return Checkpoint{}, len(r.checkpoints), false
}

// Progress counts conquered checkpoints.
func (r *Registry) Progress() Progress {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p := Progress{Total: len(r.checkpoints)}
	for _, cp := range r.checkpoints {
		if cp.Conquered {
			p.Conquered++
		}
	}
	return p
}
