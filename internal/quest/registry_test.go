package quest

import (
	"strings"
	"testing"

	"github.com/Aditya4503/YATRIK/internal/geo"
)

func TestDefaultCheckpointsSeed(t *testing.T) {
	reg, err := NewRegistry(DefaultCheckpoints())
	if err != nil {
		t.Fatalf("default seed invalid: %v", err)
	}
	if reg.Len() != 10 {
		t.Fatalf("expected 10 checkpoints, got %d", reg.Len())
	}
	p := reg.Progress()
	if p.Conquered != 0 || p.Total != 10 {
		t.Fatalf("unexpected initial progress %+v", p)
	}
	first := reg.Checkpoints()[0]
	if first.ContentRef != "main-entrance" || first.Location.Latitude != 20.006801 {
		t.Fatalf("unexpected first checkpoint %+v", first)
	}
}

func TestRegistryMarkConquered(t *testing.T) {
	reg, _ := NewRegistry(DefaultCheckpoints())

	if !reg.MarkConquered(3) {
		t.Fatal("expected first mark to change state")
	}
	if reg.MarkConquered(3) {
		t.Fatal("expected second mark to be a no-op")
	}
	if reg.MarkConquered(999) {
		t.Fatal("expected unknown id to be ignored")
	}

	cp, ok := reg.Lookup(3)
	if !ok || !cp.Conquered {
		t.Fatalf("expected checkpoint 3 conquered, got %+v", cp)
	}
	if p := reg.Progress(); p.Conquered != 1 {
		t.Fatalf("expected 1 conquered, got %+v", p)
	}
}

func TestRegistrySnapshotIsACopy(t *testing.T) {
	reg, _ := NewRegistry(DefaultCheckpoints())
	snap := reg.Checkpoints()
	snap[0].Conquered = true
	snap[0].Name = "changed"

	cp, _ := reg.Lookup(1)
	if cp.Conquered || cp.Name == "changed" {
		t.Fatal("mutating a snapshot leaked into the registry")
	}
}

func TestNewRegistryResetsConquered(t *testing.T) {
	seed := DefaultCheckpoints()
	seed[0].Conquered = true
	reg, _ := NewRegistry(seed)
	if p := reg.Progress(); p.Conquered != 0 {
		t.Fatalf("expected fresh registry, got %+v", p)
	}
}

func TestRegistryByContentRef(t *testing.T) {
	reg, _ := NewRegistry(DefaultCheckpoints())
	cp, ok := reg.ByContentRef("sacred-pond")
	if !ok || cp.ID != 10 {
		t.Fatalf("expected sacred-pond to be checkpoint 10, got %+v %v", cp, ok)
	}
	if _, ok := reg.ByContentRef("nope"); ok {
		t.Fatal("expected unknown ref to miss")
	}
}

func TestValidateSeed(t *testing.T) {
	pt := geo.Point{Latitude: 20, Longitude: 73}
	tests := []struct {
		name string
		seed []Checkpoint
		want string
	}{
		{"empty", nil, "empty"},
		{"dup id", []Checkpoint{{ID: 1, Location: pt}, {ID: 1, Location: pt}}, "duplicate checkpoint id"},
		{"dup ref", []Checkpoint{{ID: 1, ContentRef: "a", Location: pt}, {ID: 2, ContentRef: "a", Location: pt}}, "duplicate content ref"},
		{"bad location", []Checkpoint{{ID: 1, Location: geo.Point{Latitude: 91}}}, "invalid location"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSeed(tt.seed)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestParseCheckpoints(t *testing.T) {
	data := []byte(`
checkpoints:
  - id: 1
    name: QR1
    content_ref: qr1
    location: {latitude: 20.006801, longitude: 73.795663}
    map_x: 50
    map_y: 85
  - id: 2
    name: QR2
    content_ref: qr2
    location: {latitude: 20.006805, longitude: 73.795299}
`)
	cps, err := ParseCheckpoints(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cps) != 2 || cps[0].MapY != 85 || cps[1].Location.Longitude != 73.795299 {
		t.Fatalf("unexpected checkpoints %+v", cps)
	}

	if _, err := ParseCheckpoints([]byte("checkpoints: [")); err == nil {
		t.Fatal("expected YAML error")
	}
	if _, err := ParseCheckpoints([]byte("checkpoints: []")); err == nil {
		t.Fatal("expected validation error for empty list")
	}
}

func TestTrackerProgressBounds(t *testing.T) {
	reg, _ := NewRegistry(DefaultCheckpoints())
	tracker := NewTracker(reg)

	var seen []int
	tracker.Notify(NotifierFunc(func(cp Checkpoint, p Progress) {
		if p.Conquered < 0 || p.Conquered > p.Total || p.Total != 10 {
			t.Errorf("progress out of bounds: %+v", p)
		}
		seen = append(seen, cp.ID)
	}))

	for _, cp := range reg.Checkpoints() {
		reg.MarkConquered(cp.ID)
		cp.Conquered = true
		tracker.Conquer(cp)
	}
	if len(seen) != 10 {
		t.Fatalf("expected 10 notifications, got %d", len(seen))
	}
	if !tracker.Progress().Complete() {
		t.Fatalf("expected quest complete, got %+v", tracker.Progress())
	}
	if (Progress{}).Complete() {
		t.Fatal("empty progress should not be complete")
	}
}

func TestRouteFollowsRegistryOrder(t *testing.T) {
	cps := DefaultCheckpoints()
	route := Route(cps)
	for i := range cps {
		if route[i] != cps[i].Location {
			t.Fatalf("route[%d] = %+v, want %+v", i, route[i], cps[i].Location)
		}
	}
}
