package gps

import (
	"context"
	"math/rand"
	"time"

	"github.com/Aditya4503/YATRIK/internal/geo"
)

// DemoProvider simulates a visitor walking from point to point along a
// route, looping at the end.
type DemoProvider struct {
	route    []geo.Point
	interval time.Duration
	steps    int // samples per leg
	jitter   float64
}

// NewDemoProvider walks the given route. With an empty route it stands
// still at the site center.
func NewDemoProvider(route []geo.Point) *DemoProvider {
	if len(route) == 0 {
		route = []geo.Point{{Latitude: 20.006926, Longitude: 73.795379}}
	}
	return &DemoProvider{
		route:    route,
		interval: time.Second,
		steps:    10,
		jitter:   0.000005, // ~0.5m
	}
}

func (d *DemoProvider) Name() string { return "Demo GPS (Simulated)" }

func (d *DemoProvider) Watch(ctx context.Context, opts WatchOptions) (<-chan Update, error) {
	ch := make(chan Update, watcherBuffer)
	go d.walk(ctx, ch)
	return ch, nil
}

func (d *DemoProvider) walk(ctx context.Context, ch chan<- Update) {
	defer close(ch)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	leg, step := 0, 0
	for {
		from := d.route[leg%len(d.route)]
		to := d.route[(leg+1)%len(d.route)]
		p := geo.Lerp(from, to, float64(step)/float64(d.steps))
		p.Latitude += (rand.Float64()*2 - 1) * d.jitter
		p.Longitude += (rand.Float64()*2 - 1) * d.jitter

		s := &Sample{Location: p, Timestamp: time.Now(), AccuracyMeters: 5}
		select {
		case <-ctx.Done():
			return
		case ch <- Update{Sample: s}:
		}

		step++
		if step >= d.steps {
			step = 0
			leg++
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
