package gps

import (
	"context"
	"time"
)

// PushProvider is fed from outside, typically by the web client relaying
// the browser Geolocation API over the websocket.
type PushProvider struct {
	hub *hub
	now func() time.Time
}

func NewPushProvider() *PushProvider {
	return &PushProvider{hub: newHub(), now: time.Now}
}

func (p *PushProvider) Name() string { return "Browser Geolocation" }

func (p *PushProvider) Watch(ctx context.Context, opts WatchOptions) (<-chan Update, error) {
	return p.hub.add(ctx, opts), nil
}

// Push hands a sample to the current watchers. A zero timestamp is
// stamped with the current time.
func (p *PushProvider) Push(s Sample) {
	if s.Timestamp.IsZero() {
		s.Timestamp = p.now()
	}
	p.hub.publish(s)
}

// Fail reports a source error to the current watchers and ends their streams.
func (p *PushProvider) Fail(err *Error) {
	p.hub.fail(err)
}

// Watching returns the number of active watchers.
func (p *PushProvider) Watching() int { return p.hub.count() }
