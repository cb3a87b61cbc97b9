package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Aditya4503/YATRIK/internal/geo"
	"github.com/Aditya4503/YATRIK/internal/gps"
	"github.com/Aditya4503/YATRIK/internal/mapview"
	"github.com/Aditya4503/YATRIK/internal/quest"
)

// Frame is the JSON structure sent to a websocket client.
type Frame struct {
	Type       string           `json:"type"` // state, conquest, position, view, error
	Session    string           `json:"session,omitempty"`
	State      string           `json:"state,omitempty"`
	Markers    []mapview.Marker `json:"markers,omitempty"`
	Checkpoint *mapview.Marker  `json:"checkpoint,omitempty"`
	Progress   *quest.Progress  `json:"progress,omitempty"`
	ContentRef string           `json:"contentRef,omitempty"`
	Position   *gps.Sample      `json:"position,omitempty"`
	Walked     *WalkedData      `json:"walked,omitempty"`
	Map        *MapData         `json:"map,omitempty"`
	Error      *ErrorData       `json:"error,omitempty"`
	Stamp      int64            `json:"stamp"` // Unix ms
}

// WalkedData is the visitor's walked distance this session.
type WalkedData struct {
	Meters float64 `json:"meters"`
}

// MapData tells the client how to set up the interactive widget.
type MapData struct {
	Config mapview.Config `json:"config"`
	Error  string         `json:"error,omitempty"`
}

// ErrorData describes a failure to the client.
type ErrorData struct {
	Kind    string `json:"kind"` // location, storyNotFound, locked, badRequest
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
}

// inbound is a client → server websocket message.
type inbound struct {
	Type string `json:"type"` // start, stop, position, positionError, tap

	// position
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Accuracy  float64 `json:"accuracy"`
	Timestamp int64   `json:"timestamp"` // Unix ms

	// positionError
	Code    int    `json:"code"`
	Message string `json:"message"`

	// tap
	ContentRef string `json:"contentRef"`
	Mode       string `json:"mode"` // "map" or "quest"
}

// session is one visitor's quest: its own registry, monitor and odometer.
type session struct {
	id     string
	srv    *Server
	client *wsClient
	ctx    context.Context

	reg     *quest.Registry
	tracker *quest.Tracker
	monitor *quest.Monitor
	push    *gps.PushProvider // nil unless the browser is the position source

	odoMu   sync.Mutex
	odo     float64 // meters
	last    geo.Point
	hasLast bool
}

func (s *Server) newSession(ctx context.Context, id string, client *wsClient) (*session, error) {
	reg, err := quest.NewRegistry(s.seed)
	if err != nil {
		return nil, err
	}
	sess := &session{
		id:      id,
		srv:     s,
		client:  client,
		ctx:     ctx,
		reg:     reg,
		tracker: quest.NewTracker(reg),
	}

	provider := s.provider
	if provider == nil {
		sess.push = gps.NewPushProvider()
		provider = sess.push
	}
	provider = gps.Observe(provider, sess.observe)

	sess.monitor = quest.NewMonitor(reg, provider, s.cfg.MonitorConfig())
	sess.tracker.Notify(quest.NotifierFunc(sess.conquered))
	sess.tracker.Notify(s.visits.Notifier(id))
	return sess, nil
}

// handle dispatches one inbound message.
func (sess *session) handle(raw []byte) {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		sess.sendError("badRequest", 0, "malformed message")
		return
	}

	switch msg.Type {
	case "start":
		sess.start()
	case "stop":
		sess.monitor.Stop()
		sess.sendState()
	case "position":
		sess.position(msg)
	case "positionError":
		if sess.push != nil {
			sess.push.Fail(gps.ParseBrowserError(msg.Code, msg.Message))
		}
	case "tap":
		sess.tap(msg.ContentRef, msg.Mode == "quest")
	default:
		sess.sendError("badRequest", 0, fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

func (sess *session) start() {
	err := sess.monitor.Start(sess.ctx, sess.tracker.Conquer, sess.failed)
	if err != nil {
		log.Printf("[quest] %s: start failed: %v", sess.id, err)
		sess.sendLocationError(err)
	} else {
		log.Printf("[quest] %s: tracking started", sess.id)
	}
	sess.sendState()
}

func (sess *session) position(msg inbound) {
	if sess.push == nil {
		return // hardware source owns the position stream
	}
	s := gps.Sample{
		Location:       geo.Point{Latitude: msg.Lat, Longitude: msg.Lng},
		AccuracyMeters: msg.Accuracy,
	}
	if !s.Location.Valid() {
		sess.sendError("badRequest", 0, "position out of range")
		return
	}
	if msg.Timestamp > 0 {
		s.Timestamp = time.UnixMilli(msg.Timestamp)
	}
	sess.push.Push(s)
}

// tap is a view request, never a conquest. On the quest map only conquered
// checkpoints open; the static map opens any of them.
func (sess *session) tap(ref string, questMode bool) {
	cp, ok := sess.reg.ByContentRef(ref)
	if !ok || !sess.srv.stories.Has(ref) {
		sess.sendError("storyNotFound", 0, fmt.Sprintf("no story for %q", ref))
		return
	}
	if questMode && !cp.Conquered {
		sess.sendError("locked", 0, fmt.Sprintf("visit %s to unlock", cp.Name))
		return
	}
	sess.send(Frame{Type: "view", ContentRef: ref})
}

// conquered is the tracker notifier for this session.
func (sess *session) conquered(cp quest.Checkpoint, p quest.Progress) {
	log.Printf("[quest] %s: conquered %s (%d/%d)", sess.id, cp.Name, p.Conquered, p.Total)
	marker := mapview.Markers([]quest.Checkpoint{cp})[0]
	sess.send(Frame{
		Type:       "conquest",
		Checkpoint: &marker,
		Progress:   &p,
		ContentRef: cp.ContentRef,
	})
}

// failed is the monitor error callback. The stream is already down.
func (sess *session) failed(err error) {
	log.Printf("[quest] %s: location stream stopped: %v", sess.id, err)
	sess.sendLocationError(err)
	sess.sendState()
}

// observe sees every sample before the monitor does.
func (sess *session) observe(s gps.Sample) {
	walked := sess.updateOdometer(s.Location)
	sess.send(Frame{Type: "position", Position: &s, Walked: &WalkedData{Meters: walked}})
}

// updateOdometer accumulates walked distance, ignoring jitter and jumps.
func (sess *session) updateOdometer(p geo.Point) float64 {
	sess.odoMu.Lock()
	defer sess.odoMu.Unlock()

	if !sess.hasLast {
		// First fix: seed position, don't accumulate
		sess.last = p
		sess.hasLast = true
		return sess.odo
	}

	dist := geo.DistanceMeters(sess.last, p)

	// Sanity check: ignore jumps > 500m between samples (GPS glitch)
	if dist > 500 {
		sess.last = p
		return sess.odo
	}
	// Minimum movement threshold: ~2 meters
	if dist > 2 {
		sess.odo += dist
		sess.last = p
	}
	return sess.odo
}

func (sess *session) stateFrame() Frame {
	p := sess.tracker.Progress()
	return Frame{
		Type:     "state",
		Session:  sess.id,
		State:    sess.monitor.State().String(),
		Markers:  mapview.Markers(sess.reg.Checkpoints()),
		Progress: &p,
	}
}

func (sess *session) sendState() { sess.send(sess.stateFrame()) }

func (sess *session) sendLocationError(err error) {
	code := int(gps.PositionUnavailable)
	var gerr *gps.Error
	if errors.As(err, &gerr) {
		code = int(gerr.Code)
	}
	sess.sendError("location", code, err.Error())
}

func (sess *session) sendError(kind string, code int, msg string) {
	sess.send(Frame{Type: "error", Error: &ErrorData{Kind: kind, Code: code, Message: msg}})
}

func (sess *session) send(f Frame) {
	if f.Stamp == 0 {
		f.Stamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(f)
	if err != nil {
		log.Printf("[ws] marshal %s frame: %v", f.Type, err)
		return
	}
	sess.client.push(data)
}

// close stops tracking; no callbacks reach the client afterwards.
func (sess *session) close() {
	sess.monitor.Stop()
}
