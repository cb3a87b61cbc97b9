package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Aditya4503/YATRIK/internal/gps"
	"github.com/Aditya4503/YATRIK/internal/mapview"
	"github.com/Aditya4503/YATRIK/internal/quest"
	"github.com/Aditya4503/YATRIK/internal/story"
	"github.com/Aditya4503/YATRIK/internal/visitlog"
)

// Server serves the temple site and runs one quest session per websocket
// client.
type Server struct {
	cfg      *Config
	seed     []quest.Checkpoint
	provider gps.Provider // shared source; nil means each browser pushes its own
	stories  *story.Catalog
	webFS    fs.FS
	visits   *visitlog.Logger

	clients   map[*wsClient]struct{}
	clientsMu sync.RWMutex
	sessions  atomic.Uint64

	upgrader websocket.Upgrader
	baseCtx  context.Context
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// push queues a message, dropping it if the client is slow or gone.
func (c *wsClient) push(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		// Client too slow, skip
	}
}

func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// New creates a new Server. A nil provider selects browser-pushed positions.
func New(cfg *Config, seed []quest.Checkpoint, provider gps.Provider, stories *story.Catalog, webFS fs.FS) *Server {
	s := &Server{
		cfg:      cfg,
		seed:     seed,
		provider: provider,
		stories:  stories,
		webFS:    webFS,
		visits: visitlog.New(visitlog.Config{
			Enabled: cfg.Logging.Enabled,
			Path:    cfg.Logging.Path,
			MaxRows: cfg.Logging.MaxRows,
		}),
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		baseCtx: context.Background(),
	}

	// Reported once; the quest doesn't need the widget.
	if err := cfg.MapConfig().Validate(); err != nil {
		log.Printf("[map] %v (interactive map disabled, quest still available)", err)
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Serve embedded web files
	mux.Handle("/", http.FileServer(http.FS(s.webFS)))

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWS)

	// Content API
	mux.HandleFunc("/api/checkpoints", s.handleCheckpoints)
	mux.HandleFunc("/api/story/", s.handleStory)
	mux.HandleFunc("/api/map", s.handleMap)

	// Config API
	mux.HandleFunc("/api/config", s.handleConfig)
	return mux
}

// Run starts the HTTP server and blocks until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.baseCtx = ctx

	srv := &http.Server{
		Addr:    s.cfg.Server.ListenAddr,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
		s.visits.Close()
	}()

	log.Printf("[server] listening on %s", s.cfg.Server.ListenAddr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade error: %v", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 64),
	}

	id := fmt.Sprintf("s%d", s.sessions.Add(1))
	ctx, cancel := context.WithCancel(s.baseCtx)
	sess, err := s.newSession(ctx, id, client)
	if err != nil {
		cancel()
		log.Printf("[ws] session setup failed: %v", err)
		conn.Close()
		return
	}

	s.clientsMu.Lock()
	s.clients[client] = struct{}{}
	n := len(s.clients)
	s.clientsMu.Unlock()

	log.Printf("[ws] client %s connected (%d total)", id, n)

	// Initial state + map setup
	mapData := s.mapData()
	first := sess.stateFrame()
	first.Map = &mapData
	sess.send(first)

	// Writer goroutine
	go func() {
		defer conn.Close()
		for msg := range client.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	// Reader goroutine
	go func() {
		defer func() {
			sess.close()
			cancel()
			s.clientsMu.Lock()
			delete(s.clients, client)
			n := len(s.clients)
			s.clientsMu.Unlock()
			client.close()
			log.Printf("[ws] client %s disconnected (%d total)", id, n)
		}()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			sess.handle(msg)
		}
	}()
}

// checkpointsResponse lists the seed for the static and interactive maps.
type checkpointsResponse struct {
	Pins    []mapview.Pin    `json:"pins"`
	Markers []mapview.Marker `json:"markers"`
}

func (s *Server) handleCheckpoints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", 405)
		return
	}
	writeJSON(w, http.StatusOK, checkpointsResponse{
		Pins:    mapview.Illustrated(s.seed),
		Markers: mapview.Markers(s.seed),
	})
}

func (s *Server) handleStory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", 405)
		return
	}
	ref := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/story/"), "/")
	lang := story.ParseLang(r.URL.Query().Get("lang"))

	st, err := s.stories.Lookup(ref, lang)
	if errors.Is(err, story.ErrStoryNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "storyNotFound", "ref": ref})
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", 405)
		return
	}
	writeJSON(w, http.StatusOK, s.mapData())
}

// mapData pairs the widget config with its validation result.
func (s *Server) mapData() MapData {
	cfg := s.cfg.MapConfig()
	data := MapData{Config: cfg}
	if err := cfg.Validate(); err != nil {
		data.Error = err.Error()
	}
	return data
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		data, err := s.cfg.ToJSON()
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)

	case http.MethodPost:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "bad request", 400)
			return
		}
		if err := s.cfg.UpdateFromJSON(body); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		if err := s.cfg.Save(); err != nil {
			log.Printf("[config] save failed: %v", err)
		}
		s.visits.SetEnabled(s.cfg.loggingEnabled())

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))

	default:
		http.Error(w, "method not allowed", 405)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
