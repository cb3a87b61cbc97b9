package visitlog

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/Aditya4503/YATRIK/internal/quest"
)

// Logger records conquest events to CSV files with automatic rotation.
type Logger struct {
	mu      sync.Mutex
	dir     string
	enabled bool
	maxRows int
	now     func() time.Time

	file   *os.File
	writer *csv.Writer
	rows   int
}

// Config holds visit log configuration.
type Config struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	MaxRows int    `yaml:"max_rows" json:"maxRows"`
}

const defaultMaxRows = 10_000 // Rotate after 10k conquests

var csvHeader = []string{
	"timestamp", "session", "checkpoint_id", "content_ref", "name",
	"latitude", "longitude", "conquered", "total",
}

// New creates a new Logger.
func New(cfg Config) *Logger {
	if cfg.Path == "" {
		cfg.Path = "/var/log/yatrik"
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = defaultMaxRows
	}
	return &Logger{
		dir:     cfg.Path,
		enabled: cfg.Enabled,
		maxRows: cfg.MaxRows,
		now:     time.Now,
	}
}

// SetEnabled allows toggling logging at runtime.
func (l *Logger) SetEnabled(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = on
	if !on && l.file != nil {
		l.closeFile()
	}
}

// IsEnabled returns whether logging is active.
func (l *Logger) IsEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// Record writes one conquest row.
func (l *Logger) Record(session string, cp quest.Checkpoint, p quest.Progress) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled {
		return
	}

	now := l.now()
	if l.writer == nil || l.rows >= l.maxRows {
		if err := l.rotateFile(now); err != nil {
			log.Printf("[visitlog] rotate failed: %v", err)
			return
		}
	}

	row := []string{
		now.Format(time.RFC3339Nano),
		session,
		strconv.Itoa(cp.ID),
		cp.ContentRef,
		cp.Name,
		fmt.Sprintf("%.6f", cp.Location.Latitude),
		fmt.Sprintf("%.6f", cp.Location.Longitude),
		strconv.Itoa(p.Conquered),
		strconv.Itoa(p.Total),
	}
	if err := l.writer.Write(row); err != nil {
		log.Printf("[visitlog] write failed: %v", err)
		return
	}
	l.writer.Flush()
	l.rows++
}

// Notifier binds the logger to one session for a quest.Tracker.
func (l *Logger) Notifier(session string) quest.Notifier {
	return quest.NotifierFunc(func(cp quest.Checkpoint, p quest.Progress) {
		l.Record(session, cp, p)
	})
}

// Close flushes and closes the current log file.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeFile()
}

func (l *Logger) rotateFile(now time.Time) error {
	l.closeFile()

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", l.dir, err)
	}

	filename := fmt.Sprintf("visits_%s.csv", now.Format("2006-01-02_150405.000"))
	path := filepath.Join(l.dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	l.file = f
	l.writer = csv.NewWriter(f)
	l.rows = 0

	if err := l.writer.Write(csvHeader); err != nil {
		return err
	}
	l.writer.Flush()

	log.Printf("[visitlog] opened %s", path)
	return nil
}

func (l *Logger) closeFile() {
	if l.writer != nil {
		l.writer.Flush()
		l.writer = nil
	}
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}
