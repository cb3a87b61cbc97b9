package mapview

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Aditya4503/YATRIK/internal/geo"
	"github.com/Aditya4503/YATRIK/internal/quest"
)

// ErrInvalidToken means the map widget can't be initialised. The quest
// itself doesn't depend on the widget and keeps working.
var ErrInvalidToken = errors.New("mapview: invalid map token")

// Config holds the interactive map widget settings handed to the client.
type Config struct {
	Token  string    `yaml:"token" json:"token"`
	Style  string    `yaml:"style" json:"style"`
	Center geo.Point `yaml:"center" json:"center"`
	Zoom   float64   `yaml:"zoom" json:"zoom"`
}

// DefaultConfig centers the widget on the QR checkpoints.
func DefaultConfig() Config {
	return Config{
		Style:  "mapbox://styles/mapbox/streets-v12",
		Center: geo.Point{Latitude: 20.006926, Longitude: 73.795379},
		Zoom:   16,
	}
}

// Validate checks that the token is a public (pk.) access token.
func (c Config) Validate() error {
	tok := strings.TrimSpace(c.Token)
	switch {
	case tok == "":
		return fmt.Errorf("%w: token is empty", ErrInvalidToken)
	case !strings.HasPrefix(tok, "pk."):
		return fmt.Errorf("%w: must be a public token starting with 'pk.'", ErrInvalidToken)
	}
	return nil
}

// Marker is one checkpoint as the interactive widget draws it.
type Marker struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	ContentRef string  `json:"contentRef"`
	Conquered  bool    `json:"conquered"`
}

// Markers projects checkpoints, with their conquered state, for the widget.
func Markers(cps []quest.Checkpoint) []Marker {
	out := make([]Marker, len(cps))
	for i, cp := range cps {
		out[i] = Marker{
			ID:         cp.ID,
			Name:       cp.Name,
			Lat:        cp.Location.Latitude,
			Lng:        cp.Location.Longitude,
			ContentRef: cp.ContentRef,
			Conquered:  cp.Conquered,
		}
	}
	return out
}

// Pin is a tappable spot on the static illustrated map.
type Pin struct {
	ContentRef string  `json:"contentRef"`
	Name       string  `json:"name"`
	X          float64 `json:"x"` // %
	Y          float64 `json:"y"` // %
}

// Illustrated returns the overlay pins for the static temple map.
func Illustrated(cps []quest.Checkpoint) []Pin {
	out := make([]Pin, len(cps))
	for i, cp := range cps {
		out[i] = Pin{ContentRef: cp.ContentRef, Name: cp.Name, X: cp.MapX, Y: cp.MapY}
	}
	return out
}
