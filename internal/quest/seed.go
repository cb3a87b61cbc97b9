package quest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Aditya4503/YATRIK/internal/geo"
)

// DefaultCheckpoints is the Kalaram Mandir seed. The first five carry the
// surveyed QR plaque coordinates.
func DefaultCheckpoints() []Checkpoint {
	return []Checkpoint{
		{ID: 1, Name: "Main Entrance", ContentRef: "main-entrance", MapX: 50, MapY: 85,
			Location: geo.Point{Latitude: 20.006801, Longitude: 73.795663}},
		{ID: 2, Name: "Sanctum", ContentRef: "sanctum", MapX: 50, MapY: 45,
			Location: geo.Point{Latitude: 20.006805, Longitude: 73.795299}},
		{ID: 3, Name: "Assembly Hall", ContentRef: "assembly-hall", MapX: 40, MapY: 60,
			Location: geo.Point{Latitude: 20.006807, Longitude: 73.795013}},
		{ID: 4, Name: "Ancient Inscription", ContentRef: "ancient-inscription", MapX: 70, MapY: 30,
			Location: geo.Point{Latitude: 20.007058, Longitude: 73.795275}},
		{ID: 5, Name: "East Gate", ContentRef: "east-gate", MapX: 85, MapY: 50,
			Location: geo.Point{Latitude: 20.007059, Longitude: 73.795645}},
		{ID: 6, Name: "Dharamshala", ContentRef: "dharamshala", MapX: 20, MapY: 70,
			Location: geo.Point{Latitude: 20.006640, Longitude: 73.795180}},
		{ID: 7, Name: "Yagnashala", ContentRef: "yagnashala", MapX: 30, MapY: 25,
			Location: geo.Point{Latitude: 20.007210, Longitude: 73.795090}},
		{ID: 8, Name: "West Courtyard", ContentRef: "west-courtyard", MapX: 15, MapY: 45,
			Location: geo.Point{Latitude: 20.006930, Longitude: 73.794860}},
		{ID: 9, Name: "Tulsi Garden", ContentRef: "tulsi-garden", MapX: 75, MapY: 70,
			Location: geo.Point{Latitude: 20.006560, Longitude: 73.795560}},
		{ID: 10, Name: "Sacred Pond", ContentRef: "sacred-pond", MapX: 60, MapY: 15,
			Location: geo.Point{Latitude: 20.007300, Longitude: 73.795470}},
	}
}

type seedFile struct {
	Checkpoints []Checkpoint `yaml:"checkpoints"`
}

// LoadCheckpoints reads a checkpoint list from a YAML file of the form
//
//	checkpoints:
//	  - id: 1
//	    name: Main Entrance
//	    content_ref: main-entrance
//	    location: {latitude: 20.006801, longitude: 73.795663}
//	    map_x: 50
//	    map_y: 85
func LoadCheckpoints(path string) ([]Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("quest: read %s: %w", path, err)
	}
	return ParseCheckpoints(data)
}

// ParseCheckpoints decodes and validates a YAML checkpoint list.
func ParseCheckpoints(data []byte) ([]Checkpoint, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("quest: parse checkpoints: %w", err)
	}
	if err := ValidateSeed(f.Checkpoints); err != nil {
		return nil, err
	}
	return f.Checkpoints, nil
}

// Route returns the checkpoint locations in registry order.
func Route(cps []Checkpoint) []geo.Point {
	out := make([]geo.Point, len(cps))
	for i, cp := range cps {
		out[i] = cp.Location
	}
	return out
}
