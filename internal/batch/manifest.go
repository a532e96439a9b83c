package batch

import (
	"encoding/json"
	"fmt"
	"os"
)

// ManifestEntry represents one frame in the output manifest.
type ManifestEntry struct {
	Frame    int      `json:"frame"`
	Yaw      float64  `json:"yaw"`
	Pitch    float64  `json:"pitch"`
	Distance float64  `json:"distance"`
	Image    string   `json:"image"`
	Visible  []string `json:"visible_pois,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Manifest describes a turntable export.
type Manifest struct {
	Width   int             `json:"width"`
	Height  int             `json:"height"`
	Session string          `json:"session"`
	Frames  []ManifestEntry `json:"frames"`
}

// BuildManifest pairs planned frames with their results.
func BuildManifest(cfg Config, session string, frames []Frame, results []Result) Manifest {
	m := Manifest{Width: cfg.Width, Height: cfg.Height, Session: session}
	m.Frames = make([]ManifestEntry, len(frames))
	for i, f := range frames {
		e := ManifestEntry{
			Frame:    f.Index,
			Yaw:      f.Yaw,
			Pitch:    f.Pitch,
			Distance: f.Distance,
			Image:    frameName(f.Index),
		}
		if i < len(results) {
			e.Visible = results[i].Visible
			e.Error = results[i].Error
		}
		m.Frames[i] = e
	}
	return m
}

// WriteManifest writes manifest.json to path.
func WriteManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("batch: encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("batch: write manifest: %w", err)
	}
	return nil
}

func frameName(i int) string {
	return fmt.Sprintf("frame_%03d.webp", i)
}
