package source

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/flightwatch/internal/models"
)

//go:embed profiles/default.yaml
var defaultProfile []byte

// Profile is a recorded flight. Every frame is merged over Base before it is
// decoded, so frames only list the parameters that change.
type Profile struct {
	Name   string           `yaml:"name"`
	Base   map[string]any   `yaml:"base"`
	Frames []map[string]any `yaml:"frames"`
}

// Replay cycles through a decoded profile, wrapping around at the end.
// Frames without a DateTime are stamped with the replay clock.
type Replay struct {
	name   string
	frames []models.FlightSnapshot
	dated  []bool

	mu  sync.Mutex
	pos int
	now func() time.Time
}

// LoadReplay reads a profile from path, or the built-in flight when path is empty.
func LoadReplay(path string) (*Replay, error) {
	data := defaultProfile
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read replay profile: %w", err)
		}
		data = raw
	}
	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse replay profile: %w", err)
	}
	return NewReplay(profile)
}

// NewReplay decodes every frame up front so a bad profile fails at startup.
func NewReplay(profile Profile) (*Replay, error) {
	if len(profile.Frames) == 0 {
		return nil, fmt.Errorf("replay profile %q has no frames", profile.Name)
	}
	r := &Replay{
		name:   profile.Name,
		frames: make([]models.FlightSnapshot, 0, len(profile.Frames)),
		dated:  make([]bool, 0, len(profile.Frames)),
		now:    time.Now,
	}
	for i, frame := range profile.Frames {
		fields := make(map[string]any, len(profile.Base)+len(frame)+1)
		for k, v := range profile.Base {
			fields[k] = v
		}
		for k, v := range frame {
			fields[k] = v
		}
		_, dated := fields[models.ParamDateTime]
		if !dated {
			fields[models.ParamDateTime] = time.Unix(0, 0).UTC()
		}
		snap, err := models.DecodeSnapshot(fields)
		if err != nil {
			return nil, fmt.Errorf("replay frame %d: %w", i, err)
		}
		r.frames = append(r.frames, snap)
		r.dated = append(r.dated, dated)
	}
	return r, nil
}

// Name reports the profile name.
func (r *Replay) Name() string { return r.name }

// Len reports the number of frames in one pass.
func (r *Replay) Len() int { return len(r.frames) }

// Next returns the current frame and advances.
func (r *Replay) Next(ctx context.Context) (models.FlightSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.FlightSnapshot{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.frames[r.pos]
	if !r.dated[r.pos] {
		snap.Timestamp = r.now().UTC()
	}
	r.pos = (r.pos + 1) % len(r.frames)
	return snap, nil
}

// Reset rewinds to the first frame.
func (r *Replay) Reset() {
	r.mu.Lock()
	r.pos = 0
	r.mu.Unlock()
}
