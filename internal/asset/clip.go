package asset

import "fmt"

// SampleStep is the fixed interval between animation samples (24 fps).
const SampleStep = 1.0 / 24.0

// TrackKind is the value type of a track.
type TrackKind int

const (
	Position TrackKind = iota
	Rotation
)

func (k TrackKind) String() string {
	switch k {
	case Position:
		return "position"
	case Rotation:
		return "rotation"
	}
	return fmt.Sprintf("TrackKind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k TrackKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Key is one keyframe. Positions use Value[0:3]; rotations are quaternions (x, y, z, w).
type Key struct {
	Time  float64    `json:"time"`
	Value [4]float64 `json:"value"`
}

// Track is the keyframe list driving one property of one node.
type Track struct {
	Path string    `json:"path"`
	Kind TrackKind `json:"kind"`
	Keys []Key     `json:"keys"`
}

// Add appends a key unless its value equals the previous key's value.
// The first key is always kept. Reports whether the key was appended.
func (t *Track) Add(time float64, v [4]float64) bool {
	if n := len(t.Keys); n > 0 && t.Keys[n-1].Value == v {
		return false
	}
	t.Keys = append(t.Keys, Key{Time: time, Value: v})
	return true
}

// AnimationClip is a set of tracks sampled at SampleStep.
type AnimationClip struct {
	Name   string   `json:"name"`
	Step   float64  `json:"step"`
	Length float64  `json:"length"`
	Loop   bool     `json:"loop"`
	Tracks []*Track `json:"tracks"`
}

// NewAnimationClip returns an empty clip with the default step.
func NewAnimationClip(name string) *AnimationClip {
	return &AnimationClip{Name: name, Step: SampleStep}
}

// ExtendTo grows the clip to cover samples frames. It never shrinks.
func (c *AnimationClip) ExtendTo(samples int) {
	if l := float64(samples) * c.Step; l > c.Length {
		c.Length = l
	}
}

// Track returns the first track with the given path and kind, or nil.
func (c *AnimationClip) Track(path string, kind TrackKind) *Track {
	for _, t := range c.Tracks {
		if t.Path == path && t.Kind == kind {
			return t
		}
	}
	return nil
}
