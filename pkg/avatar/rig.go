package avatar

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/qmuntal/gltf"
)

// Load opens a VRM model (a glTF container) and returns the most capable
// target the file supports: a ChannelRig when the model declares expression
// channels, otherwise a PlaceholderRig driving generic transforms.
// Capability is decided here, once, never re-probed during playback.
func Load(path string) (Target, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("avatar: open model %s: %w", path, err)
	}

	name := filepath.Base(path)
	channels := expressionChannels(doc)
	hasIdle := len(doc.Animations) > 0

	if len(channels) == 0 {
		slog.Warn("model has no expression channels, using placeholder rig", "model", name)
		return NewPlaceholderRig(name), nil
	}

	rig := &ChannelRig{
		name:     name,
		hasIdle:  hasIdle,
		channels: make(map[string]float64, len(channels)),
		logger:   slog.Default().With("component", "avatar", "model", name),
	}
	for _, ch := range channels {
		rig.channels[ch] = 0
	}
	rig.channels["neutral"] = 1.0

	rig.logger.Info("model loaded", "channels", len(channels), "idle_animation", hasIdle)
	return rig, nil
}

// expressionChannels collects the expression channel names a model declares.
// VRM 1.0 stores them under the VRMC_vrm extension, VRM 0.x under VRM
// blend-shape groups; generic glTF morph targets carry names in mesh extras.
func expressionChannels(doc *gltf.Document) []string {
	if names := vrmExpressionNames(doc.Extensions); len(names) > 0 {
		return names
	}
	return morphTargetNames(doc)
}

func vrmExpressionNames(exts gltf.Extensions) []string {
	// VRM 1.0
	if raw, ok := rawExtension(exts, "VRMC_vrm"); ok {
		var ext struct {
			Expressions struct {
				Preset map[string]json.RawMessage `json:"preset"`
				Custom map[string]json.RawMessage `json:"custom"`
			} `json:"expressions"`
		}
		if json.Unmarshal(raw, &ext) == nil {
			names := make([]string, 0, len(ext.Expressions.Preset)+len(ext.Expressions.Custom))
			for name := range ext.Expressions.Preset {
				names = append(names, name)
			}
			for name := range ext.Expressions.Custom {
				names = append(names, name)
			}
			return names
		}
	}

	// VRM 0.x
	if raw, ok := rawExtension(exts, "VRM"); ok {
		var ext struct {
			BlendShapeMaster struct {
				Groups []struct {
					Name       string `json:"name"`
					PresetName string `json:"presetName"`
				} `json:"blendShapeGroups"`
			} `json:"blendShapeMaster"`
		}
		if json.Unmarshal(raw, &ext) == nil {
			var names []string
			for _, g := range ext.BlendShapeMaster.Groups {
				if g.PresetName != "" {
					names = append(names, g.PresetName)
				} else if g.Name != "" {
					names = append(names, g.Name)
				}
			}
			return names
		}
	}

	return nil
}

// rawExtension extracts an unregistered extension payload. The gltf decoder
// keeps unknown extensions as raw JSON.
func rawExtension(exts gltf.Extensions, key string) (json.RawMessage, bool) {
	v, ok := exts[key]
	if !ok {
		return nil, false
	}
	switch e := v.(type) {
	case json.RawMessage:
		return e, true
	case []byte:
		return e, true
	default:
		raw, err := json.Marshal(v)
		return raw, err == nil
	}
}

func morphTargetNames(doc *gltf.Document) []string {
	var names []string
	for _, mesh := range doc.Meshes {
		extras, ok := mesh.Extras.(map[string]interface{})
		if !ok {
			continue
		}
		targetNames, ok := extras["targetNames"].([]interface{})
		if !ok {
			continue
		}
		for _, n := range targetNames {
			if s, ok := n.(string); ok {
				names = append(names, s)
			}
		}
	}
	return names
}

// ChannelRig is an expression-capable avatar. Weights live here as the
// authoritative state; a renderer reads them per frame.
type ChannelRig struct {
	name    string
	hasIdle bool
	logger  *slog.Logger

	mu       sync.RWMutex
	idling   bool
	channels map[string]float64
}

// Name implements Target.
func (r *ChannelRig) Name() string { return r.name }

// SetExpressionWeight sets one channel's weight. Channels the model does not
// declare are still tracked so a degraded model misses cues silently rather
// than erroring mid-playback.
func (r *ChannelRig) SetExpressionWeight(channel string, weight float64) {
	r.mu.Lock()
	r.channels[channel] = weight
	r.mu.Unlock()
	r.logger.Debug("expression weight", "channel", channel, "weight", weight)
}

// Weight returns the current weight of one channel.
func (r *ChannelRig) Weight(channel string) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channels[channel]
}

// Weights returns a snapshot of all channel weights.
func (r *ChannelRig) Weights() map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]float64, len(r.channels))
	for ch, w := range r.channels {
		out[ch] = w
	}
	return out
}

// PlayIdle starts the model's base idle loop, if it shipped one.
func (r *ChannelRig) PlayIdle() {
	r.mu.Lock()
	r.idling = r.hasIdle
	r.mu.Unlock()
	if !r.hasIdle {
		r.logger.Warn("no idle animation in model")
	}
}

// Idling reports whether the base idle animation is running.
func (r *ChannelRig) Idling() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.idling
}

// Close implements Target.
func (r *ChannelRig) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.idling = false
	return nil
}

// PlaceholderRig is the degraded variant driving generic transforms on a
// stand-in mesh. Pulses self-revert on their own timers; each property keeps
// at most one pending revert, so a re-pulse replaces the previous timer
// instead of piling a new one on.
type PlaceholderRig struct {
	name string

	mu         sync.Mutex
	scale      float64
	lift       float64
	scaleTimer *time.Timer
	liftTimer  *time.Timer
}

// NewPlaceholderRig creates a placeholder rig at rest.
func NewPlaceholderRig(name string) *PlaceholderRig {
	return &PlaceholderRig{name: name, scale: 1.0}
}

// Name implements Target.
func (p *PlaceholderRig) Name() string { return p.name }

// PlayIdle implements Target. The placeholder has no idle clip.
func (p *PlaceholderRig) PlayIdle() {}

// PulseScale bumps the uniform scale and schedules its own revert. A pulse
// arriving before the previous revert fires takes over its timer slot.
func (p *PlaceholderRig) PulseScale(amount float64, revertAfter time.Duration) {
	p.mu.Lock()
	p.scale = 1.0 + amount
	if p.scaleTimer != nil {
		p.scaleTimer.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(revertAfter, func() {
		p.mu.Lock()
		// A later pulse may have taken the slot after this timer fired.
		if p.scaleTimer == t {
			p.scale = 1.0
			p.scaleTimer = nil
		}
		p.mu.Unlock()
	})
	p.scaleTimer = t
	p.mu.Unlock()
}

// PulseLift bumps the vertical offset and schedules its own revert.
func (p *PlaceholderRig) PulseLift(amount float64, revertAfter time.Duration) {
	p.mu.Lock()
	p.lift = amount
	if p.liftTimer != nil {
		p.liftTimer.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(revertAfter, func() {
		p.mu.Lock()
		if p.liftTimer == t {
			p.lift = 0
			p.liftTimer = nil
		}
		p.mu.Unlock()
	})
	p.liftTimer = t
	p.mu.Unlock()
}

// Scale returns the current uniform scale.
func (p *PlaceholderRig) Scale() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scale
}

// Lift returns the current vertical offset.
func (p *PlaceholderRig) Lift() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lift
}

// Close stops any pending pulse reverts and rests the transform.
func (p *PlaceholderRig) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.scaleTimer != nil {
		p.scaleTimer.Stop()
		p.scaleTimer = nil
	}
	if p.liftTimer != nil {
		p.liftTimer.Stop()
		p.liftTimer = nil
	}
	p.scale = 1.0
	p.lift = 0
	return nil
}

// Compile-time capability checks.
var (
	_ ChannelTarget   = (*ChannelRig)(nil)
	_ TransformTarget = (*PlaceholderRig)(nil)
)
