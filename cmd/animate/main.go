// Playback demo. Runs an emotion timeline against a VRM model (or the
// placeholder rig) in real time and prints every expression change.
//
// Usage:
//
//	animate -model models/misuzu.vrm -timeline cues.json
//
// The timeline file is a JSON array of {timestamp, emotion, intensity}
// objects; without one the built-in fallback timeline plays.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tastetalk/go-tastetalk/internal/log"
	"github.com/tastetalk/go-tastetalk/pkg/avatar"
	"github.com/tastetalk/go-tastetalk/pkg/emotion"
	"github.com/tastetalk/go-tastetalk/pkg/playback"
)

func main() {
	modelPath := flag.String("model", "", "path to a .vrm model (empty for placeholder rig)")
	timelinePath := flag.String("timeline", "", "path to a JSON marker file (empty for fallback timeline)")
	hold := flag.Duration("hold", 0, "override the default cue hold")
	flag.Parse()

	log.Init("debug")

	target := loadTarget(*modelPath)
	defer target.Close()
	target.PlayIdle()

	tl := loadTimeline(*timelinePath)

	fmt.Printf("🎭 Playing %d markers on %s (span %v)\n", len(tl), target.Name(), tl.End())

	done := make(chan struct{})
	opts := []playback.Option{
		playback.WithRunComplete(func(runID string) {
			fmt.Printf("✅ Run %s complete\n", runID)
			close(done)
		}),
	}
	if *hold > 0 {
		opts = append(opts, playback.WithDefaultHold(*hold))
	}

	sched := playback.NewScheduler(target, opts...)

	// Playback starts the way it does in the app: through the audio gate,
	// which supplies the timing origin once the clip is ready. The demo has
	// no clip, so it reports readiness immediately.
	gate := playback.NewGate(func(start time.Time) {
		sched.Start(tl, start)
	})
	gate.Loaded()

	select {
	case <-done:
	case <-time.After(tl.End() + 5*time.Second):
		fmt.Println("⚠️  Timed out waiting for run to finish")
	}
}

func loadTarget(path string) avatar.Target {
	if path == "" {
		return avatar.NewPlaceholderRig("placeholder")
	}
	target, err := avatar.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
	return target
}

func loadTimeline(path string) emotion.Timeline {
	if path == "" {
		return emotion.Fallback()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ read timeline: %v\n", err)
		os.Exit(1)
	}

	var raw []emotion.RawMarker
	if err := json.Unmarshal(data, &raw); err != nil {
		fmt.Fprintf(os.Stderr, "❌ parse timeline: %v\n", err)
		os.Exit(1)
	}
	return emotion.Normalize(raw)
}
