// TasteTalk reviewer server.
//
// Wires the Gemini review relay, the VOICEVOX narration relay, and the
// Google Places lookup behind the session HTTP API.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tastetalk/go-tastetalk/internal/config"
	"github.com/tastetalk/go-tastetalk/internal/httpc"
	"github.com/tastetalk/go-tastetalk/internal/log"
	"github.com/tastetalk/go-tastetalk/pkg/avatar"
	"github.com/tastetalk/go-tastetalk/pkg/places"
	"github.com/tastetalk/go-tastetalk/pkg/playback"
	"github.com/tastetalk/go-tastetalk/pkg/review"
	"github.com/tastetalk/go-tastetalk/pkg/session"
	"github.com/tastetalk/go-tastetalk/pkg/voice"
	"github.com/tastetalk/go-tastetalk/pkg/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log.Init(cfg.Log.Level)

	if cfg.Google.AIKey == "" {
		log.Error("GOOGLE_AI_API_KEY not set")
		os.Exit(1)
	}

	reviewer, err := review.NewGemini(cfg.Google.AIKey,
		review.WithHTTPClient(httpc.Client),
	)
	if err != nil {
		log.Error("review relay", "error", err)
		os.Exit(1)
	}

	synth, err := voice.NewVoicevox(
		voice.WithEndpoint(cfg.Voice.Endpoint),
		voice.WithSpeaker(cfg.Voice.DefaultSpeaker),
		voice.WithHTTPClient(httpc.NewClient(cfg.Voice.Timeout)),
	)
	if err != nil {
		log.Error("voice relay", "error", err)
		os.Exit(1)
	}
	defer synth.Close()

	var searcher places.Searcher
	if cfg.Google.MapsKey != "" {
		searcher, err = places.NewGoogle(cfg.Google.MapsKey,
			places.WithHTTPClient(httpc.Client),
		)
		if err != nil {
			log.Error("places relay", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("GOOGLE_MAPS_API_KEY not set, restaurant lookup disabled")
		searcher = &places.Mock{}
	}

	// The server animates whatever the configured model supports; a missing
	// model file degrades to the placeholder rig rather than failing boot.
	target, err := avatar.Load(cfg.Avatar.ModelPath)
	if err != nil {
		log.Warn("avatar model unavailable, using placeholder", "path", cfg.Avatar.ModelPath, "error", err)
		target = avatar.NewPlaceholderRig("placeholder")
	}
	defer target.Close()
	target.PlayIdle()

	sched := playback.NewScheduler(target)

	// Session mutations flow to websocket subscribers. The server does not
	// exist yet when the controller is built, so the hook binds late.
	var server *web.Server
	controller := session.NewController(reviewer, synth, searcher,
		session.WithScheduler(sched),
		session.WithOnChange(func(st session.State) {
			if server != nil {
				server.PublishState(st)
			}
		}),
	)

	server = web.NewServer(controller, synth, searcher,
		web.WithPort(cfg.Server.Port),
		web.WithMaxUploadSize(cfg.Upload.MaxFileSize),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down")
		sched.Cancel()
		server.Shutdown()
	}()

	log.Info("tastetalk reviewer starting", "port", cfg.Server.Port)
	if err := server.Start(); err != nil {
		log.Error("server", "error", err)
		os.Exit(1)
	}
}
