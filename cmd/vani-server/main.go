// vani-server: voice assistant backend for the commodity price app.
// Accepts audio or text turns over HTTP, streams lifecycle events over
// websocket, and speaks replies back in the farmer's language.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kisansathi/go-vani/internal/config"
	"github.com/kisansathi/go-vani/internal/log"
	"github.com/kisansathi/go-vani/pkg/hub"
	"github.com/kisansathi/go-vani/pkg/inference"
	"github.com/kisansathi/go-vani/pkg/registry"
	"github.com/kisansathi/go-vani/pkg/session"
	"github.com/kisansathi/go-vani/pkg/stt"
	"github.com/kisansathi/go-vani/pkg/tts"
	"github.com/kisansathi/go-vani/pkg/web"
)

var (
	port      = flag.String("port", "", "HTTP listen port (overrides VANI_PORT)")
	cacheSize = flag.Int("tts-cache", tts.DefaultCacheSize, "synthesized audio cache entries")
)

func main() {
	flag.Parse()
	log.Init(config.LogLevel())
	logger := log.Component("main")

	listen := config.Port()
	if *port != "" {
		listen = *port
	}

	// Generation requires Groq; transcription and synthesis degrade
	// across whichever providers have keys.
	groqKey := config.GroqAPIKeyRequired()

	transcriber, err := buildTranscriber(groqKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer transcriber.Close()

	synthesizer, err := buildSynthesizer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer synthesizer.Close()

	generator, err := inference.NewClient(
		inference.WithAPIKey(groqKey),
		inference.WithLogger(log.L()),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer generator.Close()

	events := hub.New("events", log.L())

	factory := func(language string) *session.Session {
		cb := &session.Callbacks{}
		s := session.New(transcriber, generator, synthesizer,
			session.WithLanguage(language),
			session.WithCallbacks(cb),
			session.WithSessionLogger(log.L()),
		)
		wireEvents(cb, events, s)
		return s
	}

	reg := registry.New(factory,
		registry.WithIdleTimeout(config.SessionIdleTimeout()),
		registry.WithLogger(log.L()),
	)
	defer reg.Close()

	server := web.NewServer(listen, reg, events,
		web.WithServerLogger(log.L()),
		web.WithHealthCheck("stt", transcriber.Health),
		web.WithHealthCheck("tts", synthesizer.Health),
		web.WithHealthCheck("inference", generator.Health),
	)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()
	logger.Info("vani-server started", "port", listen, "language", config.DefaultLanguageCode())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	if err := server.Shutdown(); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

// buildTranscriber assembles the STT fallback chain from whichever
// providers have API keys: Sarvam first, Whisper on Groq second.
func buildTranscriber(groqKey string) (*stt.Chain, error) {
	var providers []stt.Provider

	if key := config.SarvamAPIKey(); key != "" {
		p, err := stt.NewSarvam(stt.WithAPIKey(key), stt.WithLogger(log.L()))
		if err != nil {
			return nil, fmt.Errorf("sarvam stt: %w", err)
		}
		providers = append(providers, p)
	}

	p, err := stt.NewWhisper(stt.WithAPIKey(groqKey), stt.WithLogger(log.L()))
	if err != nil {
		return nil, fmt.Errorf("whisper stt: %w", err)
	}
	providers = append(providers, p)

	return stt.NewChainWithLogger(log.L(), providers...)
}

// buildSynthesizer assembles the TTS fallback chain behind an LRU
// cache: Sarvam bulbul first, the Bhashini pipeline second.
func buildSynthesizer() (tts.Provider, error) {
	var providers []tts.Provider

	if key := config.SarvamAPIKey(); key != "" {
		p, err := tts.NewSarvam(tts.WithAPIKey(key), tts.WithLogger(log.L()))
		if err != nil {
			return nil, fmt.Errorf("sarvam tts: %w", err)
		}
		providers = append(providers, p)
	}
	if key := config.BhashiniAPIKey(); key != "" {
		p, err := tts.NewBhashini(tts.WithAPIKey(key), tts.WithLogger(log.L()))
		if err != nil {
			return nil, fmt.Errorf("bhashini tts: %w", err)
		}
		providers = append(providers, p)
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no TTS provider configured: set SARVAM_API_KEY or BHASHINI_API_KEY")
	}

	chain, err := tts.NewChainWithLogger(log.L(), providers...)
	if err != nil {
		return nil, err
	}
	return tts.NewCachingProvider(chain, *cacheSize, log.L())
}

// wireEvents fans the session lifecycle out to websocket observers.
func wireEvents(cb *session.Callbacks, events *hub.Hub, s *session.Session) {
	turnID := func() string {
		if t := s.CurrentTurn(); t != nil {
			return t.ID
		}
		return ""
	}

	cb.OnStateChange = func(from, to session.State) {
		events.BroadcastEvent(s.ID, turnID(), hub.EventStateChanged, string(from)+">"+string(to))
	}
	cb.OnTranscript = func(text string) {
		events.BroadcastEvent(s.ID, turnID(), hub.EventTranscript, text)
	}
	cb.OnResponse = func(text string) {
		events.BroadcastEvent(s.ID, turnID(), hub.EventResponse, text)
	}
	cb.OnSpeakingStart = func() {
		events.BroadcastEvent(s.ID, turnID(), hub.EventSpeakingStart, "")
	}
	cb.OnSpeakingEnd = func() {
		events.BroadcastEvent(s.ID, turnID(), hub.EventSpeakingEnd, "")
	}
	cb.OnError = func(err error) {
		if session.IsCancelled(err) {
			events.BroadcastEvent(s.ID, "", hub.EventTurnCancelled, "")
			return
		}
		events.BroadcastEvent(s.ID, "", hub.EventTurnFailed, err.Error())
	}

	events.BroadcastEvent(s.ID, "", hub.EventSessionCreated, s.Language())
}
