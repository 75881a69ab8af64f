package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/voicerelay/backend/internal/config"
	"github.com/voicerelay/backend/internal/handler"
	"github.com/voicerelay/backend/internal/metrics"
	"github.com/voicerelay/backend/internal/model/persona"
	"github.com/voicerelay/backend/internal/service/ai"
	"github.com/voicerelay/backend/internal/service/chat"
	"github.com/voicerelay/backend/internal/service/speech"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	log.Printf("completion provider %q configured", cfg.Completion.Provider)

	p, err := persona.Load(cfg.Persona.File, persona.Overrides{
		SystemPrompt: cfg.Persona.Prompt,
		MaxTokens:    cfg.Persona.MaxTokens,
		Temperature:  cfg.Persona.Temperature,
	})
	if err != nil {
		log.Fatalf("failed to load persona: %v", err)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	chatModel, err := ai.NewChatModel(ctx, cfg.Completion)
	if err != nil {
		log.Fatalf("failed to create chat model: %v", err)
	}

	aiService, err := ai.NewService(ctx, chatModel, p, m)
	if err != nil {
		log.Fatalf("failed to initialize AI service: %v", err)
	}
	log.Printf("AI service initialized with persona %q", p.Name)

	speechClient := speech.NewClient(cfg.Speech.BaseURL,
		speech.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Speech.Timeout) * time.Second}),
		speech.WithMetrics(m),
	)
	log.Printf("speech client targeting %s", cfg.Speech.BaseURL)

	chatService := chat.NewService(aiService, speechClient)
	activePersona := aiService.Persona()

	router := handler.NewRouter(chatService, m, handler.Options{
		ProgressFrames: cfg.Session.ProgressFrames,
		Persona:        &activePersona,
	})

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("voice relay listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
