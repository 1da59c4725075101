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

	"github.com/proptalk/backend/internal/config"
	"github.com/proptalk/backend/internal/handler"
	callHandler "github.com/proptalk/backend/internal/handler/call"
	"github.com/proptalk/backend/internal/handler/webhook"
	"github.com/proptalk/backend/internal/service/ai"
	"github.com/proptalk/backend/internal/service/calls"
	"github.com/proptalk/backend/internal/service/conversation"
	"github.com/proptalk/backend/internal/service/directory"
	"github.com/proptalk/backend/internal/store"
	"github.com/proptalk/backend/internal/task"
)

const sweepInterval = 10 * time.Minute

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

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("failed to open datastore: %v", err)
	}
	defer st.Close()

	// Model client, degrading to canned replies without credentials.
	var generator conversation.Generator
	var summarizer calls.Summarizer
	if cfg.AI.Enabled() {
		aiSvc, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing with fallback replies only")
			generator = ai.DisabledService{}
		} else {
			log.Println("AI service initialized successfully")
			generator = aiSvc
			summarizer = aiSvc
		}
	} else {
		log.Println("Gemini credentials not configured, using fallback replies only")
		generator = ai.DisabledService{}
	}

	state := conversation.NewState(conversation.NewMemoryStore())
	contexts := ai.NewContextBuilder(st)
	dir := directory.NewService(st)
	records := calls.NewService(st)
	finisher := calls.NewFinisher(st, state, summarizer)
	dialer := calls.NewDialer(st, cfg.Twilio)
	runner := task.NewRunner(4, 64)

	orchestrator := conversation.NewOrchestrator(state, generator, contexts, dir, records, runner)

	go sweepSessions(ctx, state)

	webhookH := webhook.New(orchestrator, records, finisher, runner, cfg.Twilio.VoiceURL())
	callsH := callHandler.New(dialer)
	router := handler.NewRouter(webhookH, callsH, state)

	startServer(ctx, cfg.Server, router)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := runner.Shutdown(shutdownCtx); err != nil {
		log.Printf("warning: background tasks did not drain: %v", err)
	}
}

// sweepSessions evicts expired call sessions so abandoned calls do not
// accumulate. Lazy eviction on lookup keeps correctness either way.
func sweepSessions(ctx context.Context, state *conversation.State) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := state.SweepExpired(); n > 0 {
				log.Printf("[main] swept %d expired call sessions", n)
			}
		}
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("PropTalk backend listening on %s", addr)
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
