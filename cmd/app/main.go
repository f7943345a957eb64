// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"helpdesk-bridge/internal/config"
	"helpdesk-bridge/internal/domain/ports/adapter"
	chatAdapters "helpdesk-bridge/internal/infra/adapters/chat"
	helpdeskAdapters "helpdesk-bridge/internal/infra/adapters/helpdesk"
	kbAdapters "helpdesk-bridge/internal/infra/adapters/kb"
	llmAdapters "helpdesk-bridge/internal/infra/adapters/llm"
	"helpdesk-bridge/internal/infra/logging"
	"helpdesk-bridge/internal/infra/metrics"
	"helpdesk-bridge/internal/infra/sched"
	"helpdesk-bridge/internal/infra/web"
	"helpdesk-bridge/internal/infra/worker"
	"helpdesk-bridge/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, verbose)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Adapters ----
	helpdeskAd, err := helpdeskAdapters.NewMissiveAdapter(cfg.Helpdesk.Token, cfg.Helpdesk.AdminUserID, cfg.Helpdesk.BaseURL, cfg.Helpdesk.Timeout)
	if err != nil {
		log.Fatalf("helpdesk adapter: %v", err)
	}
	kbAd, err := kbAdapters.NewNotionAdapter(cfg.KB.Token, cfg.KB.DatabaseID, cfg.KB.BaseURL, cfg.KB.Timeout)
	if err != nil {
		log.Fatalf("knowledge base adapter: %v", err)
	}
	chatAd, err := chatAdapters.NewSlackAdapter(cfg.Chat.Token)
	if err != nil {
		log.Fatalf("chat adapter: %v", err)
	}

	// ---- LLM adapter (OpenAI -> Gemini) ----
	var llm adapter.LLMAdapter
	if cfg.AI.OpenAIKey != "" {
		llm, err = llmAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.BaseURL, cfg.AI.Model, cfg.AI.CandidateBudget)
		if err != nil {
			log.Fatalf("openai adapter: %v", err)
		}
		logger.Info().Str("model", cfg.AI.Model).Msg("LLM adapter: OpenAI")
	} else {
		llm, err = llmAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.Model, cfg.AI.CandidateBudget)
		if err != nil {
			log.Fatalf("gemini adapter: %v", err)
		}
		logger.Info().Str("model", cfg.AI.Model).Msg("LLM adapter: Gemini")
	}

	// ---- Use cases ----
	coord := usecase.NewCoordinator(cfg.Coordinator.SubscriberBuffer, logger)
	ads := usecase.Adapters{Helpdesk: helpdeskAd, KB: kbAd, Chat: chatAd, LLM: llm}
	pipelineUC := usecase.NewPipelineUseCase(ads, coord, maxTimeout(cfg), logger)
	doneUC := usecase.NewDoneUseCase(kbAd, chatAd, helpdeskAd, cfg.KB.DonePropertyID, cfg.Notify.DefaultChannelID, logger)

	// ---- Workers ----
	pool := worker.NewPool(cfg.Worker.Count, logger)
	pool.Start(ctx)
	defer pool.Stop()

	retention := sched.NewRetentionWorker(time.Minute, cfg.Coordinator.Retention, coord, logger)
	go func() { _ = retention.Run(ctx) }()

	// ---- HTTP server ----
	srv := web.NewServer(pipelineUC, coord, doneUC, pool, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	cancel()
}

// maxTimeout picks the engine's per-call bound: the slowest adapter's
// timeout, so the engine never cuts off a call its adapter still allows.
func maxTimeout(cfg *config.Config) time.Duration {
	out := cfg.Helpdesk.Timeout
	for _, d := range []time.Duration{cfg.KB.Timeout, cfg.Chat.Timeout, cfg.AI.Timeout} {
		if d > out {
			out = d
		}
	}
	return out
}
