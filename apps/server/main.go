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

	"rummy-lite/apps/server/internal/auth"
	"rummy-lite/apps/server/internal/config"
	"rummy-lite/apps/server/internal/gateway"
	"rummy-lite/apps/server/internal/ledger"
	"rummy-lite/apps/server/internal/lobby"
	"rummy-lite/rummy/npc"
)

const (
	reapInterval = time.Minute
	idleRoomTTL  = 30 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Server] Invalid configuration: %v", err)
	}

	authService, err := auth.NewService(cfg.AuthMode, cfg.SQLitePath, cfg.DatabaseURL, cfg.SessionTTL)
	if err != nil {
		log.Fatalf("[Server] Failed to init auth manager: %v", err)
	}
	defer authService.Close()
	ledgerService, err := ledger.NewService(cfg.LedgerMode, cfg.SQLitePath, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[Server] Failed to init ledger service: %v", err)
	}
	defer ledgerService.Close()

	registry := npc.DefaultRegistry()
	if cfg.PersonasPath != "" {
		if err := registry.LoadFromFile(cfg.PersonasPath); err != nil {
			log.Fatalf("[Server] Failed to load personas from %s: %v", cfg.PersonasPath, err)
		}
	}
	npcCfg := npc.DefaultManagerConfig()
	npcCfg.ThinkScale = cfg.AIThinkScale
	npcCfg.MaxCandidateSets = cfg.Rules.MaxCandidateSets
	npcManager := npc.NewManager(registry, npcCfg)
	log.Printf("[Server] Loaded %d NPC personas", registry.Count())

	lby := lobby.New(lobby.Config{
		Rules:        cfg.Rules.Engine(),
		CodeLength:   cfg.CodeLength,
		CodeAttempts: cfg.CodeAttempts,
	}, npcManager, ledgerService)
	defer lby.Close()
	gw := gateway.New(lby, authService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go lby.RunReaper(ctx, reapInterval, idleRoomTTL)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.HandleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	auth.NewHTTPHandler(authService).RegisterRoutes(mux)
	ledger.NewHTTPHandler(authService, ledgerService).RegisterRoutes(mux)
	lobby.NewHTTPHandler(lby).RegisterRoutes(mux)

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		log.Printf("[Server] Shutting down (rooms=%d, connections=%d)", len(lby.Codes()), gw.Count())
		gw.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("[Server] Auth mode: %s", cfg.AuthMode)
	log.Printf("[Server] Ledger mode: %s", cfg.LedgerMode)
	log.Printf("[Server] Starting WebSocket server on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("[Server] Failed to start: %v", err)
	}
}
