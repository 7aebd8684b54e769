package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/codequest/backend-go/internal/auth"
	"github.com/codequest/backend-go/internal/board"
	"github.com/codequest/backend-go/internal/collab"
	"github.com/codequest/backend-go/internal/config"
	"github.com/codequest/backend-go/internal/db"
	"github.com/codequest/backend-go/internal/db/dbgen"
	"github.com/codequest/backend-go/internal/engine"
	"github.com/codequest/backend-go/internal/export"
	mw "github.com/codequest/backend-go/internal/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		slog.Error("migrate database", "error", err)
		os.Exit(1)
	}

	queries := dbgen.New(pool)
	theme := engine.ThemeByName(cfg.Theme)

	tokens := auth.NewService(cfg.ShareSecret)
	authHandler := auth.NewHandler(tokens)

	boardService := board.NewService(queries, tokens)

	// The hub loads a board's canvas when its first client connects and saves
	// snapshots while the session is live.
	hub := collab.NewHub(boardService.LoadCanvas, boardService.SaveCanvas, theme)
	go hub.Run()
	wsHandler := collab.NewHandler(hub, tokens, cfg.OriginHosts())

	boardHandler := board.NewHandler(boardService, hub)

	exportHandler := export.NewHandler(cfg.ExportDir, boardService, theme)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Export endpoints (public)
	r.HandleFunc("/export/png", exportHandler.ExportPNG).Methods("POST", "OPTIONS")
	r.PathPrefix("/exports/").Handler(exportHandler.Serve()).Methods("GET")

	// Board creation and listing (public; creation hands out the share tokens)
	r.HandleFunc("/api/boards", boardHandler.List).Methods("GET")
	r.HandleFunc("/api/boards", boardHandler.Create).Methods("POST", "OPTIONS")

	// Board routes, protected by a share token for that board
	api := r.PathPrefix("/api/boards/{boardId}").Subrouter()
	api.Use(tokens.Middleware)

	api.HandleFunc("", boardHandler.Get).Methods("GET")
	api.HandleFunc("", boardHandler.Delete).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/snapshots/latest", boardHandler.GetLatestSnapshot).Methods("GET")
	api.HandleFunc("/snapshots", auth.RequireEdit(boardHandler.SaveSnapshot)).Methods("POST", "OPTIONS")
	api.HandleFunc("/share", authHandler.Share).Methods("POST", "OPTIONS")
	api.HandleFunc("/export.png", exportHandler.BoardPNG).Methods("GET")
	api.HandleFunc("/exports", auth.RequireEdit(exportHandler.Store)).Methods("POST", "OPTIONS")

	// WebSocket endpoint
	r.HandleFunc("/ws/board/{boardId}", wsHandler.ServeWS)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop hub first to save all live canvases
		slog.Info("saving live canvases...")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "theme", theme.Name)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
