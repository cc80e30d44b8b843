// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	mux_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"agenthub/internal/agent"
	"agenthub/internal/config"
	"agenthub/internal/handlers"
	"agenthub/internal/middleware"
	"agenthub/internal/repo"
	"agenthub/internal/runtime"
)

func main() {
	// --- Load config (config.yaml + env overrides) ---
	cfg := config.Load()

	// --- Connect to Postgres ---
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("db ping error: %v", err)
	}
	if err := repo.Migrate(ctx, pool); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	r := repo.New(pool)

	// --- Runtime client + coordinator ---
	rt := runtime.NewClient(cfg.Runtime.URL, cfg.Runtime.Timeout)
	coord := agent.NewCoordinator(r, rt)

	// --- Router ---
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)

	// Simple request logger (logs method, path, status, and duration)
	mux.Use(mux_middleware.Logger)

	// --- CORS middleware ---
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.Frontend.URL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by browsers
	}))

	handlers.RegisterRoutes(mux, handlers.Deps{
		Repo:    r,
		Runtime: rt,
		Coord:   coord,
		Config:  cfg,
	})

	// --- Start server ---
	addr := cfg.Addr
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}
	log.Printf("listening on %s (BASE_URL=%s, RUNTIME=%s)", addr, cfg.BaseURL, cfg.Runtime.URL)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}
