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

	"github.com/Dyu-Ganadi/Urikkiri-Server/internal/game"
	"github.com/Dyu-Ganadi/Urikkiri-Server/internal/server"
	"github.com/Dyu-Ganadi/Urikkiri-Server/internal/store"
)

func newStore(ctx context.Context) (store.Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Println("[main] DATABASE_URL not set, using in-memory store")
		return store.NewMemoryStore(), nil
	}

	pg, err := store.NewPostgresStore(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pg.Migrate(ctx); err != nil {
		return nil, err
	}
	return pg, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[main] no .env file found, relying on environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := newStore(ctx)
	if err != nil {
		log.Fatalf("[main] store init failed: %v", err)
	}

	coordinator := game.NewCoordinator(st)
	go coordinator.RunKeepAlive(ctx)

	srv := server.NewServer(st, coordinator)
	go func() {
		log.Printf("[main] listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[main] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] graceful shutdown failed: %v", err)
	}
}
