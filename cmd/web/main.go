package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/AdamBeresnev/op-tournament/internal/config"
	"github.com/AdamBeresnev/op-tournament/internal/db"
	"github.com/AdamBeresnev/op-tournament/internal/events"
	"github.com/AdamBeresnev/op-tournament/internal/live"
	"github.com/AdamBeresnev/op-tournament/internal/middleware"
	"github.com/AdamBeresnev/op-tournament/internal/service"
	"github.com/AdamBeresnev/op-tournament/internal/store"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

const createSessionsTable = `
CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	expiry REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	database, err := db.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.RunMigrations(database); err != nil {
		return err
	}

	sessionManager, err := newSessionManager(database, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := live.NewHub(func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(cfg.CORSOrigins, origin)
	})

	sinks := []events.Sink{events.NewLogSink(slog.Default()), hub}
	if cfg.RedisAddr != "" {
		redisSink, err := events.NewRedisSink(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer redisSink.Close()
		sinks = append(sinks, redisSink)
	}
	dispatcher := events.NewDispatcher(cfg.EventBuffer, sinks...)

	tournamentStore := store.NewTournamentStore(database)
	app := &application{
		tournaments: service.NewTournamentService(database, tournamentStore, dispatcher),
		teams:       service.NewTeamService(database, tournamentStore),
		brackets:    service.NewBracketService(database, tournamentStore, dispatcher),
		matches:     service.NewMatchService(database, tournamentStore, dispatcher),
		auth:        middleware.NewAuthenticator(sessionManager, cfg.JWTSecret),
		sessions:    sessionManager,
		hub:         hub,
		devLogin:    cfg.DevLogin,

		gatewaySecret: cfg.PaymentGatewaySecret,
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(app, cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dispatcher.Run(gCtx)
		return nil
	})
	g.Go(func() error {
		hub.Run(gCtx)
		return nil
	})
	g.Go(func() error {
		slog.Info("Server starting", "addr", cfg.HTTPAddr, "driver", cfg.DBDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newSessionManager(database *sqlx.DB, cfg *config.Config) (*scs.SessionManager, error) {
	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.SessionLifetime

	// Postgres deployments keep sessions in memory; the API is token based there
	if cfg.DBDriver == db.DriverSQLite {
		if _, err := database.Exec(createSessionsTable); err != nil {
			return nil, err
		}
		sessionManager.Store = sqlite3store.New(database.DB)
	}
	return sessionManager, nil
}
