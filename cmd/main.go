package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/chat-service/config"
	"github.com/cwrk-planet/chat-service/internal/auth"
	"github.com/cwrk-planet/chat-service/internal/postgres"
	"github.com/cwrk-planet/chat-service/internal/realtime"
	"github.com/cwrk-planet/chat-service/internal/service"
	httpx "github.com/cwrk-planet/chat-service/internal/transport/http"
	"github.com/cwrk-planet/chat-service/internal/transport/ws"
	"github.com/cwrk-planet/logger/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	// --- config ---
	_ = godotenv.Load()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting chat-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- postgres ---
	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()

	// --- repos ---
	roomRepo := postgres.NewRoomRepository(db.Pool)
	chatRepo := postgres.NewChatRepository(db.Pool)

	// --- services ---
	roomSvc := service.NewRoomService(roomRepo)
	memberSvc := service.NewMemberService(roomRepo)
	chatSvc := service.NewChatService(roomRepo, chatRepo)

	// --- auth collaborator ---
	var authn auth.Authenticator
	switch cfg.Auth.Mode {
	case "session":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis: %v", err)
		}
		authn = auth.NewSessionAuthenticator(rdb)
	default:
		authn = auth.NewJWTAuthenticator(cfg.Auth.JWTSecret, cfg.JWTClockSkew())
	}

	// --- realtime core ---
	gateway := realtime.NewGateway(chatSvc, cfg.TypingTTL())
	wsServer := ws.NewServer(gateway, authn)

	// --- HTTP ---
	handler := httpx.NewHandler(roomSvc, memberSvc, chatSvc)
	router := httpx.NewRouter(handler, authn, wsServer, cfg.HTTP.CORSOrigins)
	httpSrv := &http.Server{
		Addr:        cfg.HTTP.Addr,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// --- run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case <-gctx.Done():
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctxShutdown)

	if err := g.Wait(); err != nil {
		slog.Error("server error", "err", err)
	}
	slog.Info("stopped")
}
