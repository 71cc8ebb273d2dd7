package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/careerlink/messaging/internal/config"
	"github.com/careerlink/messaging/internal/httpapi"
	"github.com/careerlink/messaging/internal/message"
	"github.com/careerlink/messaging/internal/messaging"
	"github.com/careerlink/messaging/internal/messenger"
	"github.com/careerlink/messaging/internal/presence"
	"github.com/careerlink/messaging/internal/ratelimit"
	"github.com/careerlink/messaging/internal/realtime"
	"github.com/careerlink/messaging/internal/store"
	"github.com/careerlink/messaging/internal/user"
	"github.com/careerlink/messaging/internal/ws"
)

func main() {
	cfg := config.Load()
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// --- PostgreSQL ---
	db, err := store.Open(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	messages := message.NewStore(db)
	directory := user.NewDirectory(db)

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	{
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
	}

	// --- NATS ---
	natsConfig := messaging.DefaultConfig()
	natsConfig.URL = cfg.NATSURL
	natsConfig.Name = "careerlink-messaging-" + cfg.ServerName
	bus, err := messaging.NewClient(natsConfig)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}

	// --- Presence + send path ---
	registry := presence.NewRegistry()
	mirror := presence.NewMirror(rdb, cfg.ServerName)
	tracker := &presence.Tracker{Registry: registry, Mirror: mirror}
	sender := messenger.NewService(messages, directory, bus, tracker)
	gate := realtime.NewLimiterGate(ratelimit.NewLimiter(rdb))

	// --- WebSocket server + realtime hub ---
	wsConfig := ws.DefaultServerConfig()
	wsConfig.ListenAddr = cfg.WSListenAddr
	wsConfig.WorkerPoolSize = cfg.WorkerPoolSize
	wsConfig.MaxConnections = cfg.MaxConnections
	wsConfig.ReadTimeout = cfg.ReadTimeout
	wsConfig.WriteTimeout = cfg.WriteTimeout

	dispatcher := ws.NewMessageDispatcher(nil)
	server := ws.NewServer(wsConfig, dispatcher.Dispatch)
	dispatcher.SetServer(server)

	hub := realtime.NewHub(server, bus, registry, mirror, sender, messages, gate)
	if err := hub.Start(); err != nil {
		log.Fatalf("failed to start realtime hub: %v", err)
	}
	hub.RegisterHandlers(dispatcher, server)

	// --- REST API ---
	apiHandler := httpapi.NewHandler(sender, messages, directory)
	apiServer := &http.Server{
		Addr:    cfg.HTTPListenAddr,
		Handler: httpapi.NewRouter(apiHandler),
	}

	log.Printf("messaging server starting")
	log.Printf("  server_name:     %s", cfg.ServerName)
	log.Printf("  ws_listen:       %s", cfg.WSListenAddr)
	log.Printf("  http_listen:     %s", cfg.HTTPListenAddr)
	log.Printf("  redis_addr:      %s", cfg.RedisAddr)
	log.Printf("  nats_url:        %s", cfg.NATSURL)
	log.Printf("  worker_pool:     %d", cfg.WorkerPoolSize)
	log.Printf("  max_connections: %d", cfg.MaxConnections)

	go func() {
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, initiating graceful shutdown...", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(ctx); err != nil {
			log.Printf("api shutdown error: %v", err)
		}

		if err := server.Shutdown(); err != nil {
			log.Printf("ws shutdown error: %v", err)
		}
		hub.Stop()
		bus.Close()
		if err := rdb.Close(); err != nil {
			log.Printf("redis close error: %v", err)
		}
		if err := db.Close(); err != nil {
			log.Printf("postgres close error: %v", err)
		}
		os.Exit(0)
	}()

	if err := server.Start(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
