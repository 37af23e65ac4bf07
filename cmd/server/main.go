package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"diagramai/internal/app"
	"diagramai/internal/config"
	"diagramai/internal/server"
	"diagramai/internal/util"
	"diagramai/pkg/ai"
	"diagramai/pkg/render"
	"diagramai/pkg/storage"
	"diagramai/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session ttl: %v", err)
	}
	var sessions store.SessionStore
	switch cfg.SessionBackend {
	case "redis":
		sessions = store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, sessionTTL)
	default:
		sessions, err = store.NewJWTSessionStore(cfg.SessionSecret, sessionTTL, store.JWTOptions{
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		})
		if err != nil {
			log.Fatalf("failed to init session store: %v", err)
		}
	}

	var dataStore store.Store
	if cfg.DatabaseURL != "" {
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to init postgres store: %v", err)
		}
	} else {
		slog.Warn("databaseURL not set, using in-memory store; records will not survive restarts")
		dataStore = store.NewMemoryStore()
	}

	var generator ai.TextGenerator
	switch cfg.AIProvider {
	case "gemini":
		generator, err = ai.NewGeminiGenerator(cfg.AIAPIKey, cfg.AIModel)
		if err != nil {
			log.Fatalf("failed to init gemini generator: %v", err)
		}
	case "ollama":
		generator = ai.NewOllamaGenerator(cfg.AIBaseURL, cfg.AIModel)
	default:
		generator = ai.NewOpenAICompatGenerator(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel)
	}

	renderer, err := render.NewKrokiRenderer(cfg.KrokiURL)
	if err != nil {
		log.Fatalf("failed to init renderer: %v", err)
	}

	var objects storage.ObjectStore
	if cfg.MinioEndpoint != "" {
		objects, err = storage.NewMinioStore(context.Background(), storage.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.Fatalf("failed to init object store: %v", err)
		}
	} else {
		slog.Warn("minioEndpoint not set, uploaded source files will not be retained")
	}

	appCore, err := app.New(app.Config{
		Store:     dataStore,
		Sessions:  sessions,
		Generator: generator,
		Renderer:  renderer,
		Objects:   objects,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:                        appCore,
		RedisAddr:                  cfg.RedisAddr,
		RedisPassword:              cfg.RedisPassword,
		GenerateRateLimitPerMinute: cfg.GenerateRateLimitPerMinute,
		CORSAllowOrigin:            cfg.CORSAllowOrigin,
		TrustForwardedHeaders:      cfg.TrustForwardedHeaders,
		MaxUploadBytes:             cfg.MaxUploadBytes,
		AllowedExtensions:          cfg.AllowedExtensions,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("diagram server listening", "addr", addr, "provider", cfg.AIProvider)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
