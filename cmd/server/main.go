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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/wuwenbin0122/studybot/internal/api"
	"github.com/wuwenbin0122/studybot/internal/auth"
	"github.com/wuwenbin0122/studybot/internal/chat"
	"github.com/wuwenbin0122/studybot/internal/completion"
	"github.com/wuwenbin0122/studybot/internal/store"
	"github.com/wuwenbin0122/studybot/internal/utils"
)

const tokenTTL = 24 * time.Hour

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("config: no .env file loaded: %v", err)
	}

	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("config: failed to load: %v", err)
	}

	baseLogger, err := utils.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("logger: failed to build: %v", err)
	}
	defer baseLogger.Sync()
	logger := baseLogger.Sugar()

	ctx := context.Background()

	st, err := store.Open(ctx, cfg)
	if err != nil {
		logger.Fatalw("store: failed to open", "backend", cfg.StoreBackend, "error", err)
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			logger.Warnw("store: close error", "error", err)
		}
	}()
	logger.Infow("store ready", "backend", cfg.StoreBackend)

	provider, err := newProvider(cfg.Completion)
	if err != nil {
		logger.Fatalw("completion: failed to initialise provider", "provider", cfg.Completion.Provider, "error", err)
	}

	svc := chat.NewService(st, provider,
		chat.WithHistoryWindow(cfg.Chat.HistoryWindow),
		chat.WithTemperature(cfg.Completion.Temperature),
		chat.WithLogger(logger.Named("chat")),
	)

	var authService *auth.Service
	if cfg.JWTSecret != "" {
		authService, err = auth.NewService(cfg.JWTSecret, tokenTTL)
		if err != nil {
			logger.Fatalw("failed to initialise auth service", "error", err)
		}
	}

	handler := api.NewHandler(svc, authService, logger.Named("api"))
	handler.SetDeliverUnsaved(cfg.Chat.DeliverUnsavedAnswer)

	router := setupRouter(handler, cfg, logger.Named("http"))

	listener, port, err := utils.ListenFirstFree(cfg.Host, cfg.Port, cfg.PortScanLimit)
	if err != nil {
		logger.Fatalw("server: no free port", "host", cfg.Host, "preferred", cfg.Port, "error", err)
	}
	if port != cfg.Port {
		logger.Warnw("preferred port busy, using next free port", "preferred", cfg.Port, "port", port)
	}

	server := &http.Server{
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Completion.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infow("server listening", "addr", listener.Addr().String(), "auth", authService != nil)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("server crashed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("graceful shutdown failed", "error", err)
	}

	logger.Info("server stopped cleanly")
}

func newProvider(cfg utils.CompletionConfig) (completion.Provider, error) {
	if cfg.Provider == utils.ProviderHTTP {
		return completion.NewHTTPClient(completion.HTTPConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}), nil
	}

	return completion.NewLangChain(completion.LangChainConfig{
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout,
	})
}

func setupRouter(handler *api.Handler, cfg *utils.Config, logger *zap.SugaredLogger) *gin.Engine {
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), api.RequestLogger(logger), api.CORS(cfg.CORSOrigins))

	handler.RegisterRoutes(router)

	return router
}
