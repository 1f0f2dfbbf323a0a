package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/shopsphere/cart-service/internal/api"
	"github.com/shopsphere/cart-service/internal/api/handlers"
	"github.com/shopsphere/cart-service/internal/api/middleware"
	"github.com/shopsphere/cart-service/internal/concurrency"
	"github.com/shopsphere/cart-service/internal/enrichment"
	"github.com/shopsphere/cart-service/internal/identity"
	"github.com/shopsphere/cart-service/internal/service"
	"github.com/shopsphere/cart-service/internal/store"
	"github.com/shopsphere/cart-service/internal/upstream"
	"github.com/shopsphere/cart-service/pkg/config"
	"github.com/shopsphere/cart-service/pkg/redisconn"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := newLogger(cfg.LogLevel)

	carts, err := newCartStore(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("cart store init failed")
	}
	defer carts.Close()

	catalog := upstream.NewCatalogClient(cfg.CatalogURL, cfg.EnrichTimeout)
	auth := upstream.NewAuthClient(cfg.AuthURL, 5*time.Second)
	resolver := identity.NewResolver(auth)

	locks := concurrency.NewKeyMutex()
	enricher := enrichment.NewEnricher(catalog, carts, locks, cfg.EnrichTimeout, cfg.CartTTL, logger)
	svc := service.NewCartService(carts, catalog, enricher, locks, cfg.CartTTL, logger)
	handler := handlers.NewCartHandler(svc, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Mount("/", api.NewRouter(resolver, handler))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Guest-Id"},
		AllowCredentials: true,
	}).Handler(r)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      corsHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("http server shutdown")
		}
		close(idleConnsClosed)
	}()

	logger.Info().Int("port", cfg.Port).Msg("starting cart-service")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("listen failed")
	}

	<-idleConnsClosed
	logger.Info().Msg("server stopped")
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).
		Level(lvl).
		With().
		Timestamp().
		Str("service", "cart-service").
		Logger()
}

func newCartStore(cfg config.Config, logger zerolog.Logger) (store.CartStore, error) {
	if cfg.RedisURL == "" {
		logger.Warn().Msg("REDIS_URL not set, carts are held in memory and lost on restart")
		return store.NewMemoryStore(), nil
	}
	client, err := redisconn.New(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	return store.NewRedisStore(client), nil
}
