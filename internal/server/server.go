// Package server wires the router, services, and storage, and owns startup
// and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/snippet-oracle/snippet-oracle/internal/auth"
	"github.com/snippet-oracle/snippet-oracle/internal/config"
	"github.com/snippet-oracle/snippet-oracle/internal/embed"
	"github.com/snippet-oracle/snippet-oracle/internal/handler"
	"github.com/snippet-oracle/snippet-oracle/internal/middleware"
	sqliteRepo "github.com/snippet-oracle/snippet-oracle/internal/repository/sqlite"
	"github.com/snippet-oracle/snippet-oracle/internal/search"
	"github.com/snippet-oracle/snippet-oracle/internal/service"
	"github.com/snippet-oracle/snippet-oracle/internal/vector"
)

// Server holds the router and the resources it must release on shutdown.
type Server struct {
	router   *chi.Mux
	cfg      *config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	snippets *service.SnippetService
}

// New assembles the full dependency chain: database, embedder, vector index,
// services, handlers, routes. The vector index is warmed from stored
// embeddings before the server accepts traffic.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// The embedder initializes on first use; a cache in front of it absorbs
	// repeated queries and description re-saves.
	lazy := embed.NewLazyProvider(cfg.Embedding.Dimensions, "static-hash", func() (embed.Provider, error) {
		return embed.NewStaticProvider(cfg.Embedding.Dimensions), nil
	})
	embedder := embed.NewCachedProvider(lazy, cfg.Embedding.CacheSize)

	index, err := vector.New(vector.Config{
		Dimensions: cfg.Embedding.Dimensions,
		M:          cfg.Index.M,
		EfSearch:   cfg.Index.EfSearch,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vector index: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		db.Close()
		return nil, err
	}

	snippetSvc := service.NewSnippetService(db, embedder, index, logger)

	s := &Server{
		router:   chi.NewRouter(),
		cfg:      cfg,
		logger:   logger,
		db:       db,
		snippets: snippetSvc,
	}
	s.setupRoutes(tokens, embedder, index, snippetSvc)
	return s, nil
}

func (s *Server) setupRoutes(tokens *auth.TokenService, embedder embed.Provider, index *vector.Index, snippetSvc *service.SnippetService) {
	s.router.Use(middleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	engine := search.NewEngine(s.db, embedder, index, s.logger)
	authSvc := service.NewAuthService(s.db, auth.NewPasswordService(), s.logger)
	userSvc := service.NewUserService(s.db)
	feedSvc := service.NewFeedService(s.db)

	authHandler := handler.NewAuthHandler(authSvc, tokens, s.logger)
	searchHandler := handler.NewSearchHandler(engine, s.logger)
	snippetHandler := handler.NewSnippetHandler(snippetSvc, s.logger)
	profileHandler := handler.NewProfileHandler(userSvc, snippetSvc, s.logger)
	feedHandler := handler.NewFeedHandler(feedSvc, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", authHandler.HandleSignup)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/logout", authHandler.HandleLogout)

		// Public routes; a valid session upgrades what the viewer sees.
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(tokens))

			r.Get("/search", searchHandler.HandleSearch)
			r.Get("/smart-search", searchHandler.HandleSmartSearch)
			r.Get("/default-view", feedHandler.HandleDefaultView)
			r.Get("/tags", feedHandler.HandleSearchTags)
			r.Get("/users", profileHandler.HandleSearchUsers)
			r.Get("/users/{username}", profileHandler.HandleProfile)
			r.Get("/snippets/{id}", snippetHandler.HandleGet)
			r.Get("/snippets/{id}/comments", snippetHandler.HandleListComments)
		})

		// Routes requiring a session.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Post("/snippets", snippetHandler.HandleCreate)
			r.Put("/snippets/{id}", snippetHandler.HandleUpdate)
			r.Delete("/snippets/{id}", snippetHandler.HandleDelete)
			r.Get("/snippets/{id}/permissions", snippetHandler.HandleGrantees)
			r.Post("/snippets/{id}/like", snippetHandler.HandleLike)
			r.Delete("/snippets/{id}/like", snippetHandler.HandleUnlike)
			r.Post("/snippets/{id}/comments", snippetHandler.HandleComment)
			r.Delete("/comments/{commentId}", snippetHandler.HandleDeleteComment)
			r.Put("/profile", profileHandler.HandleUpdateProfile)
		})
	})
}

// Start warms the vector index, serves until SIGINT/SIGTERM, then shuts down
// gracefully and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	warmCtx, cancelWarm := context.WithTimeout(context.Background(), time.Minute)
	if err := s.snippets.WarmIndex(warmCtx); err != nil {
		cancelWarm()
		return fmt.Errorf("warming vector index: %w", err)
	}
	cancelWarm()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("database", s.cfg.DBPath))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }
