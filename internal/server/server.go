package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/secretshare/webserver/config"
	"github.com/secretshare/webserver/internal/auth"
	"github.com/secretshare/webserver/internal/db"
	"github.com/secretshare/webserver/internal/events"
	"github.com/secretshare/webserver/internal/handlers"
	"github.com/secretshare/webserver/internal/logutil"
	"github.com/secretshare/webserver/internal/services"
	"github.com/secretshare/webserver/internal/session"
	"github.com/secretshare/webserver/internal/storage"
	"github.com/secretshare/webserver/internal/store"
	"github.com/secretshare/webserver/internal/web"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     *events.Publisher
}

// New constructs a Server with all dependencies wired explicitly; no
// package-level connection or session state exists.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewManager(cfg.SessionSecret)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	eventsBackend, err := events.OpenBackend(ctx, cfg.Events)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	publisher := events.NewPublisher(eventsBackend, logger)

	avatarStorage, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		_ = publisher.Close()
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	userService := services.NewUserService(userRepo, publisher)
	avatarService := services.NewAvatarService(avatarStorage)

	verifier := auth.NewLocalVerifier(userService)
	resolver := auth.NewResolver(userService)
	google := auth.NewGoogle(cfg.OAuth.Google, cfg.BaseURL+"/auth/google/secrets")
	facebook := auth.NewFacebook(cfg.OAuth.Facebook, cfg.BaseURL+"/auth/facebook/secrets")

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		logutil.RequestLogger(logger),
		middleware.Timeout(60*time.Second),
		sessions.Middleware,
	)
	router.Get("/healthz", handlers.Healthz)
	handlers.PageRouter(router, userService, renderer, session.RequireAuth)
	handlers.AuthRouter(router, verifier, userService, sessions, renderer)
	handlers.OAuthRouter(router, handlers.NewOAuthHandler(resolver, userService, sessions, avatarService), google, facebook)
	handlers.AvatarRouter(router, avatarService)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		events:     publisher,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.events != nil {
		_ = s.events.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
