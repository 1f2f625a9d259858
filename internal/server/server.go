// Package server is the composition root: it builds every dependency from
// the configuration, wires handlers to routes and runs the HTTP server.
//
// DEPENDENCY FLOW:
//
//	config → store (sqlite | postgres) → services → handlers → router
//	       → token service + revocations (redis | memory) → session manager
//	       → identity providers (google, optional github) → registry
//	       → blob store (s3 | disabled)
//
// Handlers only see services, services only see repository interfaces.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/jogjaantibully/kanal/internal/auth"
	"github.com/jogjaantibully/kanal/internal/blob"
	"github.com/jogjaantibully/kanal/internal/captcha"
	"github.com/jogjaantibully/kanal/internal/config"
	"github.com/jogjaantibully/kanal/internal/handler"
	"github.com/jogjaantibully/kanal/internal/middleware"
	"github.com/jogjaantibully/kanal/internal/model"
	"github.com/jogjaantibully/kanal/internal/repository"
	"github.com/jogjaantibully/kanal/internal/repository/postgres"
	sqliteRepo "github.com/jogjaantibully/kanal/internal/repository/sqlite"
	"github.com/jogjaantibully/kanal/internal/service"
	"github.com/jogjaantibully/kanal/internal/session"
	"github.com/jogjaantibully/kanal/web"
)

// Server owns the long-lived resources (store, redis client) and closes
// them on shutdown.
type Server struct {
	router  http.Handler
	config  config.Config
	logger  *slog.Logger
	closers []io.Closer
}

// New builds the whole dependency graph. On error, anything already opened
// is closed again.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *Server, err error) {
	s := &Server{config: cfg, logger: logger}
	defer func() {
		if err != nil {
			s.close()
		}
	}()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, store)

	revocations, err := s.revocationStore(ctx)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenService(cfg.SessionSecret)
	if err != nil {
		return nil, err
	}
	sessions := session.NewManager(tokens, revocations, session.Options{
		TTL:    cfg.SessionTTL,
		Secure: cfg.CookieSecure,
	}, logger)

	providers, err := identityProviders(ctx, cfg)
	if err != nil {
		return nil, err
	}

	blobs, err := blobStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	pages, err := handler.NewRenderer(web.Templates(), logger)
	if err != nil {
		return nil, err
	}

	gate := service.NewGateService(store.Users(), captcha.PresenceVerifier{}, logger)
	quotes := service.NewQuoteService(store.Quotes(), blobs, logger)
	gelar := service.NewGelarService(store.GelarPosts(), blobs, logger)

	s.router = NewRouter(Handlers{
		Auth: handler.NewAuthHandler(gate, sessions, providers, store.Users(), pages, handler.AuthOptions{
			CaptchaSiteKey: cfg.CaptchaSiteKey,
			SecureCookies:  cfg.CookieSecure,
		}, logger),
		Pages:  handler.NewPageHandler(store.Users(), quotes, gelar, pages, logger),
		Quotes: handler.NewQuoteHandler(quotes, logger),
		Gelar:  handler.NewGelarHandler(gelar, logger),
	}, sessions, store.Users(), logger)

	return s, nil
}

func openStore(ctx context.Context, cfg config.Config) (repository.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		return db, nil
	default:
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		return db, nil
	}
}

// revocationStore connects to Redis when REDIS_ADDR is set. Without it,
// revoked sessions are only remembered by this process.
func (s *Server) revocationStore(ctx context.Context) (session.RevocationStore, error) {
	if s.config.RedisAddr == "" {
		s.logger.Warn("REDIS_ADDR not set, session revocations are kept in memory")
		return session.NewMemoryRevocations(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     s.config.RedisAddr,
		Password: s.config.RedisPassword,
		DB:       s.config.RedisDB,
	})
	s.closers = append(s.closers, client)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return session.NewRedisRevocations(client), nil
}

func identityProviders(ctx context.Context, cfg config.Config) (*auth.Registry, error) {
	google, err := auth.NewGoogleProvider(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.CallbackURL(auth.ProviderGoogle))
	if err != nil {
		return nil, err
	}
	list := []auth.Provider{google}

	if cfg.GitHubEnabled() {
		list = append(list, auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.CallbackURL(auth.ProviderGitHub)))
	}
	return auth.NewRegistry(list...), nil
}

func blobStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (blob.Store, error) {
	if cfg.S3.Bucket == "" {
		logger.Warn("S3_BUCKET not set, image uploads are disabled")
		return blob.Disabled{}, nil
	}
	return blob.NewS3Store(ctx, blob.S3Config{
		Region:        cfg.S3.Region,
		Bucket:        cfg.S3.Bucket,
		AccessKey:     cfg.S3.AccessKey,
		SecretKey:     cfg.S3.SecretKey,
		Endpoint:      cfg.S3.Endpoint,
		PublicBaseURL: cfg.S3.PublicBaseURL,
	})
}

// Handlers groups the HTTP handlers NewRouter mounts.
type Handlers struct {
	Auth   *handler.AuthHandler
	Pages  *handler.PageHandler
	Quotes *handler.QuoteHandler
	Gelar  *handler.GelarHandler
}

// NewRouter mounts every route.
//
// ROUTES:
//
//	GET  /login, /admin-login, /register      sign-in pages
//	POST /auth/{entry}/start                  sign-in button
//	GET  /auth/callback/{provider}            provider redirect target
//	POST /auth/logout
//	GET  /ruang-bincang                       signed in
//	GET  /dashboard-admin                     admin
//	GET  /api/me                              signed in
//	GET  /api/quotes[/{id}]                   public
//	POST, PUT, DELETE /api/quotes[/{id}]      admin
//	GET  /api/gelar-posts                     public
//	POST /api/gelar-posts                     signed in
//	PUT  /api/gelar-posts/{id}/approve        admin
//	GET  /static/*, /default-profile.png      embedded assets
//
// Middleware order: request id and real IP first so the logger sees them,
// the session before the logger so it can record the subject, and the
// recoverer innermost so a panic is logged as a 500.
func NewRouter(h Handlers, sessions *session.Manager, users repository.UserRepository, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(sessions.Middleware)
	r.Use(middleware.Logger(logger))
	r.Use(chimiddleware.Recoverer)

	static := http.FileServerFS(web.Static())
	r.Handle("/static/*", http.StripPrefix("/static/", static))
	r.Get(model.DefaultProfilePicture, static.ServeHTTP)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, service.RouteLogin, http.StatusSeeOther)
	})
	r.Get(service.RouteLogin, h.Auth.HandleLogin)
	r.Get("/admin-login", h.Auth.HandleAdminLogin)
	r.Get("/register", h.Auth.HandleRegister)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/{entry}/start", h.Auth.HandleStart)
		r.Get("/callback/{provider}", h.Auth.HandleCallback)
		r.Post("/logout", h.Auth.HandleLogout)
	})

	adminOnly := middleware.RequireRole(users, model.RoleAdmin, logger)

	r.With(middleware.RequireAuth).Get(service.RouteChat, h.Pages.HandleChat)
	r.With(middleware.RequireAuth, adminOnly).Get(service.RouteAdminDashboard, h.Pages.HandleDashboard)

	r.Route("/api", func(r chi.Router) {
		r.With(middleware.RequireAuth).Get("/me", h.Auth.HandleMe)

		r.Get("/quotes", h.Quotes.HandleList)
		r.Get("/quotes/{id}", h.Quotes.HandleGetByID)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth, adminOnly)
			r.Post("/quotes", h.Quotes.HandleCreate)
			r.Put("/quotes/{id}", h.Quotes.HandleUpdate)
			r.Delete("/quotes/{id}", h.Quotes.HandleDelete)
			r.Put("/gelar-posts/{id}/approve", h.Gelar.HandleApprove)
		})

		r.Get("/gelar-posts", h.Gelar.HandleList)
		r.With(middleware.RequireAuth).Post("/gelar-posts", h.Gelar.HandleSubmit)
	})

	return r
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to 30 seconds and closes the store.
func (s *Server) Start() error {
	defer s.close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
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
			slog.Int("port", s.config.Port),
			slog.String("url", s.config.BaseURL),
			slog.String("db_driver", s.config.DBDriver),
		)
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

func (s *Server) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			s.logger.Warn("closing resource", slog.String("error", err.Error()))
		}
	}
	s.closers = nil
}
