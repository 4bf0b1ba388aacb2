package app

import (
	"log/slog"
	"time"

	"github.com/coder/quartz"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pokernight/platform/internal/auth"
	"github.com/pokernight/platform/internal/guard"
	"github.com/pokernight/platform/internal/handler"
	"github.com/pokernight/platform/internal/repository"
	"github.com/pokernight/platform/internal/service"
	"github.com/pokernight/platform/internal/settle"
)

// RouterDeps holds all dependencies needed by NewRouter.
type RouterDeps struct {
	Pool             *pgxpool.Pool
	JWTMgr           *auth.JWTManager
	Logger           *slog.Logger
	Clock            quartz.Clock
	DefaultGameOwner string
	CORSOrigins      string
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps RouterDeps) chi.Router {
	pool := deps.Pool
	jwtMgr := deps.JWTMgr
	logger := deps.Logger
	clock := deps.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}

	// Repositories
	userRepo := repository.NewUserRepository()
	authUserRepo := repository.NewAuthUserRepository()
	profileRepo := repository.NewProfileRepository()
	gameRepo := repository.NewGameRepository()
	memberRepo := repository.NewMembershipRepository()
	rebuyRepo := repository.NewRebuyRepository()
	statsRepo := repository.NewStatisticsRepository()
	debtRepo := repository.NewDebtRepository()
	episodeRepo := repository.NewEpisodeRepository()
	outboxRepo := repository.NewOutboxRepository()

	// Services
	authSvc := service.NewAuthService(pool, userRepo, authUserRepo, profileRepo, outboxRepo, jwtMgr, clock)
	gameSvc := service.NewGameService(pool, gameRepo, memberRepo, rebuyRepo, statsRepo, debtRepo, userRepo, outboxRepo,
		settle.FirstFit{}, deps.DefaultGameOwner, clock, logger)
	debtSvc := service.NewDebtService(pool, debtRepo, outboxRepo, clock)
	statsSvc := service.NewStatsService(pool, statsRepo, memberRepo)
	episodeSvc := service.NewEpisodeService(pool, episodeRepo, clock)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(authSvc, statsSvc)
	gameHandler := handler.NewGameHandler(gameSvc)
	debtHandler := handler.NewDebtHandler(debtSvc)
	episodeHandler := handler.NewEpisodeHandler(episodeSvc)

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORSWithOrigins(deps.CORSOrigins))
	r.Use(handler.JSONContentType)

	// Health (no auth)
	r.Get("/health", handler.HealthHandler(pool))

	// Auth routes (no auth, rate limited per client IP)
	loginLimiter := guard.NewRateLimiter(10, time.Minute)
	r.Route("/auth", func(r chi.Router) {
		r.Use(handler.RateLimit(loginLimiter))
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate(jwtMgr))

		r.Route("/users/me", func(r chi.Router) {
			r.Get("/", userHandler.Me)
			r.Get("/superuser", userHandler.Superuser)
			r.Get("/stats", userHandler.Stats)
			r.Get("/plot-data", userHandler.PlotData)
		})

		r.Route("/games", func(r chi.Router) {
			r.With(auth.RequireSuperuser()).Post("/", gameHandler.Create)
			r.Post("/join", gameHandler.Join)

			r.Route("/{code}", func(r chi.Router) {
				r.Get("/players", gameHandler.Players)
				r.Post("/actions", gameHandler.Action)
				r.Get("/membership", gameHandler.Membership)
				r.Get("/data", gameHandler.Data)
				r.Get("/additional-data", gameHandler.Additional)
				r.With(auth.RequireSuperuser()).Post("/end", gameHandler.End)
			})
		})

		r.Route("/debts", func(r chi.Router) {
			r.Get("/", debtHandler.List)
			r.Post("/{id}/send", debtHandler.Send)
			r.Post("/{id}/accept", debtHandler.Accept)
		})

		r.Route("/episodes", func(r chi.Router) {
			r.Get("/", episodeHandler.List)
			r.Get("/progress", episodeHandler.Progress)
			r.Post("/{id}/watch", episodeHandler.Watch)
		})
	})

	return r
}
