package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Hieu3333/QuizMaster/auth"
	"github.com/Hieu3333/QuizMaster/config"
	"github.com/Hieu3333/QuizMaster/crypto"
	"github.com/Hieu3333/QuizMaster/game"
	"github.com/Hieu3333/QuizMaster/migrations"
	"github.com/Hieu3333/QuizMaster/storage"
	"github.com/Hieu3333/QuizMaster/trivia"
)

func CreateServer(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.GET("/health", func(ctx *gin.Context) { ctx.String(200, "healthy") })

	r.Use(func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")

		if slices.Contains(allowedOrigins, origin) {
			ctx.Next()
			return
		}
		ctx.String(http.StatusForbidden, "forbidden origin")
		ctx.Abort()
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Authorization",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}))

	return r
}

func main() {

	// logger setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	migrations.Migrate(cfg.PostgresURL)

	// Dependencies
	pgRepo, err := storage.NewPostgresRepo(context.Background(), cfg.PostgresURL)
	if err != nil {
		log.Fatal(err)
	}
	passwordHasher := crypto.NewArgon2idHasher(3, 1024*64, 32, 16, 1)
	tokenManager := crypto.NewJWTManager(cfg.JWTKey, cfg.TokenMaxAge)

	authService := auth.NewService(pgRepo, passwordHasher, tokenManager)
	authHandler := auth.NewAuthHandler(authService, cfg.TokenMaxAge)

	r := CreateServer(cfg.AllowedOrigins)

	{
		auth := r.Group("/auth")
		auth.POST("/signup", authHandler.SignupHandler)
		auth.POST("/login", authHandler.LoginHandler)
		auth.POST("/logout", authHandler.LogoutHandler)
		auth.GET("/refresh", authHandler.RefreshSessionHandler)
	}

	registry := game.NewRegistry(cfg.MaxConns, logger)
	go registry.PingLoop(cfg.PingInterval)

	questionSource := trivia.NewClient(cfg.TriviaURL, cfg.FetchTimeout, cfg.FetchAttempts)

	manager := game.NewRoomManager(game.ManagerConfig{
		Capacity:      cfg.RoomCapacity,
		MaxRooms:      cfg.MaxRooms,
		QuestionCount: cfg.QuestionCount,
		Difficulty:    cfg.Difficulty,
		FetchBudget:   cfg.FetchBudget,
	}, registry, questionSource, pgRepo, logger)

	dispatcher := game.NewDispatcher(registry, manager, pgRepo, logger, cfg.SendTimeout)
	gameHandler := game.NewGameHandler(registry, dispatcher, logger, cfg.SendTimeout)
	{
		gameGroup := r.Group("/game")
		gameGroup.Use(authHandler.RequireAuthMiddleware(cfg.SendTimeout))

		gameGroup.GET("/quiz", gameHandler.QuizHandler)
	}

	r.GET("/leaderboard", func(ctx *gin.Context) {
		limit := 10
		if raw := ctx.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 || parsed > 100 {
				ctx.Status(http.StatusBadRequest)
				return
			}
			limit = parsed
		}
		users, err := pgRepo.GetLeaderboard(ctx.Request.Context(), limit)
		if err != nil {
			ctx.Status(http.StatusInternalServerError)
			return
		}
		ctx.JSON(http.StatusOK, users)
	})

	r.Run(cfg.Addr)
}
