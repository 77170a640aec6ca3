package server

import (
	"context"
	"errors"

	"backend-runlog/internal/auth"
	"backend-runlog/internal/config"
	"backend-runlog/internal/db"
	"backend-runlog/internal/run"
	"backend-runlog/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     db.Querier
	Redis  *redis.Client
	Stream *stream.Hub
	Log    *logrus.Logger
}

func NewServer(cfg config.Config, q db.Querier, redisClient *redis.Client, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler(log),
	})
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{Output: log.Out}))
	app.Use(corsMiddleware(cfg.CORSOrigin))

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     q,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
		Log:    log,
	}

	registerRoutes(s)
	return s
}

// Shutdown stops accepting requests and then the stream hub.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.App.ShutdownWithContext(ctx)
	s.Stream.Close()
	return err
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	denylist := auth.NewDenylist(s.Redis)
	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret, denylist)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB, denylist), jwtMiddleware, rateLimitAuth())
	run.RegisterRoutes(s.App.Group("/runs"), run.NewService(s.DB, s.Stream), jwtMiddleware, rateLimitWrite())
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, jwtMiddleware)
}

// errorHandler renders every error as {"error": message}. Unexpected errors
// are logged and reported without detail.
func errorHandler(log *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "internal server error"

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
			message = fiberErr.Message
		}

		if code >= fiber.StatusInternalServerError {
			log.WithFields(logrus.Fields{
				"method": c.Method(),
				"path":   c.Path(),
				"status": code,
			}).WithError(err).Error("request failed")
		}

		return c.Status(code).JSON(fiber.Map{"error": message})
	}
}
