package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	config "github.com/maheshrc27/tiktok-scheduler/configs"
	"github.com/maheshrc27/tiktok-scheduler/internal/api/handlers"
	"github.com/maheshrc27/tiktok-scheduler/internal/api/middleware"
)

type Handlers struct {
	Auth     *handlers.AuthHandler
	User     *handlers.UserHandler
	Platform *handlers.PlatformHandler
	Post     *handlers.PostHandler
	Upload   *handlers.UploadHandler
}

func NewApp(cfg config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit: cfg.MaxUploadMB * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			slog.Error("request failed", "path", c.Path(), "error", err)
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))
	return app
}

func SetupRoutes(app *fiber.App, auth *middleware.AuthMiddleware, h Handlers) {
	app.Get("/api/health", handlers.Health)

	app.Post("/auth/register", h.Auth.Register)
	app.Post("/auth/login", h.Auth.Login)
	app.Post("/auth/logout", h.Auth.Logout)
	app.Get("/auth/tiktok/callback", h.Platform.TiktokCallback)

	api := app.Group("/api")
	api.Use(auth.AuthMiddleware())

	api.Get("/auth/me", h.User.GetUserInfo)

	api.Get("/auth/tiktok/login", h.Platform.TiktokLogin)
	api.Get("/auth/tiktok/status", h.Platform.TiktokStatus)
	api.Get("/auth/tiktok/accounts", h.Platform.TiktokAccounts)
	api.Delete("/auth/tiktok/disconnect", h.Platform.TiktokDisconnect)

	api.Get("/posts", h.Post.ListPosts)
	api.Post("/posts", h.Post.CreatePost)
	api.Get("/posts/:id", h.Post.GetPost)
	api.Put("/posts/:id", h.Post.UpdatePost)
	api.Delete("/posts/:id", h.Post.RemovePost)
	api.Post("/posts/:id/publish", h.Post.PublishPost)
	api.Get("/posts/:id/history", h.Post.PostHistory)

	api.Post("/upload/video", h.Upload.UploadVideo)
	api.Delete("/upload/video/:filename", h.Upload.DeleteVideo)
}
