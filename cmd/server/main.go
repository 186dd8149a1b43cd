package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/tiktok-scheduler/configs"
	"github.com/maheshrc27/tiktok-scheduler/internal/api"
	"github.com/maheshrc27/tiktok-scheduler/internal/api/handlers"
	"github.com/maheshrc27/tiktok-scheduler/internal/api/middleware"
	"github.com/maheshrc27/tiktok-scheduler/internal/cache"
	job "github.com/maheshrc27/tiktok-scheduler/internal/jobs"
	"github.com/maheshrc27/tiktok-scheduler/internal/migrations"
	"github.com/maheshrc27/tiktok-scheduler/internal/queue"
	"github.com/maheshrc27/tiktok-scheduler/internal/repository"
	"github.com/maheshrc27/tiktok-scheduler/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()
	if cfg.SecretKey == "" {
		log.Fatal("SECRET_KEY must be set")
	}
	ctx := context.Background()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	if cfg.AutoMigrate {
		if err := migrations.Run(ctx, db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	connectionRepo := repository.NewConnectionRepository(db)
	historyRepo := repository.NewPostingHistoryRepository(db)

	var locker service.Locker = service.NewLocalLocker()
	if cfg.RedisURI != "" {
		opts, err := redis.ParseURL(cfg.RedisURI)
		if err != nil {
			log.Fatalf("Invalid REDIS_URI: %v", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		locker = cache.NewRedisLocker(rdb)
	}

	var tiktokClient service.TiktokClient
	switch cfg.Tiktok.Mode {
	case "fake":
		log.Println("Using the fake TikTok client, nothing will be posted")
		tiktokClient = service.NewFakeTiktokClient()
	default:
		tiktokClient = service.NewTiktokClient(cfg.Tiktok)
	}

	var objects service.ObjectAPI
	if cfg.Storage.Type == service.StorageS3 {
		s3Client, err := service.NewS3Client(ctx, cfg.Storage.S3)
		if err != nil {
			log.Fatalf("Failed to configure object storage: %v", err)
		}
		objects = s3Client
	}

	storageService := service.NewStorageService(cfg.Storage, objects, nil)
	tokenService := service.NewTokenService(*cfg, connectionRepo, tiktokClient, locker)
	publishService := service.NewPublishService(postRepo, historyRepo, tokenService, tiktokClient, storageService)
	postService := service.NewPostService(*cfg, postRepo, historyRepo, publishService, storageService)
	platformService := service.NewPlatformService(*cfg, tiktokClient, tokenService)
	authService := service.NewAuthService(userRepo)
	userService := service.NewUserService(userRepo)

	var dispatcher job.Dispatcher = job.NewInlineDispatcher(publishService)
	var worker *asynq.Server
	if cfg.Scheduler.Dispatch == "queue" {
		redisConn, err := asynq.ParseRedisURI(cfg.RedisURI)
		if err != nil {
			log.Fatalf("PUBLISH_DISPATCH=queue needs a valid REDIS_URI: %v", err)
		}
		client := asynq.NewClient(redisConn)
		defer client.Close()

		queueW := queue.NewQueue(client, postRepo, publishService)
		dispatcher = queueW

		// One publish at a time, matching the inline dispatcher.
		worker = asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 1,
		})
		mux := asynq.NewServeMux()
		queueW.Register(mux)

		log.Println("Starting the Asynq server...")
		if err := worker.Start(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}

	// cron jobs
	publishJob := job.NewPublishJob(cfg.Scheduler, postRepo, dispatcher)
	refreshTokenJob := job.NewTokenRefreshJob(cfg.Scheduler, connectionRepo, tokenService)

	c := cron.New()
	if err := c.AddFunc(cfg.Scheduler.Interval, publishJob.Run); err != nil {
		log.Fatalf("Invalid SCHEDULER_INTERVAL: %v", err)
	}
	if err := c.AddFunc(cfg.Scheduler.RefreshEvery, refreshTokenJob.Run); err != nil {
		log.Fatalf("Invalid TOKEN_REFRESH_INTERVAL: %v", err)
	}
	c.Start()

	app := api.NewApp(*cfg)
	api.SetupRoutes(app, middleware.NewAuthMiddleware(*cfg), api.Handlers{
		Auth:     handlers.NewAuthHandler(*cfg, authService),
		User:     handlers.NewUserHandler(userService),
		Platform: handlers.NewPlatformHandler(platformService, tokenService, *cfg),
		Post:     handlers.NewPostHandler(postService),
		Upload:   handlers.NewUploadHandler(storageService, tokenService, publishService),
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on http://localhost:%s", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	c.Stop()
	if worker != nil {
		worker.Shutdown()
	}
	if err := app.Shutdown(); err != nil {
		log.Printf("Failed to shut down server: %v", err)
	}
	log.Println("Server shutdown complete.")
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}
