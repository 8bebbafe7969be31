package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/ayush/social-media-api/internal/auth"
	"github.com/ayush/social-media-api/internal/config"
	"github.com/ayush/social-media-api/internal/httpx"
	"github.com/ayush/social-media-api/internal/logger"
	"github.com/ayush/social-media-api/internal/middleware"
	"github.com/ayush/social-media-api/internal/notify"
	"github.com/ayush/social-media-api/internal/posts"
	"github.com/ayush/social-media-api/internal/store"
	"github.com/ayush/social-media-api/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info", true)
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.LogLevel, cfg.Pretty())
	ctx := context.Background()

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := store.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	mongoDB := mongoClient.Database(cfg.MongoDB)
	userStore := store.NewUserStore(mongoDB, cfg.MongoTransactions)
	postStore := store.NewPostStore(mongoDB)
	if err := userStore.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to create user indexes")
	}
	if err := postStore.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to create post indexes")
	}
	log.Info().Str("db", cfg.MongoDB).Bool("transactions", cfg.MongoTransactions).Msg("Connected to MongoDB")

	// ── Redis (optional notification queue) ─────────────────
	var (
		rdb   *redis.Client
		queue notify.Queue
	)
	if cfg.RedisAddr != "" {
		rdb, err = store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		queue = store.NewRedisQueue(rdb, cfg.NotifyQueueKey)
		log.Info().Str("addr", cfg.RedisAddr).Str("key", cfg.NotifyQueueKey).Msg("Using Redis notification queue")
	}

	// ── PostgreSQL (optional delivery log) ──────────────────
	var (
		pgPool      *pgxpool.Pool
		recorder    notify.Recorder
		deliveryLog notify.DeliveryLister
	)
	if cfg.PostgresDSN != "" {
		pgPool, err = pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		dl := store.NewDeliveryLog(pgPool)
		if err := dl.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate notification log")
		}
		recorder, deliveryLog = dl, dl
		log.Info().Msg("Recording notification deliveries in PostgreSQL")
	}

	// ── MinIO (optional pictures) ────────────────────────────
	var media users.MediaStore
	if cfg.MinioEndpoint != "" {
		minioStore, err := store.NewMinioStore(
			ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to MinIO")
		}
		media = minioStore
		log.Info().Str("bucket", cfg.MinioBucket).Msg("Storing pictures in MinIO")
	}

	// ── Notifications ────────────────────────────────────────
	var sender notify.Sender = notify.LogSender{}
	if cfg.SMTPUser != "" && cfg.SMTPPassword != "" {
		sender = notify.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
	} else {
		log.Warn().Msg("EMAIL_USER or EMAIL_PASS not set, emails will only be logged")
	}
	dispatcher := notify.NewDispatcher(userStore, notify.NewRenderer(cfg.ProductName, cfg.ProductLink), sender, notify.Options{
		Queue:    queue,
		Recorder: recorder,
		Workers:  cfg.NotifyWorkers,
		Buffer:   cfg.NotifyBuffer,
	})
	workerCtx, stopWorkers := context.WithCancel(ctx)
	dispatcher.Start(workerCtx)

	// ── Follow graph repair ──────────────────────────────────
	var scheduler *cron.Cron
	if cfg.GraphRepairSchedule != "" {
		scheduler, err = users.NewReconciler(userStore).Schedule(cfg.GraphRepairSchedule)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule follow graph repair")
		}
	}

	// ── Handlers ─────────────────────────────────────────────
	authHandler := auth.NewHandler(auth.NewService(userStore, dispatcher, cfg.BcryptCost))
	userHandler := users.NewHandler(users.NewService(userStore, media, cfg.BcryptCost))
	postHandler := posts.NewHandler(posts.NewService(postStore, userStore, dispatcher))
	notifyHandler := notify.NewHandler(deliveryLog)

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(log.Logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	r.Route("/api/users/{id}", func(r chi.Router) {
		r.Get("/", userHandler.Get)
		r.Put("/", userHandler.Update)
		r.Delete("/", userHandler.Delete)
		r.Put("/follow", userHandler.Follow)
		r.Put("/unfollow", userHandler.Unfollow)
		r.Put("/picture", userHandler.UploadPicture)
		r.Get("/picture", userHandler.Picture)
		r.Get("/notifications", notifyHandler.List)
	})

	r.Route("/api/posts", func(r chi.Router) {
		r.Post("/", postHandler.Create)
		r.Get("/timeline", postHandler.Timeline)
		r.Get("/{id}", postHandler.Get)
		r.Put("/{id}", postHandler.Update)
		r.Delete("/{id}", postHandler.Delete)
		r.Put("/{id}/like", postHandler.Like)
		r.Put("/{id}/comments", postHandler.Comment)
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown")
	}
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	stopWorkers()
	dispatcher.Wait()

	if rdb != nil {
		rdb.Close()
	}
	if pgPool != nil {
		pgPool.Close()
	}
	if err := mongoClient.Disconnect(shutCtx); err != nil {
		log.Error().Err(err).Msg("MongoDB disconnect")
	}
	log.Info().Msg("Server stopped")
}
