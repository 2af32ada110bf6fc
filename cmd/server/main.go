package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"studyhub/internal/api"
	"studyhub/internal/config"
	"studyhub/internal/jobs"
	repomongo "studyhub/internal/repository/mongo"
	"studyhub/internal/repository/redis"
	"studyhub/internal/responder"
	"studyhub/internal/responder/gemini"
	"studyhub/internal/responder/ollama"
	"studyhub/internal/service"
)

func main() {
	// Load .env file - try multiple locations
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg)

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Msg("Starting StudyHub API server")

	// Initialize Redis
	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	store := redis.NewStore(redisClient)

	sessionRepo := redis.NewSessionRepository(store)
	messageRepo := redis.NewMessageRepository(store)
	queueRepo := redis.NewQueueRepository(store)
	typingRepo := redis.NewTypingRepository(store)
	noteRepo := redis.NewNoteRepository(store)
	presenceRepo := redis.NewPresenceRepository(store)

	// Mongo archive is optional; without it ended sessions are simply gone.
	var archiveRepo *repomongo.ArchiveRepository
	if cfg.Mongo.URI != "" {
		mongoClient, err := repomongo.NewClient(cfg.Mongo)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mongoClient.Close(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to close MongoDB client")
			}
		}()
		archiveRepo = repomongo.NewArchiveRepository(mongoClient)
	} else {
		log.Warn().Msg("MONGO_URI not set, session archiving disabled")
	}

	// Initialize services
	membershipService := service.NewMembershipService(sessionRepo, presenceRepo)
	var sessionService *service.SessionService
	if archiveRepo != nil {
		sessionService = service.NewSessionService(sessionRepo, messageRepo, noteRepo, archiveRepo)
	} else {
		sessionService = service.NewSessionService(sessionRepo, messageRepo, noteRepo, nil)
	}
	presenceService := service.NewPresenceService(
		sessionRepo,
		presenceRepo,
		membershipService,
		cfg.Session.PresenceTTL,
		cfg.Session.PresenceGrace,
	)
	chatService := service.NewChatService(
		membershipService,
		messageRepo,
		queueRepo,
		typingRepo,
		cfg.Session.TypingTTL,
	)
	notesService := service.NewNotesService(membershipService, noteRepo)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Responder worker
	provider := selectProvider(cfg)
	if provider != nil && provider.IsConfigured() {
		worker := responder.NewWorker(
			queueRepo,
			messageRepo,
			sessionRepo,
			provider,
			cfg.Responder.GenerateTimeout,
			cfg.Responder.DisplayName,
		)
		go worker.Run(rootCtx)
	} else {
		log.Warn().Str("provider", cfg.Responder.Provider).Msg("Responder provider not configured, replies disabled")
	}

	// Background jobs
	scheduler, err := jobs.NewScheduler([]jobs.Entry{
		{Every: cfg.Session.ReapInterval, Job: jobs.NewPresenceReaperJob(presenceService)},
		{Every: cfg.Responder.SweepInterval, Job: jobs.NewQueueSweeperJob(queueRepo, cfg.Responder.ReplyTimeout)},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create job scheduler")
	}
	scheduler.Start()

	// Initialize router
	router := api.NewRouter(api.Deps{
		Config:     cfg,
		Redis:      redisClient,
		Sessions:   sessionService,
		Membership: membershipService,
		Presence:   presenceService,
		Chat:       chatService,
		Notes:      notesService,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	rootCancel()
	if err := scheduler.Stop(); err != nil {
		log.Error().Err(err).Msg("Failed to stop job scheduler")
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stderr
	if os.Getenv("ENV") != "production" {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	if cfg.Logging.File != "" {
		fileWriter, err := rotatelogs.New(
			cfg.Logging.File+".%Y%m%d",
			rotatelogs.WithLinkName(cfg.Logging.File),
			rotatelogs.WithRotationTime(24*time.Hour),
			rotatelogs.WithMaxAge(7*24*time.Hour),
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open log file")
		}
		out = zerolog.MultiLevelWriter(out, fileWriter)
	}

	log.Logger = log.Output(out)
}

func selectProvider(cfg *config.Config) responder.Provider {
	switch cfg.Responder.Provider {
	case "ollama":
		return ollama.NewProvider(cfg.Responder.Ollama.Host, cfg.Responder.Ollama.Model)
	case "gemini":
		return gemini.NewProvider(cfg.Responder.Gemini)
	default:
		log.Warn().Str("provider", cfg.Responder.Provider).Msg("Unknown responder provider")
		return nil
	}
}
