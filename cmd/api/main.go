package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fluentloop/stories/internal/audio"
	"github.com/fluentloop/stories/internal/auth"
	"github.com/fluentloop/stories/internal/config"
	"github.com/fluentloop/stories/internal/database"
	"github.com/fluentloop/stories/internal/dictionary"
	"github.com/fluentloop/stories/internal/elevenlabs"
	"github.com/fluentloop/stories/internal/generator"
	"github.com/fluentloop/stories/internal/handlers"
	"github.com/fluentloop/stories/internal/imagestore"
	"github.com/fluentloop/stories/internal/openrouter"
	"github.com/fluentloop/stories/internal/orchestrator"
	"github.com/fluentloop/stories/internal/storage"
	"github.com/fluentloop/stories/migrations"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Msg("Starting Stories API")

	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := migrations.Run(db.SQLDB()); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	storageClient, err := storage.NewClient(
		cfg.S3Endpoint, cfg.S3Region, cfg.S3Bucket,
		cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3UseSSL, cfg.S3PublicURL,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage client")
	}

	storyRepo := database.NewStoryRepository(db)
	audioCacheRepo := database.NewAudioCacheRepository(db)

	gatewayClient := openrouter.NewClient(
		cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey,
		cfg.SiteURL, cfg.SiteTitle, cfg.RequestTimeout,
	)
	storyGen := generator.NewStoryGenerator(gatewayClient, cfg.StoryModels(), cfg.VocabPercentage, cfg.DefaultWordCount)
	imageGen := generator.NewImageGenerator(gatewayClient, cfg.ImageModels(), cfg.PlaceholderImageURL, cfg.ImageTimeout)

	imageStore := imagestore.NewService(storageClient, storyRepo)
	orch := orchestrator.New(storyGen, imageGen, imageStore, storyRepo, cfg.StorageEnabled)

	ttsClient := elevenlabs.NewClient(cfg.ElevenLabsBaseURL, cfg.ElevenLabsAPIKey, 2*time.Minute)
	audioService := audio.NewService(
		ttsClient, storageClient, audioCacheRepo,
		cfg.TTSVoiceID, cfg.TTSModel, "en", cfg.Environment,
	)

	dictClient := dictionary.NewClient(cfg.WordsAPIBaseURL, cfg.WordsAPIKey, 10*time.Second)

	h := handlers.NewHandler(orch, audioService, storyRepo, imageStore, dictClient, ttsClient)
	authService := auth.NewService(db)

	r := mux.NewRouter()
	r.HandleFunc("/health", h.Health).Methods("GET")

	api := r.PathPrefix("/v1").Subrouter()
	api.Use(authService.Middleware)
	api.HandleFunc("/stories/generate", h.GenerateStory).Methods("POST")
	api.HandleFunc("/stories", h.ListStories).Methods("GET")
	api.HandleFunc("/stories/{id}", h.GetStory).Methods("GET")
	api.HandleFunc("/narration", h.GenerateNarration).Methods("POST")
	api.HandleFunc("/words/{word}", h.LookupWord).Methods("GET")
	api.HandleFunc("/voices", h.ListVoices).Methods("GET")
	api.HandleFunc("/admin/storage/stats", h.StorageStats).Methods("GET")
	api.HandleFunc("/admin/storage/cleanup", h.CleanupStorage).Methods("POST")

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // generation calls can be slow
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down API...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("API exited")
}
