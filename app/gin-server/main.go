package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Devansh978/AI-Interview-Assistant/config"
	"github.com/Devansh978/AI-Interview-Assistant/internal/api/handlers"
	"github.com/Devansh978/AI-Interview-Assistant/internal/api/middleware"
	"github.com/Devansh978/AI-Interview-Assistant/internal/api/routes"
	"github.com/Devansh978/AI-Interview-Assistant/internal/cache"
	"github.com/Devansh978/AI-Interview-Assistant/internal/extractor"
	"github.com/Devansh978/AI-Interview-Assistant/internal/interview"
	"github.com/Devansh978/AI-Interview-Assistant/internal/logger"
	"github.com/Devansh978/AI-Interview-Assistant/internal/persist"
	"github.com/Devansh978/AI-Interview-Assistant/internal/providers/llm"
	"github.com/Devansh978/AI-Interview-Assistant/internal/services"
	"github.com/Devansh978/AI-Interview-Assistant/internal/storage"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis backs the persisted-state blob
	if err := config.InitRedis(); err != nil {
		log.WithError(err).Fatal("redis init failed")
	}
	log.Info("redis connected")

	store := cache.NewRedisCache(config.RedisClient)
	repo := interview.NewRepository()

	bridge := persist.NewBridge(store, repo, log)
	if bridge.Load(ctx) {
		log.Info("previous interview state restored; resume-or-restart available")
	}
	repo.SetOnChange(bridge.NotifyChange)

	agg := interview.NewAggregator(buildCollaborator(ctx, log), log)
	svc := services.NewInterviewService(
		repo,
		agg,
		extractor.New(),
		buildUploader(ctx, log),
		os.Getenv("INTERVIEW_ROLE"),
		log,
	)

	// countdown/auto-submit driver
	ticker := interview.NewTicker(interview.TickInterval, time.Now, svc.Tick)
	go ticker.Run(ctx)

	r := gin.New()
	r.Use(middleware.RequestLogger(log), gin.Recovery())
	routes.RegisterRoutes(r, routes.Deps{
		Interview: handlers.NewInterviewHandler(svc),
		WS:        handlers.NewWSHandler(svc),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{Addr: ":" + port, Handler: r}

	go func() {
		log.WithField("port", port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	bridge.FlushNow(shutdownCtx)
}

// buildCollaborator returns the hosted model when configured, or nil to run
// on the local deterministic fallback only.
func buildCollaborator(ctx context.Context, log *logrus.Logger) llm.Collaborator {
	project := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if project == "" {
		log.Info("GOOGLE_CLOUD_PROJECT not set; using local question/judging fallback")
		return nil
	}
	location := os.Getenv("GOOGLE_CLOUD_LOCATION")
	if location == "" {
		location = "us-central1"
	}
	v, err := llm.NewVertexGemini(ctx, project, location, os.Getenv("GEMINI_MODEL"))
	if err != nil {
		log.WithError(err).Warn("vertex init failed; using local question/judging fallback")
		return nil
	}
	return v
}

// buildUploader wires resume archiving when a bucket is configured.
func buildUploader(ctx context.Context, log *logrus.Logger) storage.Uploader {
	bucket := os.Getenv("RESUME_BUCKET")
	if bucket == "" {
		return nil
	}
	u, err := storage.NewGCSUploader(ctx, bucket)
	if err != nil {
		log.WithError(err).Warn("gcs init failed; resume archiving disabled")
		return nil
	}
	return u
}
