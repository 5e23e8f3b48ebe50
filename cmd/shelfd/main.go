package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/shelfd/shelfd/internal/config"
	"github.com/shelfd/shelfd/internal/db"
	"github.com/shelfd/shelfd/internal/ffmpeg"
	"github.com/shelfd/shelfd/internal/ingest"
	"github.com/shelfd/shelfd/internal/jobs"
	"github.com/shelfd/shelfd/internal/repository"
	"github.com/shelfd/shelfd/internal/watcher"
)

func main() {
	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[main] database: %v", err)
	}
	defer database.Close()

	if err := db.Migrate(database, "migrations"); err != nil {
		log.Fatalf("[main] migrations: %v", err)
	}

	libraryRepo := repository.NewLibraryRepository(database.DB)
	collectionRepo := repository.NewCollectionRepository(database.DB)
	mediaRepo := repository.NewMediaRepository(database.DB)

	queue := jobs.NewQueue(cfg.RedisAddr)
	defer queue.Close()

	prober := ffmpeg.NewFFprobe(cfg.FFprobePath, cfg.ProbeTimeout)
	resolver := ingest.NewCollectionResolver(collectionRepo, queue)
	ingestor := ingest.NewMediaIngestor(mediaRepo, collectionRepo, resolver, prober, queue, cfg.ProbesPerSecond)

	registry := watcher.NewRegistry(libraryRepo, ingestor, resolver, cfg.DebounceWindow, cfg.MaxIngestJobs)
	if err := registry.Start(); err != nil {
		log.Fatalf("[main] registry: %v", err)
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.SyncInterval, func() {
		if syncErr := registry.Sync(); syncErr != nil {
			log.Printf("[main] library sync: %v", syncErr)
		}
	}); err != nil {
		log.Fatalf("[main] sync schedule %q: %v", cfg.SyncInterval, err)
	}
	scheduler.Start()

	log.Printf("[main] shelfd running")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Printf("[main] shutting down")
	<-scheduler.Stop().Done()
	registry.Stop()
}
