package main

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"harvester/internal/config"
	"harvester/internal/core/diag"
	"harvester/internal/core/harvest"
	"harvester/internal/core/mapper"
	"harvester/internal/core/run"
	"harvester/internal/core/store"
	"harvester/internal/logger"
	rds "harvester/internal/platform/redis"
	tasks "harvester/internal/platform/tasks"
	"harvester/internal/server"
	"harvester/internal/worker"
)

func main() {
	cfg := config.Load()
	log.Printf("[harvester] starting at %s (env=%s)\n", cfg.HTTPAddr, cfg.AppEnv)

	logr := logger.New("main")

	site, err := config.LoadSite(cfg.SiteConfigPath)
	if err != nil {
		log.Fatalf("site config: %v", err)
	}
	logr.LogInfof("Harvest target: %s (%d queries)", site.Source, len(site.Queries))

	// Redis client
	redisSvc, err := rds.New(rds.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer redisSvc.Close()

	// Postgres via gorm
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("postgres connect: %v", err)
	}
	if err := db.AutoMigrate(&store.JobPosting{}); err != nil {
		log.Fatalf("postgres migrate: %v", err)
	}

	// Asynq client and server
	taskClient := tasks.New(redisSvc)
	asynqServer := asynq.NewServer(redisSvc.AsynqRedisOpt(), asynq.Config{
		Concurrency: 2,
		Queues:      map[string]int{"default": 1},
	})

	// Core services
	runSvc := run.NewService(redisSvc)
	gate := store.NewService(store.NewGormRepository(db), redisSvc, site)
	diagSvc := diag.New(cfg)
	mapSvc := mapper.New()
	harvestSvc := harvest.New(cfg, site, runSvc, gate, diagSvc)
	harvestHandler := harvest.NewHandler(harvestSvc, runSvc, taskClient, cfg.TaskMaxRetries)

	// Worker mux
	mux := worker.NewMux()
	mux.HandleFunc(harvest.TaskTypeHarvest, harvestHandler.HandleTask)

	go func() {
		if err := asynqServer.Start(mux.Mux()); err != nil {
			log.Printf("[worker] stopped: %v\n", err)
		}
	}()

	// HTTP server
	app := fiber.New(fiber.Config{
		AppName: "Harvester Engine",
		JSONEncoder: func(v interface{}) ([]byte, error) {
			var buf bytes.Buffer
			encoder := json.NewEncoder(&buf)
			encoder.SetEscapeHTML(false)
			if err := encoder.Encode(v); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
	})
	// Saved artifacts (diagnostic screenshots) from DATA_DIR under /files
	app.Static("/files", cfg.DataDir)

	deps := server.Dependencies{
		Harvest: harvestHandler,
		Map:     mapSvc,
		Redis:   redisSvc,
		DB:      db,
	}
	healthHandler := server.RegisterRoutes(app, deps)

	// Mark ready once services settle
	go func() {
		time.Sleep(5 * time.Second)
		healthHandler.SetReady()
	}()

	// Graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logr.LogInfo("Shutting down...")
		asynqServer.Shutdown()
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	if err := app.Listen(cfg.HTTPAddr); err != nil {
		log.Fatalf("server listen: %v", err)
	}
}
