package main

import (
	"os"

	"CoachingAgent-server/config"
	"CoachingAgent-server/logger"
	"CoachingAgent-server/models"
	"CoachingAgent-server/routers"
	"CoachingAgent-server/routers/api"
	"CoachingAgent-server/service"
)

func main() {
	log := logger.New()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.WithError(err).Fatal("cannot load config")
	}

	db, err := models.Open(cfg)
	if err != nil {
		log.WithError(err).Fatal("cannot open database")
	}
	if err := models.AutoMigrate(db); err != nil {
		log.WithError(err).Fatal("cannot migrate database")
	}

	store, err := service.NewObjectStore(cfg)
	if err != nil {
		log.WithError(err).Fatal("cannot connect to object store")
	}

	queue := service.NewQueue(cfg)
	defer queue.Close()

	transcriber := service.NewTranscriptionClient(cfg, log)
	analyzer := service.NewAnalysisClient(cfg)
	pipeline := service.NewPipeline(db, store, transcriber, analyzer, log)

	processor := service.NewProcessor(cfg, pipeline, log)
	processor.Start(cfg.Worker.Concurrency)

	handler := api.NewHandler(db, store, queue, log)
	r := routers.InitRouter(handler, log)

	log.WithField("port", cfg.Server.Port).Info("server starting")
	if err := r.Run(cfg.Server.Port); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
