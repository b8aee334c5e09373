package main

import (
	"flag"
	"log"
	"time"

	"github.com/inkwell-app/inkwell/internal/api"
	"github.com/inkwell-app/inkwell/internal/auth"
	"github.com/inkwell-app/inkwell/internal/config"
	"github.com/inkwell-app/inkwell/internal/database"
	"github.com/inkwell-app/inkwell/internal/storage"
)

const version = "0.1.0"

func initializeAPI(configPath string) (*api.Api, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.Secret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	if err != nil {
		return nil, err
	}

	var exporter *storage.S3Client
	if cfg.S3.Bucket != "" {
		exporter, err = storage.NewS3Client(cfg)
		if err != nil {
			return nil, err
		}
	} else {
		log.Println("s3.bucket not configured, export endpoint disabled")
	}

	return api.NewApi(*cfg, db, tokens, exporter)
}

func main() {
	configPath := flag.String("config", "app.yml", "Path to configuration file")
	flag.Parse()

	log.Printf("Starting Inkwell API v%s with config: %s", version, *configPath)

	api, err := initializeAPI(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	api.Serve()
}
