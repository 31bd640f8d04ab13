package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spyware-scanner/spyware-scanner-go/internal/config"
	"github.com/spyware-scanner/spyware-scanner-go/internal/repository"
)

func main() {
	_ = godotenv.Load()

	configPath := "./configs/config.yaml"
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		configPath = os.Args[2]
	}

	// 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	logger := config.InitLogger(&cfg.Log)

	db, err := repository.Open(&cfg.Database)
	if err != nil {
		log.Fatal(err)
	}

	if err := repository.AutoMigrate(db, logger); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	fmt.Printf("✓ Migration completed successfully (%s)\n", cfg.Database.Type)
}
