package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/mothertree-labs/mothertree-oss/internal/portal/app"
)

func main() {
	// Absent .env is fine; production injects environment directly.
	_ = godotenv.Load()

	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
