package main

import (
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"gravwars/internal/server"
)

func main() {
	_ = godotenv.Load() // optional .env for local runs

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	port := os.Getenv("WS_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = "3001"
	}

	srv := server.New(logger)
	if err := srv.Start(":" + port); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
