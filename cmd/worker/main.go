package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"carechat/internal/infrastructure/database"
	queueadapter "carechat/internal/infrastructure/queue/adapter"
	"carechat/internal/pkg/chat/application/task"
	notifyadapter "carechat/internal/pkg/notify/adapter"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	pool, err := database.NewPoolFromEnv(ctx)
	cancel()
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	client, err := queueadapter.NewAsynqClientFromEnv()
	if err != nil {
		log.Fatalf("failed to connect to queue: %v", err)
	}
	defer client.Close()

	srv, err := queueadapter.NewAsynqServer()
	if err != nil {
		log.Fatalf("failed to start queue server: %v", err)
	}

	task.RegisterSendMessageTask(srv, pool, client)
	notifyadapter.RegisterNotifyTask(srv)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("worker: processing tasks")
	if err := srv.Run(runCtx); err != nil {
		log.Fatalf("worker stopped: %v", err)
	}
}
