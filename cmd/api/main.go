package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	v1 "carechat/cmd/api/router/v1"
	cacheadapter "carechat/internal/infrastructure/cache/adapter"
	"carechat/internal/infrastructure/database"
	queueadapter "carechat/internal/infrastructure/queue/adapter"
	"carechat/internal/infrastructure/realtime"
	"carechat/internal/pkg/call"
	"carechat/internal/pkg/entitlement"
	idadapter "carechat/internal/pkg/identity/adapter"
	idport "carechat/internal/pkg/identity/port"
	notifyadapter "carechat/internal/pkg/notify/adapter"
	"carechat/internal/pkg/scoring"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	// Connect to the database on startup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := database.NewPoolFromEnv(ctx)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	client, err := queueadapter.NewAsynqClientFromEnv()
	if err != nil {
		log.Fatalf("failed to connect to queue: %v", err)
	}
	defer client.Close()

	var directory idport.Directory = idadapter.NewPgDirectory(pool)
	if os.Getenv("REDIS_URL") != "" {
		if cache, err := cacheadapter.NewRedisAdapter(); err != nil {
			log.Printf("Warning: redis cache unavailable, profiles served from DB: %v", err)
		} else {
			defer cache.Close()
			directory = idadapter.NewCachedDirectory(directory, cache)
		}
	}

	hub := realtime.NewHub()
	defer hub.Close()
	calls := call.NewCoordinator(hub)

	r := gin.Default()

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "OK",
		})
	})

	v1.RegisterRoutes(r, v1.Deps{
		Pool:      pool,
		Queue:     client,
		Directory: directory,
		Notifier:  notifyadapter.NewQueueNotifier(client),
		Scorer:    scoring.Fixed(0), // placeholder until a scoring service is wired
		Gate:      entitlement.AllowAll(),
		Hub:       hub,
		Calls:     calls,
	})

	// Start HTTP server (blocks until shutdown)
	_ = r.Run()
}
