package main

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lpernett/godotenv"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/Joenasriani/vibedeal/config"
	"github.com/Joenasriani/vibedeal/handlers"
	"github.com/Joenasriani/vibedeal/utils"
)

//go:embed web
var webFS embed.FS

// Load environment variables from .env file
func init() {
	log.Info("Loading environment variables")
	err := godotenv.Load()
	if err != nil {
		log.Warn("Error loading .env file")
	}
}

func main() {
	// Set up logging
	log.SetLevel(log.DebugLevel)
	log.SetFormatter(&log.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})
	log.Info("Server Version: VibeDeal Discovery Engine v1.0")

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	cfg := config.Load()
	if cfg.GeminiAPIKey == "" {
		// Boot continues; every search attempt will fail with a
		// credential error until the key is provided.
		log.Warn("GEMINI_API_KEY is not set, searches will fail")
	}

	// Set up Redis connection
	redisClient := redis.NewClient(&redis.Options{
		Addr:        cfg.RedisHost,
		Password:    cfg.RedisPassword,
		DB:          0,
		DialTimeout: 20 * time.Second, // initial connection timeout
	})

	redisCtx, cancelRedis := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelRedis()

	_, err = redisClient.Ping(redisCtx).Result()
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Info("Successfully connected to Redis")

	store := utils.NewSessionStore(redisClient, cfg)
	gemini := utils.NewGeminiClient(cfg)

	// Define HTTP routes
	webRoot, err := fs.Sub(webFS, "web")
	if err != nil {
		log.Fatalf("Failed to mount embedded web assets: %v", err)
	}
	http.Handle("/", http.FileServer(http.FS(webRoot)))
	http.HandleFunc("/healthz", handlers.HandleHealthz)
	http.HandleFunc("/deal-session", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleDealSession(w, r, gemini, store)
	})
	http.HandleFunc("/api/search", handlers.HandleSearch(gemini, store))
	http.HandleFunc("/api/stats", handlers.HandleStats(gemini.Stats))
	http.HandleFunc("/api/history", handlers.HandleHistory(store))

	// Set up signal handling
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serverExit := make(chan struct{})

	// Start HTTP server in a goroutine
	go func() {
		port := ":" + cfg.Port
		log.Info("Starting server on ", port)
		if err := http.ListenAndServe(port, nil); err != nil {
			log.Error(err)
		}
		close(serverExit)
	}()

	// On termination, close all connections and shut down the server
	select {
	case <-stop:
		log.Info("Shutting down server...")
	case <-serverExit:
		log.Info("Server exited unexpectedly...")
	}

	if err := redisClient.Close(); err != nil {
		log.Warn("Error closing Redis connection: ", err)
	}

	log.Info("Server shut down gracefully")
}
