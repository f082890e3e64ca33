package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"echospace/backend/internal/api/handler"
	"echospace/backend/internal/config"
	"echospace/backend/internal/lobbyhub"
	"echospace/backend/internal/models"
	"echospace/backend/internal/presence"
	"echospace/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setupDependencies() (*gorm.DB, *redis.Client) {
	// 1. PostgreSQL
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		envOr("DB_HOST", "localhost"),
		envOr("DB_USER", "user"),
		envOr("DB_PASSWORD", "password"),
		envOr("DB_NAME", "echospacedb"),
		envOr("DB_PORT", "5432"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	// 2. Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     envOr("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	// 3. Migrations
	err = db.AutoMigrate(
		&models.Profile{},
		&models.AvatarState{},
		&models.CustomLobby{},
		&models.PrivateMessage{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

// runSweeper periodically demotes live avatar rows whose heartbeat went
// silent (clients that vanished without a clean leave or beacon). Their
// stand-ins remain in the room.
func runSweeper(s *storage.Service) {
	ticker := time.NewTicker(config.SweepInterval)
	defer ticker.Stop()

	for range ticker.C {
		demoted, err := s.DemoteStaleAvatars(time.Now().Add(-config.StaleAfter))
		if err != nil {
			log.Printf("ERROR: Stale avatar sweep failed: %v", err)
			continue
		}
		if len(demoted) > 0 {
			log.Printf("Demoted %d stale avatar(s) to stand-in", len(demoted))
		}
	}
}

func main() {
	log.Println("Starting EchoSpace Backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	// 1. Dependencies
	db, rdb := setupDependencies()
	s := storage.NewStorageService(db, rdb)

	// 2. Presence plumbing
	transport := presence.NewRedisTransport(rdb)
	directory := presence.NewDirectory(s)
	hub := lobbyhub.NewManagerService(s, transport, directory)

	// 3. Background goroutines
	go hub.Run()
	go hub.ListenDirectMessages(context.Background(), rdb)
	go runSweeper(s)

	// 4. Gin routing
	r := gin.Default()
	h := handler.NewHandler(hub, s)

	r.GET("/anonid", h.GetAnonID)
	r.GET("/ws", h.ServeWebSocket)
	r.POST("/offline", h.MarkOffline) // Unload beacon, best effort

	r.POST("/profiles", h.CreateProfile)
	r.GET("/profiles/:id", h.GetProfile)
	r.GET("/rooms/:room/avatar", h.GetSavedAvatarState)

	r.POST("/lobbies", h.CreateLobby)
	r.GET("/lobbies", h.ListLobbies)
	r.GET("/lobbies/:code", h.GetLobby)
	r.PUT("/lobbies/:code", h.UpdateLobby)
	r.DELETE("/lobbies/:code", h.DeleteLobby)
	r.GET("/lobbies/:code/messages", h.GetConversation)
	r.POST("/lobbies/:code/messages/read", h.MarkConversationRead)

	server := &http.Server{
		Addr:           ":" + envOr("PORT", "8080"),
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}
