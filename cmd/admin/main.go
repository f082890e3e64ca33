package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"echospace/backend/internal/config"
	"echospace/backend/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	// Demotions publish presence events, so the CLI needs Redis too.
	rdb := redis.NewClient(&redis.Options{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}

	storageSvc := storage.NewStorageService(db, rdb)

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "sweep":
		demoted, err := storageSvc.DemoteStaleAvatars(time.Now().Add(-config.StaleAfter))
		if err != nil {
			log.Fatalf("Error sweeping stale avatars: %v", err)
		}
		for _, state := range demoted {
			fmt.Printf("demoted %s in room %s (last activity %s)\n",
				state.ProfileID, state.RoomID, state.LastActivity.Format(time.RFC3339))
		}
		fmt.Printf("%d stale avatar(s) demoted to stand-in.\n", len(demoted))
	case "offline":
		if len(os.Args) != 4 {
			fmt.Println("Usage: admin offline <profile_id> <room_id>")
			os.Exit(1)
		}
		profileID, roomID := os.Args[2], os.Args[3]
		if err := storageSvc.MarkAvatarOffline(profileID, roomID); err != nil {
			log.Fatalf("Error marking avatar offline: %v", err)
		}
		fmt.Printf("Avatar %s in room %s is now a stand-in.\n", profileID, roomID)
	case "rooms":
		rows, err := storageSvc.CountRoomOccupancy()
		if err != nil {
			log.Fatalf("Error listing rooms: %v", err)
		}
		for _, row := range rows {
			fmt.Printf("%s\t%d avatar(s)\n", row.RoomID, row.Avatars)
		}
	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}
