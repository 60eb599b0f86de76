package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/wuwenbin0122/studybot/internal/auth"
	"github.com/wuwenbin0122/studybot/internal/utils"
)

func main() {
	userID := flag.String("user", "", "user_id the token grants access to")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *userID == "" {
		log.Fatal("-user is required")
	}

	_ = godotenv.Load()
	cfg := utils.ReadConfig()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set; the server runs without auth")
	}

	authService, err := auth.NewService(cfg.JWTSecret, *ttl)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	token, expiresAt, err := authService.IssueToken(*userID)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}

	fmt.Println(token)
	fmt.Printf("expires at %s\n", expiresAt.UTC().Format(time.RFC3339))
}
