package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/wuwenbin0122/studybot/internal/store"
	"github.com/wuwenbin0122/studybot/internal/utils"
)

func main() {
	userID := flag.String("user", "", "conversation id to clear")
	flag.Parse()

	if *userID == "" {
		log.Fatal("-user is required")
	}

	_ = godotenv.Load()
	cfg, err := utils.LoadStoreConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	st, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer st.Close(ctx)

	removed, err := st.DeleteAll(ctx, *userID)
	if err != nil {
		log.Fatalf("delete: %v", err)
	}

	fmt.Printf("Deleted %d messages for %s\n", removed, *userID)
}
