package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/wuwenbin0122/studybot/internal/chat"
	"github.com/wuwenbin0122/studybot/internal/models"
	"github.com/wuwenbin0122/studybot/internal/store"
	"github.com/wuwenbin0122/studybot/internal/utils"
)

// historyExport mirrors the GET /history/{user_id} response body.
type historyExport struct {
	UserID        string            `json:"user_id"`
	TotalMessages int               `json:"total_messages"`
	Messages      []exportedMessage `json:"messages"`
}

type exportedMessage struct {
	Role      string `json:"role"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func newHistoryExport(userID string, records []models.Message) historyExport {
	messages := make([]exportedMessage, 0, len(records))
	for _, record := range records {
		messages = append(messages, exportedMessage{
			Role:      string(record.Role),
			Message:   record.Text,
			Timestamp: record.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return historyExport{UserID: userID, TotalMessages: len(messages), Messages: messages}
}

func main() {
	userID := flag.String("user", "", "conversation id to inspect")
	asJSON := flag.Bool("json", false, "print records as JSON")
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

	svc := chat.NewService(st, nil)

	records, err := svc.History(ctx, *userID)
	if err != nil {
		log.Fatalf("history: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(newHistoryExport(*userID, records)); err != nil {
			log.Fatalf("encode: %v", err)
		}
		return
	}

	stats, err := svc.Stats(ctx, *userID)
	if err != nil {
		log.Fatalf("stats: %v", err)
	}

	fmt.Printf("%s on %s: %d messages (%d user, %d assistant)\n",
		*userID, cfg.StoreBackend, stats.Total, stats.User, stats.Assistant)
	for _, record := range records {
		fmt.Printf("- [%s] %-9s %s\n", record.CreatedAt.Format("2006-01-02 15:04:05"), record.Role, record.Text)
	}
}
