package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/wuwenbin0122/studybot/internal/models"
	"github.com/wuwenbin0122/studybot/internal/store"
	"github.com/wuwenbin0122/studybot/internal/utils"
)

type seedPair struct {
	question string
	answer   string
}

var demoPairs = []seedPair{
	{
		question: "What is a derivative?",
		answer:   "A derivative measures how a function's output changes as its input changes. Geometrically it is the slope of the tangent line.",
	},
	{
		question: "Can you give an example?",
		answer:   "For f(x) = x^2 the derivative is f'(x) = 2x, so at x = 3 the slope is 6.",
	},
	{
		question: "How does that relate to velocity?",
		answer:   "Velocity is the derivative of position with respect to time. If s(t) = 5t^2, then v(t) = 10t.",
	},
}

// Writes demo exchanges straight through the store, bypassing the model.
func main() {
	userID := flag.String("user", "demo", "conversation id to seed")
	reset := flag.Bool("reset", false, "clear the conversation before seeding")
	flag.Parse()

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

	if *reset {
		if _, err := st.DeleteAll(ctx, *userID); err != nil {
			log.Fatalf("reset: %v", err)
		}
	}

	for _, pair := range demoPairs {
		if _, err := st.Insert(ctx, *userID, models.RoleUser, pair.question); err != nil {
			log.Fatalf("insert question: %v", err)
		}
		if _, err := st.Insert(ctx, *userID, models.RoleAssistant, pair.answer); err != nil {
			log.Fatalf("insert answer: %v", err)
		}
	}

	total, err := st.Count(ctx, *userID, "")
	if err != nil {
		log.Fatalf("count: %v", err)
	}

	fmt.Printf("Seeded %d exchanges for %s (%d messages stored)\n", len(demoPairs), *userID, total)
}
