package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wuwenbin0122/studybot/internal/db"
	"github.com/wuwenbin0122/studybot/internal/models"
	"github.com/wuwenbin0122/studybot/internal/store"
	"github.com/wuwenbin0122/studybot/internal/utils"
)

var fixedNow = time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// runContract exercises the behaviour every backend must share. All records
// are stamped with the same instant so ordering relies on the tiebreaker.
func runContract(t *testing.T, st store.Store) {
	t.Helper()
	ctx := context.Background()
	conv := "u-" + uuid.NewString()
	other := "u-" + uuid.NewString()

	t.Run("unknown conversation is empty", func(t *testing.T) {
		all, err := st.QueryAll(ctx, conv)
		if err != nil {
			t.Fatalf("query all: %v", err)
		}
		if len(all) != 0 {
			t.Fatalf("expected no records, got %d", len(all))
		}

		total, err := st.Count(ctx, conv, "")
		if err != nil || total != 0 {
			t.Fatalf("expected zero count, got %d (%v)", total, err)
		}

		removed, err := st.DeleteAll(ctx, conv)
		if err != nil || removed != 0 {
			t.Fatalf("expected nothing removed, got %d (%v)", removed, err)
		}
	})

	texts := []struct {
		role models.Role
		text string
	}{
		{models.RoleUser, "q1"},
		{models.RoleAssistant, "a1"},
		{models.RoleUser, "q2"},
		{models.RoleAssistant, "a2"},
		{"system", "raw note"},
	}

	for _, item := range texts {
		msg, err := st.Insert(ctx, conv, item.role, item.text)
		if err != nil {
			t.Fatalf("insert %s: %v", item.text, err)
		}
		if msg.ConversationID != conv || msg.Role != item.role || msg.Text != item.text {
			t.Fatalf("unexpected inserted record %+v", msg)
		}
		if !msg.CreatedAt.Equal(fixedNow) {
			t.Fatalf("expected timestamp %s, got %s", fixedNow, msg.CreatedAt)
		}
	}
	if _, err := st.Insert(ctx, other, models.RoleUser, "elsewhere"); err != nil {
		t.Fatalf("insert other: %v", err)
	}

	t.Run("query all is newest first", func(t *testing.T) {
		all, err := st.QueryAll(ctx, conv)
		if err != nil {
			t.Fatalf("query all: %v", err)
		}
		got := textsOf(all)
		want := "raw note,a2,q2,a1,q1"
		if got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	})

	t.Run("query recent honours limit", func(t *testing.T) {
		recent, err := st.QueryRecent(ctx, conv, 2)
		if err != nil {
			t.Fatalf("query recent: %v", err)
		}
		if got := textsOf(recent); got != "raw note,a2" {
			t.Fatalf("expected last two records, got %s", got)
		}

		recent, err = st.QueryRecent(ctx, conv, 50)
		if err != nil {
			t.Fatalf("query recent: %v", err)
		}
		if len(recent) != 5 {
			t.Fatalf("expected 5 records, got %d", len(recent))
		}
	})

	t.Run("query recent rejects non-positive limit", func(t *testing.T) {
		for _, limit := range []int{0, -3} {
			if _, err := st.QueryRecent(ctx, conv, limit); !errors.Is(err, store.ErrInvalidLimit) {
				t.Fatalf("limit %d: expected ErrInvalidLimit, got %v", limit, err)
			}
		}
	})

	t.Run("reads are repeatable", func(t *testing.T) {
		first, err := st.QueryAll(ctx, conv)
		if err != nil {
			t.Fatalf("query all: %v", err)
		}
		second, err := st.QueryAll(ctx, conv)
		if err != nil {
			t.Fatalf("query all: %v", err)
		}
		if textsOf(first) != textsOf(second) {
			t.Fatalf("reads differ: %s vs %s", textsOf(first), textsOf(second))
		}
	})

	t.Run("count filters by role", func(t *testing.T) {
		cases := map[models.Role]int64{"": 5, models.RoleUser: 2, models.RoleAssistant: 2, "system": 1}
		for role, want := range cases {
			got, err := st.Count(ctx, conv, role)
			if err != nil {
				t.Fatalf("count %q: %v", role, err)
			}
			if got != want {
				t.Fatalf("count %q: expected %d, got %d", role, want, got)
			}
		}
	})

	t.Run("delete removes only the conversation", func(t *testing.T) {
		removed, err := st.DeleteAll(ctx, conv)
		if err != nil {
			t.Fatalf("delete: %v", err)
		}
		if removed != 5 {
			t.Fatalf("expected 5 removed, got %d", removed)
		}

		all, err := st.QueryAll(ctx, conv)
		if err != nil || len(all) != 0 {
			t.Fatalf("expected empty conversation after delete, got %d (%v)", len(all), err)
		}

		remaining, err := st.Count(ctx, other, "")
		if err != nil || remaining != 1 {
			t.Fatalf("expected other conversation untouched, got %d (%v)", remaining, err)
		}
	})

	if err := st.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func textsOf(messages []models.Message) string {
	parts := make([]string, 0, len(messages))
	for _, msg := range messages {
		parts = append(parts, msg.Text)
	}
	return strings.Join(parts, ",")
}

func TestMemoryStore(t *testing.T) {
	runContract(t, store.NewMemory(store.WithClock(fixedClock)))
}

func TestMemoryStoreHonoursCancelledContext(t *testing.T) {
	st := store.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := st.Insert(ctx, "u1", models.RoleUser, "hi"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSQLiteStore(t *testing.T) {
	gormDB, err := db.NewSQLite(filepath.Join(t.TempDir(), "study_bot.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	st, err := store.NewSQLite(gormDB, store.WithClock(fixedClock))
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	defer st.Close(context.Background())

	runContract(t, st)
}

func TestRedisStore(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})

	st := store.NewRedis(client, "study_bot:test:", store.WithClock(fixedClock))
	defer st.Close(context.Background())

	runContract(t, st)
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set; skipping mongo integration test")
	}

	conn, err := db.NewMongo(context.Background(), utils.MongoConfig{
		URI:            uri,
		Database:       "study_bot_test_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Collection:     "conversations",
		ConnectTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to connect to mongo: %v", err)
	}
	defer func() {
		ctx := context.Background()
		conn.Database.Drop(ctx)
		conn.Close(ctx)
	}()

	if err := conn.EnsureCollections(context.Background()); err != nil {
		t.Fatalf("ensure collections: %v", err)
	}

	runContract(t, store.NewMongo(conn, store.WithClock(fixedClock)))
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	conn, err := db.NewPostgres(context.Background(), utils.PostgresConfig{DSN: dsn, ConnectTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}
	defer conn.Close()

	if err := conn.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	runContract(t, store.NewPostgres(conn, store.WithClock(fixedClock)))
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	cfg := &utils.Config{StoreBackend: utils.StoreSQLite}
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "open.db")
	st, err := store.Open(ctx, cfg, store.WithClock(fixedClock))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if _, ok := st.(*store.SQLite); !ok {
		t.Fatalf("expected *store.SQLite, got %T", st)
	}
	_ = st.Close(ctx)

	mr := miniredis.RunT(t)
	cfg = &utils.Config{StoreBackend: utils.StoreRedis}
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.KeyPrefix = "open:"
	st, err = store.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("open redis: %v", err)
	}
	if _, ok := st.(*store.Redis); !ok {
		t.Fatalf("expected *store.Redis, got %T", st)
	}
	_ = st.Close(ctx)

	if _, err := store.Open(ctx, &utils.Config{StoreBackend: "cassandra"}); err == nil {
		t.Fatalf("expected unknown backend error")
	}
	if _, err := store.Open(ctx, &utils.Config{StoreBackend: utils.StoreMongo}); err == nil {
		t.Fatalf("expected missing mongo uri error")
	}
}

func TestOpenSQLiteFailsWhenMigrationFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conflict.db")

	gormDB, err := db.NewSQLite(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// A view squatting on the table name makes AutoMigrate's CREATE TABLE fail.
	if err := gormDB.Exec("CREATE VIEW conversations AS SELECT 1 AS id").Error; err != nil {
		t.Fatalf("create view: %v", err)
	}
	sqlDB, _ := gormDB.DB()
	sqlDB.Close()

	cfg := &utils.Config{StoreBackend: utils.StoreSQLite}
	cfg.SQLite.Path = path
	if _, err := store.Open(context.Background(), cfg); err == nil {
		t.Fatalf("expected migration failure")
	}
}
