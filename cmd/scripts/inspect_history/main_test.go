package main

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/wuwenbin0122/studybot/internal/models"
)

func TestHistoryExportUsesAPIFieldNames(t *testing.T) {
	at := time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC)
	records := []models.Message{
		{ID: "2", ConversationID: "u1", Role: models.RoleAssistant, Text: "a1", CreatedAt: at},
		{ID: "1", ConversationID: "u1", Role: models.RoleUser, Text: "q1", CreatedAt: at},
	}

	payload, err := json.Marshal(newHistoryExport("u1", records))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["user_id"] != "u1" || decoded["total_messages"] != float64(2) {
		t.Fatalf("unexpected envelope %v", decoded)
	}

	messages := decoded["messages"].([]any)
	first := messages[0].(map[string]any)
	want := map[string]any{"role": "assistant", "message": "a1", "timestamp": "2024-03-01T09:30:00Z"}
	if len(first) != len(want) {
		t.Fatalf("unexpected fields %v", first)
	}
	for key, value := range want {
		if first[key] != value {
			t.Fatalf("%s: expected %v, got %v", key, value, first[key])
		}
	}
}

func TestHistoryExportEmptyConversation(t *testing.T) {
	payload, err := json.Marshal(newHistoryExport("nobody", nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != `{"user_id":"nobody","total_messages":0,"messages":[]}` {
		t.Fatalf("unexpected payload %s", payload)
	}
}
