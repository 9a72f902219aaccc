package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"positionfarm/internal/model"
)

func TestJsonlJournalAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "events.jsonl")
	journal := NewJsonlJournal(path)

	first := []model.EventRecord{
		{Type: model.EventPositionStaked, At: 100, User: "0xabc", TokenID: "1", Amount: "5000"},
	}
	second := []model.EventRecord{
		{Type: model.EventRewardsClaimed, At: 200, User: "0xabc", Amount: "42"},
		{Type: model.EventPositionUnstaked, At: 300, User: "0xabc", TokenID: "1"},
	}
	if err := journal.PutEvents(first); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := journal.PutEvents(second); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := journal.PutEvents(nil); err != nil {
		t.Fatalf("empty put failed: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer file.Close()

	var got []model.EventRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var rec model.EventRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("bad journal line: %v", err)
		}
		got = append(got, rec)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("journal lines = %d, want 3", len(got))
	}
	if got[0].Type != model.EventPositionStaked || got[0].Amount != "5000" {
		t.Fatalf("first line = %+v", got[0])
	}
	if got[2].At != 300 {
		t.Fatalf("third line at = %d, want 300", got[2].At)
	}
}

func TestTeeReportsFirstFailure(t *testing.T) {
	ok := &captureJournal{}
	bad := &failJournal{}
	tee := Tee{bad, ok}

	events := []model.EventRecord{{Type: model.EventEmergencyEnabled, At: 1}}
	if err := tee.PutEvents(events); err == nil {
		t.Fatalf("expected tee to surface journal failure")
	}
	if len(ok.events) != 1 {
		t.Fatalf("healthy journal got %d events, want 1", len(ok.events))
	}
}

type captureJournal struct {
	events []model.EventRecord
}

func (c *captureJournal) PutEvents(events []model.EventRecord) error {
	c.events = append(c.events, events...)
	return nil
}

type failJournal struct{}

func (failJournal) PutEvents([]model.EventRecord) error {
	return os.ErrPermission
}
