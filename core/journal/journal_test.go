package journal

import (
	"path/filepath"
	"testing"
	"time"

	"crp/core/types"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"), nil)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	j.SetNowFunc(func() time.Time { return time.Unix(1_700_000_000, 0).UTC() })
	return j
}

func appendEvent(t *testing.T, j *Journal, eventType string) uint64 {
	t.Helper()
	seq, err := j.Append(&types.Event{Type: eventType, Attributes: map[string]string{"id": "1"}})
	if err != nil {
		t.Fatalf("append %s: %v", eventType, err)
	}
	return seq
}

func TestAppendAssignsMonotonicSequence(t *testing.T) {
	j := openTestJournal(t)
	for want := uint64(1); want <= 5; want++ {
		seq := appendEvent(t, j, "pool.created")
		if seq != want {
			t.Fatalf("seq = %d, want %d", seq, want)
		}
	}
}

func TestRange(t *testing.T) {
	j := openTestJournal(t)
	events := []string{"pool.created", "pool.joined", "pool.fundingFinalized", "pool.loanRepaid"}
	for _, evt := range events {
		appendEvent(t, j, evt)
	}

	records, err := j.Range(2, 3)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len = %d, want 2", len(records))
	}
	if records[0].Type != "pool.joined" || records[1].Type != "pool.fundingFinalized" {
		t.Fatalf("types = %s, %s", records[0].Type, records[1].Type)
	}
	if records[0].Seq != 2 || records[1].Seq != 3 {
		t.Fatalf("seqs = %d, %d", records[0].Seq, records[1].Seq)
	}

	// Zero `to` reads until the latest record.
	records, err = j.Range(3, 0)
	if err != nil {
		t.Fatalf("open range: %v", err)
	}
	if len(records) != 2 || records[1].Type != "pool.loanRepaid" {
		t.Fatalf("open range = %+v", records)
	}
}

func TestTailReturnsAscending(t *testing.T) {
	j := openTestJournal(t)
	for _, evt := range []string{"a", "b", "c", "d"} {
		appendEvent(t, j, evt)
	}
	records, err := j.Tail(2)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(records) != 2 || records[0].Type != "c" || records[1].Type != "d" {
		t.Fatalf("tail = %+v", records)
	}
	records, err = j.Tail(10)
	if err != nil {
		t.Fatalf("oversized tail: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("len = %d, want 4", len(records))
	}
}

func TestRecordsCarryAttributesAndTimestamp(t *testing.T) {
	j := openTestJournal(t)
	seq, err := j.Append(&types.Event{Type: "governance.voteCast", Attributes: map[string]string{
		"id":     "4",
		"choice": "yes",
	}})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	records, err := j.Range(seq, seq)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len = %d, want 1", len(records))
	}
	record := records[0]
	if record.Attributes["choice"] != "yes" {
		t.Fatalf("attributes = %v", record.Attributes)
	}
	if !record.Timestamp.Equal(time.Unix(1_700_000_000, 0).UTC()) {
		t.Fatalf("timestamp = %s", record.Timestamp)
	}
}

func TestClosedJournalRejectsAppend(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"), nil)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := j.Append(&types.Event{Type: "a"}); err == nil {
		t.Fatal("append on closed journal succeeded")
	}
}
