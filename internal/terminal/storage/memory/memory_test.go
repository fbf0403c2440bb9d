package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/sablegrid/syndnet/internal/terminal/storage"
)

func TestAppendReadUpdateDelete(t *testing.T) {
	store := New()
	ctx := context.Background()

	if err := store.AppendRow(ctx, storage.CollectionRequests, []string{"1", "u-1", "buyer", "need escort", "new"}); err != nil {
		t.Fatalf("append request: %v", err)
	}

	records, err := store.GetAllRecords(ctx, storage.CollectionRequests)
	if err != nil {
		t.Fatalf("read requests: %v", err)
	}
	if len(records) != 1 || records[0]["text"] != "need escort" {
		t.Fatalf("unexpected records %v", records)
	}

	if err := store.UpdateRowByKey(ctx, storage.CollectionRequests, "id", "1", map[string]string{"status": "accepted"}); err != nil {
		t.Fatalf("update request: %v", err)
	}
	records, _ = store.GetAllRecords(ctx, storage.CollectionRequests)
	if records[0]["status"] != "accepted" {
		t.Fatalf("expected accepted status, got %q", records[0]["status"])
	}

	if err := store.DeleteRowByKey(ctx, storage.CollectionRequests, "id", "1"); err != nil {
		t.Fatalf("delete request: %v", err)
	}
	records, _ = store.GetAllRecords(ctx, storage.CollectionRequests)
	if len(records) != 0 {
		t.Fatalf("expected empty collection, got %v", records)
	}
}

func TestReadsReturnCopies(t *testing.T) {
	store := New()
	ctx := context.Background()
	if err := store.AppendRow(ctx, storage.CollectionUsers, []string{"u-1", "k", "operative", "ghost", "alpha"}); err != nil {
		t.Fatalf("append user: %v", err)
	}

	records, _ := store.GetAllRecords(ctx, storage.CollectionUsers)
	records[0]["callsign"] = "mutated"

	again, _ := store.GetAllRecords(ctx, storage.CollectionUsers)
	if again[0]["callsign"] != "ghost" {
		t.Fatal("mutating a returned record must not affect the store")
	}
}

func TestUnknownCollection(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.GetAllRecords(ctx, "dossiers"); !errors.Is(err, storage.ErrUnknownCollection) {
		t.Fatalf("expected ErrUnknownCollection, got %v", err)
	}
}

func TestMissingRowErrors(t *testing.T) {
	store := New()
	ctx := context.Background()
	if err := store.UpdateRowByKey(ctx, storage.CollectionUsers, "uid", "nope", map[string]string{"callsign": "x"}); err == nil {
		t.Fatal("expected error updating missing row")
	}
	if err := store.DeleteRowByKey(ctx, storage.CollectionUsers, "uid", "nope"); err == nil {
		t.Fatal("expected error deleting missing row")
	}
}
