package session

import (
	"testing"

	"github.com/sablegrid/syndnet/internal/terminal/domain"
)

func operative() domain.Identity {
	return domain.Identity{
		UID:      "u-1",
		Role:     domain.RoleOperative,
		Callsign: "ghost",
		Squad:    domain.SquadAlpha,
	}
}

func TestAddDefaultsToGuest(t *testing.T) {
	store := NewStore()
	store.Add("c-1")

	state, ok := store.Get("c-1")
	if !ok {
		t.Fatal("expected session entry")
	}
	if state.Role != domain.RoleGuest || !state.Anonymous() {
		t.Fatalf("expected anonymous guest, got %+v", state)
	}
}

func TestBindAndUnbind(t *testing.T) {
	store := NewStore()
	store.Add("c-1")

	if err := store.Bind("c-1", operative()); err != nil {
		t.Fatalf("bind: %v", err)
	}
	state, _ := store.Get("c-1")
	if state.Role != domain.RoleOperative || state.UID != "u-1" || state.Squad != domain.SquadAlpha {
		t.Fatalf("unexpected bound state %+v", state)
	}

	store.Unbind("c-1")
	state, ok := store.Get("c-1")
	if !ok || state.Role != domain.RoleGuest || !state.Anonymous() {
		t.Fatalf("expected guest after unbind, got %+v, %v", state, ok)
	}
}

func TestBindRejectsInvalidRoles(t *testing.T) {
	store := NewStore()
	store.Add("c-1")

	bad := operative()
	bad.Role = domain.Role("overlord")
	if err := store.Bind("c-1", bad); err == nil {
		t.Fatal("expected error for unknown role")
	}
	bad.Role = domain.RoleGuest
	if err := store.Bind("c-1", bad); err == nil {
		t.Fatal("expected error for guest role")
	}

	// The failed binds must leave the guest state intact.
	state, _ := store.Get("c-1")
	if state.Role != domain.RoleGuest {
		t.Fatalf("expected guest after rejected binds, got %+v", state)
	}
}

func TestBindUnknownConnection(t *testing.T) {
	store := NewStore()
	if err := store.Bind("c-404", operative()); err == nil {
		t.Fatal("expected error for unknown connection")
	}
}

func TestConnectionsByUID(t *testing.T) {
	store := NewStore()
	store.Add("c-1")
	store.Add("c-2")
	store.Add("c-3")

	if err := store.Bind("c-1", operative()); err != nil {
		t.Fatalf("bind c-1: %v", err)
	}
	if err := store.Bind("c-3", operative()); err != nil {
		t.Fatalf("bind c-3: %v", err)
	}

	conns := store.ConnectionsByUID("u-1")
	if len(conns) != 2 {
		t.Fatalf("expected 2 connections for u-1, got %v", conns)
	}

	store.Unbind("c-1")
	if conns := store.ConnectionsByUID("u-1"); len(conns) != 1 || conns[0] != "c-3" {
		t.Fatalf("expected only c-3 after unbind, got %v", conns)
	}

	store.Remove("c-3")
	if conns := store.ConnectionsByUID("u-1"); len(conns) != 0 {
		t.Fatalf("expected no connections after remove, got %v", conns)
	}

	if conns := store.ConnectionsByUID(""); conns != nil {
		t.Fatal("empty uid must resolve to no connections")
	}
}
