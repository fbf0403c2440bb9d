package app

import (
	"reflect"
	"testing"
)

func TestSplitCommandLowercasesName(t *testing.T) {
	name, args := splitCommand("LOGIN op1 secret")
	if name != "login" {
		t.Fatalf("name = %q, want %q", name, "login")
	}
	if args != "op1 secret" {
		t.Fatalf("args = %q, want %q", args, "op1 secret")
	}
}

func TestSplitCommandWithoutArgs(t *testing.T) {
	name, args := splitCommand("PING")
	if name != "ping" {
		t.Fatalf("name = %q, want %q", name, "ping")
	}
	if args != "" {
		t.Fatalf("args = %q, want empty", args)
	}
}

func TestSplitFieldsHonorsQuotes(t *testing.T) {
	got := splitFields(`1 "Night Escort" "Protect the convoy" 5000`, 4)
	want := []string{"1", "Night Escort", "Protect the convoy", "5000"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("fields = %#v, want %#v", got, want)
	}
}

func TestSplitFieldsLastFieldAbsorbsRemainder(t *testing.T) {
	got := splitFields(`key-1 op9 Falcon alpha squad extra`, 4)
	want := []string{"key-1", "op9", "Falcon", "alpha squad extra"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("fields = %#v, want %#v", got, want)
	}
}

func TestSplitFieldsCollapsesRepeatedSpaces(t *testing.T) {
	got := splitFields("a   b  c", 0)
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("fields = %#v, want %#v", got, want)
	}
}

func TestSplitFieldsTooFewTokens(t *testing.T) {
	got := splitFields("only-one", 4)
	if len(got) != 1 {
		t.Fatalf("fields = %#v, want a single field", got)
	}
}
