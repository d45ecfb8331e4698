package prefs

import (
	"context"
	"testing"

	"github.com/koscakluka/ema-guide/core/language"
)

func TestLoadDefaultsWhenEmpty(t *testing.T) {
	store := NewStore(NewMemory())

	preferences, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("expected defaults, got error: %v", err)
	}
	if preferences != Defaults() {
		t.Fatalf("expected %+v, got %+v", Defaults(), preferences)
	}
}

func TestSaveAndLoad(t *testing.T) {
	store := NewStore(NewMemory())
	ctx := context.Background()

	if err := store.Save(ctx, Preferences{Language: language.Swahili, Quiet: true}); err != nil {
		t.Fatalf("expected save to succeed, got %v", err)
	}

	preferences, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}
	if preferences.Language != language.Swahili || !preferences.Quiet {
		t.Fatalf("expected swahili and quiet, got %+v", preferences)
	}
}

func TestLoadRejectsCorruptValues(t *testing.T) {
	kv := NewMemory()
	kv.Set(context.Background(), KeyQuiet, "sometimes")

	if _, err := NewStore(kv).Load(context.Background()); err == nil {
		t.Fatalf("expected corrupt quiet flag to be reported")
	}
}
