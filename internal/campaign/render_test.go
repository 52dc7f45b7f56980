package campaign

import (
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/leadclaw/internal/store"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestRender_Placeholders(t *testing.T) {
	content := store.CampaignContent{
		Kind:     "text",
		Variants: []string{"{{greeting}} {{name}}, welcome aboard"},
	}
	morning := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	got := Render(content, store.Contact{ID: "1", Name: "Ana"}, morning, testRNG())
	if got != "Good morning Ana, welcome aboard" {
		t.Errorf("Render() = %q", got)
	}
}

func TestRender_NameFallback(t *testing.T) {
	content := store.CampaignContent{Variants: []string{"Hi {{name}}!"}}
	got := Render(content, store.Contact{ID: "1"}, time.Now(), testRNG())
	if got != "Hi there!" {
		t.Errorf("Render() = %q, want fallback name", got)
	}
}

func TestRender_EmojiSubstituted(t *testing.T) {
	content := store.CampaignContent{Variants: []string{"bye {{emoji}}"}}
	got := Render(content, store.Contact{ID: "1", Name: "Bo"}, time.Now(), testRNG())
	if strings.Contains(got, "{{emoji}}") {
		t.Errorf("Render() = %q, emoji placeholder not substituted", got)
	}
	if !strings.HasPrefix(got, "bye ") || len(got) <= len("bye ") {
		t.Errorf("Render() = %q, expected an emoji after prefix", got)
	}
}

func TestRender_VariantSelection(t *testing.T) {
	content := store.CampaignContent{Variants: []string{"a", "b", "c"}}
	seen := map[string]bool{}
	rng := testRNG()
	for i := 0; i < 100; i++ {
		seen[Render(content, store.Contact{ID: "1", Name: "x"}, time.Now(), rng)] = true
	}
	if len(seen) < 2 {
		t.Errorf("expected multiple variants across 100 renders, saw %v", seen)
	}
	for v := range seen {
		if v != "a" && v != "b" && v != "c" {
			t.Errorf("unexpected render %q", v)
		}
	}
}

func TestGreeting(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{3, "Hello"},
		{8, "Good morning"},
		{14, "Good afternoon"},
		{21, "Good evening"},
	}
	for _, tt := range tests {
		at := time.Date(2026, 1, 1, tt.hour, 0, 0, 0, time.UTC)
		if got := Greeting(at); got != tt.want {
			t.Errorf("Greeting(%02d:00) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}

func TestRender_NoVariants(t *testing.T) {
	if got := Render(store.CampaignContent{}, store.Contact{ID: "1"}, time.Now(), testRNG()); got != "" {
		t.Errorf("Render() = %q, want empty", got)
	}
}
