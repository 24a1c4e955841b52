package utils

import (
	"math/rand"
	"strings"
	"testing"
)

func TestRandomGlyphsDistinct(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	glyphs := RandomGlyphs(rng, 10)
	if len(glyphs) != 10 {
		t.Fatalf("want 10 glyphs, got %d", len(glyphs))
	}
	seen := make(map[string]bool)
	for _, g := range glyphs {
		if seen[g] {
			t.Fatalf("duplicate glyph %s", g)
		}
		seen[g] = true
	}
}

func TestRenderTrack(t *testing.T) {
	if got := RenderTrack(0, 5, "🐎", false); got != "_____🐎" {
		t.Fatalf("start render %q", got)
	}
	if got := RenderTrack(5, 5, "🐎", false); got != "🐎_____" {
		t.Fatalf("finish render %q", got)
	}
	if got := RenderTrack(9, 5, "🐎", false); got != "🐎_____" {
		t.Fatalf("overshoot must clamp: %q", got)
	}
	if got := RenderTrack(2, 5, "🐎", true); !strings.Contains(got, "💀") {
		t.Fatalf("dead racer must render a tombstone: %q", got)
	}
}
