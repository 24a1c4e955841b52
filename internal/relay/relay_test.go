package relay

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateKeepsNewestTurns(t *testing.T) {
	history := []Message{
		{Role: "user", Content: strings.Repeat("a", 100)},
		{Role: "assistant", Content: strings.Repeat("b", 100)},
		{Role: "user", Content: strings.Repeat("c", 100)},
	}
	out, truncated := truncate(history, 250)
	if !truncated {
		t.Fatal("over-budget history must report truncation")
	}
	if len(out) != 2 || out[0].Content[0] != 'b' {
		t.Fatalf("oldest turn must go first: %d turns, leading %q", len(out), out[0].Content[:1])
	}
}

func TestTruncateWithinBudgetUntouched(t *testing.T) {
	history := []Message{{Role: "user", Content: "hello"}}
	out, truncated := truncate(history, 100)
	if truncated || len(out) != 1 || out[0].Content != "hello" {
		t.Fatalf("in-budget history changed: %v %v", out, truncated)
	}
}

func TestTruncateSingleOversizedTurn(t *testing.T) {
	history := []Message{{Role: "user", Content: strings.Repeat("a", 500)}}
	out, truncated := truncate(history, 100)
	if !truncated {
		t.Fatal("oversized turn must report truncation")
	}
	if len(out[0].Content) > 100 {
		t.Fatalf("turn still %d chars over a 100 budget", len(out[0].Content))
	}
	if !strings.HasSuffix(out[0].Content, "...") {
		t.Fatalf("cut turn must end with an ellipsis: %q", out[0].Content[90:])
	}
}

func TestSplitShortText(t *testing.T) {
	segments := Split("short", 1000)
	if len(segments) != 1 || segments[0] != "short" {
		t.Fatalf("short text must pass through: %v", segments)
	}
}

func TestSplitPrefersNewlines(t *testing.T) {
	text := strings.Repeat("x", 40) + "\n" + strings.Repeat("y", 40)
	segments := Split(text, 50)
	if len(segments) != 2 {
		t.Fatalf("want 2 segments, got %d", len(segments))
	}
	if strings.ContainsRune(segments[0], 'y') {
		t.Fatalf("split must land on the newline: %q", segments[0])
	}
}

func TestSplitHonoursLimit(t *testing.T) {
	text := strings.Repeat("word ", 500)
	for _, seg := range Split(text, 100) {
		if len(seg) > 100 {
			t.Fatalf("segment of %d bytes over the 100 limit", len(seg))
		}
	}
}

func TestSplitHardCutWithoutBoundaries(t *testing.T) {
	text := strings.Repeat("a", 250)
	segments := Split(text, 100)
	total := 0
	for _, seg := range segments {
		if len(seg) > 100 {
			t.Fatalf("segment of %d bytes over the limit", len(seg))
		}
		total += len(seg)
	}
	if total != 250 {
		t.Fatalf("hard cut lost bytes: %d of 250", total)
	}
}

func TestSplitKeepsRunesIntact(t *testing.T) {
	text := strings.Repeat("这是一个很长的回答。", 200)
	var rebuilt strings.Builder
	for _, seg := range Split(text, MaxSegmentLength) {
		if !utf8.ValidString(seg) {
			t.Fatalf("segment contains invalid UTF-8: %q", seg)
		}
		if len(seg) > MaxSegmentLength {
			t.Fatalf("segment of %d bytes over the limit", len(seg))
		}
		rebuilt.WriteString(seg)
	}
	if rebuilt.String() != text {
		t.Fatal("splitting lost or mangled text")
	}
}

func TestSplitTinyLimitStillAdvances(t *testing.T) {
	segments := Split("你好", 1)
	total := 0
	for _, seg := range segments {
		if !utf8.ValidString(seg) {
			t.Fatalf("segment contains invalid UTF-8: %q", seg)
		}
		total += len(seg)
	}
	if total != len("你好") {
		t.Fatalf("rebuilt %d of %d bytes", total, len("你好"))
	}
}

func TestTruncateOversizedTurnKeepsRunesIntact(t *testing.T) {
	history := []Message{{Role: "user", Content: strings.Repeat("问", 100)}}
	out, truncated := truncate(history, 100)
	if !truncated {
		t.Fatal("oversized turn must report truncation")
	}
	if !utf8.ValidString(out[0].Content) {
		t.Fatalf("cut turn contains invalid UTF-8: %q", out[0].Content)
	}
	if len(out[0].Content) > 100 {
		t.Fatalf("turn still %d bytes over the budget", len(out[0].Content))
	}
}

func TestMemoryHistoryRoundTrip(t *testing.T) {
	h := NewMemoryHistory()
	ctx := context.Background()

	if err := h.Save(ctx, "1_7", []Message{{Role: "user", Content: "hi"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := h.Load(ctx, "1_7")
	if err != nil || len(got) != 1 || got[0].Content != "hi" {
		t.Fatalf("load: %v, %v", got, err)
	}
	if err := h.Delete(ctx, "1_7"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := h.Load(ctx, "1_7"); len(got) != 0 {
		t.Fatalf("deleted conversation still loads: %v", got)
	}
}
