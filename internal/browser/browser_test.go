package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
)

func TestBlockedTypes(t *testing.T) {
	types, unknown := blockedTypes([]string{"images", "Fonts", "Image", "stylesheet", "video"})

	want := []proto.NetworkResourceType{
		proto.NetworkResourceTypeImage,
		proto.NetworkResourceTypeFont,
		proto.NetworkResourceTypeStylesheet,
	}
	if len(types) != len(want) {
		t.Fatalf("types: got %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("types[%d]: got %s, want %s", i, types[i], want[i])
		}
	}
	if len(unknown) != 1 || unknown[0] != "video" {
		t.Errorf("unknown: got %v, want [video]", unknown)
	}
}

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{
		"headful":  ModeHeadful,
		"headless": ModeHeadless,
		"auto":     ModeHeadless,
		"":         ModeHeadless,
	}
	for in, want := range cases {
		if got := ParseMode(in); got != want {
			t.Errorf("ParseMode(%q): got %s, want %s", in, got, want)
		}
	}
}

func TestWaitDisplay_Timeout(t *testing.T) {
	start := time.Now()
	err := waitDisplay(context.Background(), ":4242", 120*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline exceeded", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("waitDisplay ignored its timeout")
	}
}

func TestManager_ClosedRefusesStart(t *testing.T) {
	m := NewManager(Config{})
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := m.Start(context.Background()); err == nil {
		t.Error("Start after Close should fail")
	}
	if m.Browser() != nil {
		t.Error("Browser should be nil")
	}
}
