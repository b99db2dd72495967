package observe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hazyhaar/expandall/dom/domtest"
)

const container = ".kz-post-description"

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAwaitNewContent_ContainerMissing(t *testing.T) {
	page := domtest.New()
	obs := New(page, 10*time.Second, quiet())

	start := time.Now()
	res := obs.AwaitNewContent(context.Background(), container)
	if res.Outcome != ContainerMissing {
		t.Fatalf("Outcome: got %s, want %s", res.Outcome, ContainerMissing)
	}
	if res.Err != nil {
		t.Errorf("Err: got %v, want nil", res.Err)
	}
	if d := time.Since(start); d > time.Second {
		t.Errorf("missing container took %s, want immediate", d)
	}
}

func TestAwaitNewContent_WatchFailureFailsOpen(t *testing.T) {
	page := domtest.New()
	page.AddContainer(container)
	boom := errors.New("cdp: target closed")
	page.FailWatches(boom)

	res := New(page, 10*time.Second, quiet()).AwaitNewContent(context.Background(), container)
	if res.Outcome != ContainerMissing {
		t.Fatalf("Outcome: got %s, want %s", res.Outcome, ContainerMissing)
	}
	if !errors.Is(res.Err, boom) {
		t.Errorf("Err: got %v, want %v", res.Err, boom)
	}
}

func TestAwaitNewContent_TimeoutBounds(t *testing.T) {
	page := domtest.New()
	page.AddContainer(container)
	timeout := 80 * time.Millisecond

	start := time.Now()
	res := New(page, timeout, quiet()).AwaitNewContent(context.Background(), container)
	elapsed := time.Since(start)

	if res.Outcome != TimedOut {
		t.Fatalf("Outcome: got %s, want %s", res.Outcome, TimedOut)
	}
	if elapsed < timeout {
		t.Errorf("resolved after %s, before timeout %s", elapsed, timeout)
	}
	if elapsed > timeout+time.Second {
		t.Errorf("resolved after %s, long past timeout %s", elapsed, timeout)
	}
	if n := page.Watching(container); n != 0 {
		t.Errorf("open watches after timeout: got %d, want 0", n)
	}
}

func TestStart_MutationWins(t *testing.T) {
	page := domtest.New()
	page.AddContainer(container)
	obs := New(page, 5*time.Second, quiet())

	p := obs.Start(context.Background(), container)
	if n := page.Watching(container); n != 1 {
		t.Fatalf("watches after Start: got %d, want 1", n)
	}
	page.Append(container)
	page.Append(container) // ignored, first event wins

	res := p.Wait()
	if res.Outcome != Mutated {
		t.Fatalf("Outcome: got %s, want %s", res.Outcome, Mutated)
	}
	if res.Elapsed >= 5*time.Second {
		t.Errorf("Elapsed: got %s, want well under the timeout", res.Elapsed)
	}
	if n := page.Watching(container); n != 0 {
		t.Errorf("open watches after mutation: got %d, want 0", n)
	}
}

func TestStart_IndependentObservers(t *testing.T) {
	page := domtest.New()
	page.AddContainer(container)
	obs := New(page, 5*time.Second, quiet())

	a := obs.Start(context.Background(), container)
	b := obs.Start(context.Background(), container)
	if n := page.Watching(container); n != 2 {
		t.Fatalf("watches: got %d, want 2", n)
	}

	b.Cancel()
	if res := b.Wait(); res.Outcome != TimedOut || !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("cancelled: got %s/%v, want %s/%v", res.Outcome, res.Err, TimedOut, context.Canceled)
	}

	page.Append(container)
	if res := a.Wait(); res.Outcome != Mutated {
		t.Fatalf("survivor: got %s, want %s", res.Outcome, Mutated)
	}
}

func TestStart_ContextCancelled(t *testing.T) {
	page := domtest.New()
	page.AddContainer(container)
	ctx, cancel := context.WithCancel(context.Background())

	p := New(page, 5*time.Second, quiet()).Start(ctx, container)
	cancel()

	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("observation did not resolve after context cancellation")
	}
	if res := p.Wait(); res.Outcome != TimedOut {
		t.Errorf("Outcome: got %s, want %s", res.Outcome, TimedOut)
	}
	if n := page.Watching(container); n != 0 {
		t.Errorf("open watches: got %d, want 0", n)
	}
}

func TestCancel_AfterResolveIsNoop(t *testing.T) {
	page := domtest.New()
	p := New(page, time.Second, quiet()).Start(context.Background(), container)
	p.Cancel()
	if res := p.Wait(); res.Outcome != ContainerMissing {
		t.Errorf("Outcome: got %s, want %s", res.Outcome, ContainerMissing)
	}
}

func TestOutcomeString(t *testing.T) {
	cases := map[Outcome]string{
		Mutated:          "mutated",
		TimedOut:         "timed_out",
		ContainerMissing: "container_missing",
		Outcome(0):       "unknown",
	}
	for o, want := range cases {
		if got := o.String(); got != want {
			t.Errorf("Outcome(%d).String(): got %q, want %q", int(o), got, want)
		}
	}
}
