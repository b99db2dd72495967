package runner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/expandall/dom/domtest"
	"github.com/hazyhaar/expandall/internal/config"
	"github.com/hazyhaar/expandall/internal/idgen"
)

// fakePage adds hide and scroll support to the scripted DOM.
type fakePage struct {
	*domtest.Page

	mu       sync.Mutex
	hidden   []string
	scrolls  int
	bottomAt int
}

func (p *fakePage) Hide(_ context.Context, selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if selector == ".broken" {
		return false, errors.New("eval failed")
	}
	p.hidden = append(p.hidden, selector)
	return true, nil
}

func (p *fakePage) ScrollBy(_ context.Context, _ int) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scrolls++
	return p.scrolls >= p.bottomAt, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default("https://kozi.example/post/1")
	prof := cfg.Profiles[config.ProfileNormal]
	prof.MutationTimeout = 200 * time.Millisecond
	prof.RetryTimeout = 10 * time.Millisecond
	prof.ScrollDelay = time.Millisecond
	prof.MaxScrollAttempts = 10
	cfg.Profiles[config.ProfileNormal] = prof

	cfg.Page.Hide = []string{".kz-navbar", ".broken"}
	cfg.Page.Tasks = []config.TaskConfig{
		{Label: "discussions", Kind: config.KindDiscussion, Control: ".thread-more", Container: ".threads", BatchSize: 2},
		{Label: "comments", Kind: config.KindComment, Control: ".comment-more", Container: ".comments", BatchSize: 3},
	}
	return cfg
}

func newFakePage() *fakePage {
	p := &fakePage{Page: domtest.New(), bottomAt: 3}
	p.AddContainer(".threads")
	p.AddContainer(".comments")
	for _, s := range []string{"t1", "t2", "t3"} {
		p.NewControl(".thread-more", ".threads", s)
	}
	for _, s := range []string{"c1", "c2", "c3", "c4"} {
		p.NewControl(".comment-more", ".comments", s)
	}
	return p
}

type event struct {
	Type  string          `json:"type"`
	RunID string          `json:"run_id"`
	Data  json.RawMessage `json:"data"`
}

func readEvents(t *testing.T, buf *bytes.Buffer) []event {
	t.Helper()
	var out []event
	sc := bufio.NewScanner(buf)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		var e event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		out = append(out, e)
	}
	return out
}

func TestExpand_RunsTasksInOrder(t *testing.T) {
	cfg := testConfig(t)
	cfg.Export.Dir = t.TempDir()

	var buf bytes.Buffer
	r := New(cfg, nil, &buf)
	page := newFakePage()

	snapshot := func(context.Context) ([]byte, error) {
		return []byte(`<html><head><title>Post</title></head><body>
<div class="threads"><p>thread body</p></div><footer>f</footer></body></html>`), nil
	}
	cfg.Export.Region = ".threads"

	sum := r.Expand(context.Background(), page, snapshot)

	if sum.Tasks != 2 {
		t.Errorf("Tasks: got %d, want 2", sum.Tasks)
	}
	if sum.Activations != 7 {
		t.Errorf("Activations: got %d, want 7", sum.Activations)
	}
	if sum.Hidden != 1 {
		t.Errorf("Hidden: got %d, want 1", sum.Hidden)
	}
	if sum.Interrupted {
		t.Error("run should not be interrupted")
	}

	got := strings.Join(page.Activated(), ",")
	if got != "t1,t2,t3,c1,c2,c3,c4" {
		t.Errorf("activation order: got %s", got)
	}

	var types []string
	for _, e := range readEvents(t, &buf) {
		if e.RunID != r.RunID() {
			t.Errorf("run_id: got %q, want %q", e.RunID, r.RunID())
		}
		types = append(types, e.Type)
	}
	want := "task,task,scroll,export,run"
	if strings.Join(types, ",") != want {
		t.Errorf("events: got %v, want %s", types, want)
	}

	if _, err := os.Stat(filepath.Join(cfg.Export.Dir, "page.md")); err != nil {
		t.Errorf("page.md not written: %v", err)
	}
}

func TestExpand_NoScrollNoExport(t *testing.T) {
	cfg := testConfig(t)
	off := false
	cfg.Page.Scroll = &off

	var buf bytes.Buffer
	page := newFakePage()
	New(cfg, nil, &buf).Expand(context.Background(), page, nil)

	if page.scrolls != 0 {
		t.Errorf("scrolls: got %d, want 0", page.scrolls)
	}
	var types []string
	for _, e := range readEvents(t, &buf) {
		types = append(types, e.Type)
	}
	if strings.Join(types, ",") != "task,task,run" {
		t.Errorf("events: got %v", types)
	}
}

func TestExpand_SnapshotFailureIsReported(t *testing.T) {
	cfg := testConfig(t)
	cfg.Export.Dir = t.TempDir()

	var buf bytes.Buffer
	snapshot := func(context.Context) ([]byte, error) { return nil, errors.New("target closed") }
	sum := New(cfg, nil, &buf).Expand(context.Background(), newFakePage(), snapshot)

	if sum.Tasks != 2 {
		t.Errorf("Tasks: got %d, want 2", sum.Tasks)
	}
	for _, e := range readEvents(t, &buf) {
		if e.Type == "export" {
			t.Error("export event emitted after snapshot failure")
		}
	}
}

func TestExpand_CancelledStopsAfterCurrentTask(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())

	page := newFakePage()
	page.NewControl(".thread-more", ".threads", "stuck").OnActivate = func(context.Context, *domtest.Control) error {
		cancel()
		return errors.New("stale")
	}

	var buf bytes.Buffer
	sum := New(cfg, nil, &buf).Expand(ctx, page, nil)

	if !sum.Interrupted {
		t.Error("Interrupted: got false, want true")
	}
	if sum.Tasks != 1 {
		t.Errorf("Tasks: got %d, want 1", sum.Tasks)
	}
	if page.Queries(".comment-more") != 0 {
		t.Error("second task ran after cancellation")
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := config.Default("")
	if err := New(cfg, nil, &bytes.Buffer{}).Run(context.Background()); err == nil {
		t.Fatal("expected error for missing URL")
	}
}

func TestRunID(t *testing.T) {
	cfg := testConfig(t)
	a := New(cfg, nil, &bytes.Buffer{}).RunID()
	b := New(cfg, nil, &bytes.Buffer{}).RunID()
	if a == b {
		t.Errorf("RunID not unique: %q", a)
	}
	if _, err := idgen.Parse(a); err != nil {
		t.Errorf("default RunID is not a UUID: %v", err)
	}

	var buf bytes.Buffer
	r := New(cfg, nil, &buf, WithIDGenerator(idgen.Sequence("run-")))
	if r.RunID() != "run-1" {
		t.Errorf("RunID: got %q, want run-1", r.RunID())
	}
}
