package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "expandall.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default("https://kozi.example/post/1")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := cfg.Active(); got != NormalProfile() {
		t.Errorf("Active: got %+v, want normal profile", got)
	}
	if len(cfg.Page.Hide) != 3 {
		t.Errorf("Hide: got %d selectors, want 3", len(cfg.Page.Hide))
	}
	if !cfg.ScrollEnabled() || !cfg.MarkdownEnabled() {
		t.Error("scroll and markdown should default to enabled")
	}

	tasks := cfg.Tasks()
	if len(tasks) != 2 {
		t.Fatalf("Tasks: got %d, want 2", len(tasks))
	}
	if tasks[0].Label != "discussion" || tasks[0].BatchSize != 30 {
		t.Errorf("task 0: got %s/%d, want discussion/30", tasks[0].Label, tasks[0].BatchSize)
	}
	if tasks[1].Label != "comment" || tasks[1].BatchSize != 50 {
		t.Errorf("task 1: got %s/%d, want comment/50", tasks[1].Label, tasks[1].BatchSize)
	}
	for _, task := range tasks {
		if err := task.Validate(); err != nil {
			t.Errorf("default task %s: %v", task.Label, err)
		}
	}
}

func TestDebugProfileSelection(t *testing.T) {
	cfg := Default("https://kozi.example/post/1")
	cfg.Debug = true

	if got := cfg.Active(); got != DebugProfile() {
		t.Fatalf("Active: got %+v, want debug profile", got)
	}
	tasks := cfg.Tasks()
	if tasks[0].BatchSize != 5 || tasks[1].BatchSize != 10 {
		t.Errorf("debug batch sizes: got %d/%d, want 5/10", tasks[0].BatchSize, tasks[1].BatchSize)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
debug: false
profiles:
  normal:
    comment_batch_size: 20
    mutation_timeout: 3s
browser:
  remote: ws://127.0.0.1:9222/devtools/browser/abc
page:
  url: https://example.com/thread
  hide: []
  scroll: false
  tasks:
    - kind: discussion
      control: button.more
      container: "#thread"
    - label: replies
      control: a.show-replies
      container: "#thread"
      batch_size: 7
export:
  dir: out
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	p := cfg.Active()
	if p.CommentBatchSize != 20 {
		t.Errorf("CommentBatchSize: got %d, want 20", p.CommentBatchSize)
	}
	if p.MutationTimeout != 3*time.Second {
		t.Errorf("MutationTimeout: got %s, want 3s", p.MutationTimeout)
	}
	if p.DiscussionBatchSize != 30 || p.RetryTimeout != 10*time.Second {
		t.Errorf("unset fields not defaulted: %+v", p)
	}
	if cfg.Profiles[ProfileDebug] != DebugProfile() {
		t.Errorf("debug profile changed: %+v", cfg.Profiles[ProfileDebug])
	}

	if cfg.Browser.Stealth != "headless" || cfg.Browser.NavigationTimeout != 30*time.Second {
		t.Errorf("browser defaults: got %+v", cfg.Browser)
	}
	if len(cfg.Page.Hide) != 0 {
		t.Errorf("Hide: got %v, want explicit empty list kept", cfg.Page.Hide)
	}
	if cfg.ScrollEnabled() {
		t.Error("ScrollEnabled: got true, want false")
	}
	if cfg.Export.Name != "page" {
		t.Errorf("Export.Name: got %q, want page", cfg.Export.Name)
	}

	tasks := cfg.Tasks()
	if len(tasks) != 2 {
		t.Fatalf("Tasks: got %d, want 2", len(tasks))
	}
	if tasks[0].Label != "discussion" || tasks[0].BatchSize != 30 {
		t.Errorf("task 0: got %s/%d", tasks[0].Label, tasks[0].BatchSize)
	}
	if tasks[1].Label != "replies" || tasks[1].BatchSize != 7 {
		t.Errorf("task 1: got %s/%d", tasks[1].Label, tasks[1].BatchSize)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadFile(writeFile(t, "page: [unterminated")); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default("")
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty URL")
	}

	cfg = Default("https://example.com")
	cfg.Page.Tasks = append(cfg.Page.Tasks, TaskConfig{Label: "half", Control: "a"})
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for task without container")
	}
}
