// Package config handles expandall configuration: built-in tunable
// profiles, an optional YAML file, and the default task list.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level expandall configuration.
type Config struct {
	// Debug selects the debug profile. Read once at startup.
	Debug    bool               `yaml:"debug"`
	Profiles map[string]Profile `yaml:"profiles"`
	Browser  BrowserConfig      `yaml:"browser"`
	Page     PageConfig         `yaml:"page"`
	Export   ExportConfig       `yaml:"export"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote            string        `yaml:"remote"`
	Stealth           string        `yaml:"stealth"` // headless | headful
	XvfbDisplay       string        `yaml:"xvfb_display"`
	ResourceBlocking  []string      `yaml:"resource_blocking"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
}

// PageConfig describes the page to expand.
type PageConfig struct {
	URL    string       `yaml:"url"`
	Hide   []string     `yaml:"hide"`
	Tasks  []TaskConfig `yaml:"tasks"`
	Scroll *bool        `yaml:"scroll"` // default true
}

// TaskConfig is one expansion task. BatchSize falls back to the active
// profile's batch size for Kind.
type TaskConfig struct {
	Label     string `yaml:"label"`
	Kind      string `yaml:"kind"` // discussion | comment
	Control   string `yaml:"control"`
	Container string `yaml:"container"`
	BatchSize int    `yaml:"batch_size"`
}

// ExportConfig controls what is written once the page is expanded.
type ExportConfig struct {
	Dir      string `yaml:"dir"`      // empty disables export
	Name     string `yaml:"name"`     // file stem, default "page"
	Region   string `yaml:"region"`   // selector of the exported region, empty = whole body
	Markdown *bool  `yaml:"markdown"` // default true
}

// LoadFile reads a YAML configuration file and fills in defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the built-in configuration for url.
func Default(url string) *Config {
	cfg := &Config{Page: PageConfig{URL: url}}
	cfg.applyDefaults()
	return cfg
}

// Active returns the profile selected by the debug flag.
func (c *Config) Active() Profile {
	if c.Debug {
		return c.Profiles[ProfileDebug]
	}
	return c.Profiles[ProfileNormal]
}

// ScrollEnabled reports whether auto-scroll runs after expansion. Default: true.
func (c *Config) ScrollEnabled() bool {
	return c.Page.Scroll == nil || *c.Page.Scroll
}

// MarkdownEnabled reports whether the export writes a Markdown file. Default: true.
func (c *Config) MarkdownEnabled() bool {
	return c.Export.Markdown == nil || *c.Export.Markdown
}

// Validate checks the fields that have no sensible default.
func (c *Config) Validate() error {
	if c.Page.URL == "" {
		return fmt.Errorf("config: page.url is required")
	}
	for i, t := range c.Page.Tasks {
		if t.Control == "" || t.Container == "" {
			return fmt.Errorf("config: task %d (%s): control and container are required", i, t.Label)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	profiles := map[string]Profile{
		ProfileNormal: NormalProfile(),
		ProfileDebug:  DebugProfile(),
	}
	for name, base := range profiles {
		if p, ok := c.Profiles[name]; ok {
			profiles[name] = p.merge(base)
		}
	}
	c.Profiles = profiles

	if c.Browser.Stealth == "" {
		c.Browser.Stealth = "headless"
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Browser.NavigationTimeout <= 0 {
		c.Browser.NavigationTimeout = 30 * time.Second
	}

	if c.Page.Hide == nil {
		c.Page.Hide = DefaultHide()
	}
	if len(c.Page.Tasks) == 0 {
		c.Page.Tasks = DefaultTasks()
	}
	for i := range c.Page.Tasks {
		t := &c.Page.Tasks[i]
		if t.Kind == "" {
			t.Kind = KindComment
		}
		if t.Label == "" {
			t.Label = t.Kind
		}
	}

	if c.Export.Name == "" {
		c.Export.Name = "page"
	}
}
