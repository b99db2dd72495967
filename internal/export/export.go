// Package export turns the DOM of an expanded page into files: the raw
// snapshot, the sanitised HTML of the content region and its Markdown.
//
// The pipeline: raw HTML → parse → select region → sanitise → Markdown.
package export

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Options controls one export.
type Options struct {
	PageURL string // used to resolve relative links in Markdown
	Region  string // selector of the exported region; empty = <body>
}

// Document is an exported page.
type Document struct {
	PageURL  string
	Title    string
	Snapshot []byte // full serialised DOM
	Hash     string // SHA-256 hex of Snapshot
	Regions  int    // elements matched by the region selector
	HTML     string // sanitised region HTML
	Markdown string
}

// Exporter converts snapshots. Safe for concurrent use.
type Exporter struct {
	md     *converter.Converter
	policy *bluemonday.Policy
}

// New creates an Exporter.
func New() *Exporter {
	return &Exporter{
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// Export parses a DOM snapshot and extracts the region. When the region
// selector matches nothing the whole body is exported and Regions is 0.
func (x *Exporter) Export(snapshot []byte, opts Options) (*Document, error) {
	doc, err := html.Parse(bytes.NewReader(snapshot))
	if err != nil {
		return nil, fmt.Errorf("export: parse HTML: %w", err)
	}

	out := &Document{
		PageURL:  opts.PageURL,
		Title:    findTitle(doc),
		Snapshot: snapshot,
		Hash:     HashHTML(snapshot),
	}

	var nodes []*html.Node
	if opts.Region != "" {
		nodes = topLevel(querySelectorAll(doc, opts.Region))
		out.Regions = len(nodes)
	}
	if len(nodes) == 0 {
		if body := findFirst(doc, atom.Body); body != nil {
			nodes = []*html.Node{body}
		} else {
			nodes = []*html.Node{doc}
		}
	}

	var parts []string
	for _, n := range nodes {
		parts = append(parts, renderNode(n))
	}
	out.HTML = x.policy.Sanitize(strings.Join(parts, "\n"))

	md, err := x.md.ConvertString(out.HTML, converter.WithDomain(opts.PageURL))
	if err != nil {
		return nil, fmt.Errorf("export: markdown: %w", err)
	}
	out.Markdown = strings.TrimSpace(md)
	if out.Title != "" && !strings.HasPrefix(out.Markdown, "# ") {
		out.Markdown = "# " + out.Title + "\n\n" + out.Markdown
	}
	return out, nil
}

// WriteFiles writes <name>.snapshot.html, <name>.html and, if markdown is
// set, <name>.md under dir. It returns the written paths.
func (d *Document) WriteFiles(dir, name string, markdown bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: mkdir: %w", err)
	}

	files := []struct {
		path string
		data []byte
	}{
		{filepath.Join(dir, name+".snapshot.html"), d.Snapshot},
		{filepath.Join(dir, name+".html"), []byte(d.HTML)},
	}
	if markdown {
		files = append(files, struct {
			path string
			data []byte
		}{filepath.Join(dir, name+".md"), []byte(d.Markdown + "\n")})
	}

	written := make([]string, 0, len(files))
	for _, f := range files {
		if err := os.WriteFile(f.path, f.data, 0o644); err != nil {
			return written, fmt.Errorf("export: write %s: %w", f.path, err)
		}
		written = append(written, f.path)
	}
	return written, nil
}

// HashHTML returns the SHA-256 hex digest of raw HTML bytes.
func HashHTML(b []byte) string {
	h := sha256.Sum256(b)
	return fmt.Sprintf("%x", h)
}

// topLevel drops nodes nested inside another node of the list, so a region
// is never exported twice.
func topLevel(nodes []*html.Node) []*html.Node {
	set := make(map[*html.Node]bool, len(nodes))
	for _, n := range nodes {
		set[n] = true
	}
	var out []*html.Node
	for _, n := range nodes {
		nested := false
		for p := n.Parent; p != nil; p = p.Parent {
			if set[p] {
				nested = true
				break
			}
		}
		if !nested {
			out = append(out, n)
		}
	}
	return out
}

func findTitle(doc *html.Node) string {
	if t := findFirst(doc, atom.Title); t != nil && t.FirstChild != nil {
		return strings.TrimSpace(t.FirstChild.Data)
	}
	return ""
}

func findFirst(root *html.Node, tag atom.Atom) *html.Node {
	if root.Type == html.ElementNode && root.DataAtom == tag {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := findFirst(c, tag); n != nil {
			return n
		}
	}
	return nil
}

// renderNode serialises an HTML node subtree back to a string.
func renderNode(n *html.Node) string {
	var buf bytes.Buffer
	html.Render(&buf, n)
	return buf.String()
}
