// Package domtest provides an in-memory dom.Page for tests.
//
// A Page holds controls grouped by selector and containers keyed by
// selector. By default activating a control removes it from the page and
// appends a node to the container it was created with, which is what a
// "load more" button does on a real page.
package domtest

import (
	"context"
	"strings"
	"sync"

	"github.com/hazyhaar/expandall/dom"
)

// Page is a scripted dom.Page. Safe for concurrent use.
type Page struct {
	mu         sync.Mutex
	controls   map[string][]*Control
	containers map[string]*container
	queries    map[string]int
	activated  []string
	watchErr   error
	queryErr   []error
}

type container struct {
	added   int
	watches map[*watch]struct{}
}

// New returns an empty Page.
func New() *Page {
	return &Page{
		controls:   make(map[string][]*Control),
		containers: make(map[string]*container),
		queries:    make(map[string]int),
	}
}

// Control is a fake expandable control.
type Control struct {
	Text string

	// OnActivate, if set, replaces the default behaviour. Returning an
	// error simulates a stale or broken control.
	OnActivate func(ctx context.Context, c *Control) error

	page      *Page
	selector  string
	container string
}

// AddContainer registers a container element under selector.
func (p *Page) AddContainer(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.containers[selector]; !ok {
		p.containers[selector] = &container{watches: make(map[*watch]struct{})}
	}
}

// NewControl creates a control matched by selector whose default activation
// removes it and appends a node to containerSel. The control is added to the
// end of the document.
func (p *Page) NewControl(selector, containerSel, text string) *Control {
	c := &Control{Text: text, page: p, selector: selector, container: containerSel}
	p.mu.Lock()
	p.controls[selector] = append(p.controls[selector], c)
	p.mu.Unlock()
	return c
}

// Remove detaches c from the document.
func (p *Page) Remove(c *Control) {
	p.mu.Lock()
	defer p.mu.Unlock()
	list := p.controls[c.selector]
	for i, x := range list {
		if x == c {
			p.controls[c.selector] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Append simulates a node insertion under the container matched by selector
// and notifies every active watch on it.
func (p *Page) Append(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ct, ok := p.containers[selector]
	if !ok {
		return
	}
	ct.added++
	for w := range ct.watches {
		w.fire()
		delete(ct.watches, w)
	}
}

// FailWatches makes every WatchChildList call return err.
func (p *Page) FailWatches(err error) {
	p.mu.Lock()
	p.watchErr = err
	p.mu.Unlock()
}

// FailQueries makes the next len(errs) QueryAll calls return errs in order.
func (p *Page) FailQueries(errs ...error) {
	p.mu.Lock()
	p.queryErr = append(p.queryErr, errs...)
	p.mu.Unlock()
}

// Queries reports how many times selector was queried.
func (p *Page) Queries(selector string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queries[selector]
}

// Count reports how many controls currently match selector.
func (p *Page) Count(selector string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.controls[selector])
}

// Watching reports how many watches are open on the container selector.
func (p *Page) Watching(selector string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ct, ok := p.containers[selector]; ok {
		return len(ct.watches)
	}
	return 0
}

// Activated returns the text of every successfully activated control, in
// activation order.
func (p *Page) Activated() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.activated...)
}

// QueryAll implements dom.Page.
func (p *Page) QueryAll(ctx context.Context, selector string) ([]dom.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries[selector]++
	if len(p.queryErr) > 0 {
		err := p.queryErr[0]
		p.queryErr = p.queryErr[1:]
		return nil, err
	}
	list := p.controls[selector]
	out := make([]dom.Element, len(list))
	for i, c := range list {
		out[i] = c
	}
	return out, nil
}

// WatchChildList implements dom.Page.
func (p *Page) WatchChildList(_ context.Context, selector string) (dom.Watch, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.watchErr != nil {
		return nil, p.watchErr
	}
	ct, ok := p.containers[selector]
	if !ok {
		return nil, dom.ErrNoMatch
	}
	w := &watch{page: p, ct: ct, added: make(chan struct{})}
	ct.watches[w] = struct{}{}
	return w, nil
}

// Activate implements dom.Element.
func (c *Control) Activate(ctx context.Context) error {
	if c.OnActivate != nil {
		if err := c.OnActivate(ctx, c); err != nil {
			return err
		}
	} else {
		if !c.attached() {
			return dom.ErrDetached
		}
		c.page.Remove(c)
		c.page.Append(c.container)
	}
	c.page.mu.Lock()
	c.page.activated = append(c.page.activated, c.Text)
	c.page.mu.Unlock()
	return nil
}

// Expand runs the default activation: detach and append to the container.
// Useful inside OnActivate once a scripted failure has been served.
func (c *Control) Expand() {
	c.page.Remove(c)
	c.page.Append(c.container)
}

// Label implements dom.Element.
func (c *Control) Label(context.Context) string {
	return strings.TrimSpace(c.Text)
}

func (c *Control) attached() bool {
	c.page.mu.Lock()
	defer c.page.mu.Unlock()
	for _, x := range c.page.controls[c.selector] {
		if x == c {
			return true
		}
	}
	return false
}

type watch struct {
	page  *Page
	ct    *container
	added chan struct{}
	once  sync.Once
}

func (w *watch) fire() { w.once.Do(func() { close(w.added) }) }

func (w *watch) Added() <-chan struct{} { return w.added }

func (w *watch) Close() error {
	w.page.mu.Lock()
	delete(w.ct.watches, w)
	w.page.mu.Unlock()
	return nil
}
