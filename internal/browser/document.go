package browser

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/expandall/dom"
)

//go:embed watch.js
var watchJS string

const (
	// bindingName is the Runtime binding the injected observers call with
	// their watch ID when new nodes are added.
	bindingName = "__expandall_added"

	unwatchJS = `(id) => {
		const registry = window.__expandall_watches;
		if (registry && registry[id]) {
			registry[id].disconnect();
			delete registry[id];
		}
	}`

	clickJS = `() => {
		if (!this.isConnected) {
			return false;
		}
		this.click();
		return true;
	}`

	labelJS = `() => (this.textContent || "").trim()`

	hideJS = `(selector) => {
		const el = document.querySelector(selector);
		if (!el) {
			return false;
		}
		el.style.setProperty("display", "none");
		return true;
	}`

	scrollJS = `(dy) => {
		window.scrollBy(0, dy);
		const bottom = Math.ceil(window.innerHeight + window.scrollY);
		return bottom >= document.documentElement.scrollHeight;
	}`
)

// unwatchTimeout bounds the teardown call of a watch.
const unwatchTimeout = 2 * time.Second

// Document exposes a tab's live DOM as a dom.Page. Mutation watches are
// MutationObservers injected in the page; they report back through a
// Runtime binding, dispatched here by watch ID.
type Document struct {
	page   *rod.Page
	logger *slog.Logger
	stop   context.CancelFunc

	mu      sync.Mutex
	watches map[string]*watch
	seq     atomic.Uint64
}

var _ dom.Page = (*Document)(nil)

// NewDocument installs the binding on tab and starts listening for watch
// notifications until ctx ends or Close is called.
func NewDocument(ctx context.Context, tab *Tab, logger *slog.Logger) (*Document, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(tab.Page); err != nil {
		return nil, fmt.Errorf("browser: add binding: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	d := &Document{
		page:    tab.Page,
		logger:  logger,
		stop:    cancel,
		watches: make(map[string]*watch),
	}

	wait := tab.Page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}
		d.notify(e.Payload)
	})
	go wait()

	return d, nil
}

// Close stops the binding listener. Open watches never fire afterwards.
func (d *Document) Close() {
	d.stop()
	d.mu.Lock()
	d.watches = make(map[string]*watch)
	d.mu.Unlock()
}

// QueryAll implements dom.Page.
func (d *Document) QueryAll(ctx context.Context, selector string) ([]dom.Element, error) {
	els, err := d.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: query %q: %w", selector, err)
	}
	out := make([]dom.Element, len(els))
	for i, el := range els {
		out[i] = &element{el: el}
	}
	return out, nil
}

// WatchChildList implements dom.Page.
func (d *Document) WatchChildList(ctx context.Context, selector string) (dom.Watch, error) {
	w := &watch{
		id:    "w" + strconv.FormatUint(d.seq.Add(1), 10),
		doc:   d,
		added: make(chan struct{}),
	}

	// Register first: the observer may fire before Eval returns.
	d.mu.Lock()
	d.watches[w.id] = w
	d.mu.Unlock()

	res, err := d.page.Context(ctx).Eval(watchJS, w.id, selector)
	if err != nil {
		d.forget(w.id)
		return nil, fmt.Errorf("browser: watch %q: %w", selector, err)
	}
	if !res.Value.Bool() {
		d.forget(w.id)
		return nil, dom.ErrNoMatch
	}
	return w, nil
}

// Hide sets display:none on the first element matching selector. It
// reports whether an element was found.
func (d *Document) Hide(ctx context.Context, selector string) (bool, error) {
	res, err := d.page.Context(ctx).Eval(hideJS, selector)
	if err != nil {
		return false, fmt.Errorf("browser: hide %q: %w", selector, err)
	}
	return res.Value.Bool(), nil
}

// ScrollBy scrolls the window by dy pixels and reports whether the
// viewport reached the bottom of the document.
func (d *Document) ScrollBy(ctx context.Context, dy int) (bool, error) {
	res, err := d.page.Context(ctx).Eval(scrollJS, dy)
	if err != nil {
		return false, fmt.Errorf("browser: scroll: %w", err)
	}
	return res.Value.Bool(), nil
}

func (d *Document) notify(id string) {
	d.mu.Lock()
	w, ok := d.watches[id]
	delete(d.watches, id)
	d.mu.Unlock()
	if ok {
		w.fire()
	}
}

func (d *Document) forget(id string) {
	d.mu.Lock()
	delete(d.watches, id)
	d.mu.Unlock()
}

type watch struct {
	id        string
	doc       *Document
	added     chan struct{}
	fired     sync.Once
	closeOnce sync.Once
}

func (w *watch) fire() { w.fired.Do(func() { close(w.added) }) }

func (w *watch) Added() <-chan struct{} { return w.added }

// Close disconnects the injected observer. The page may already be gone,
// in which case the error is only logged.
func (w *watch) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.doc.forget(w.id)
		select {
		case <-w.added:
			return // the observer disconnected itself
		default:
		}
		ctx, cancel := context.WithTimeout(context.Background(), unwatchTimeout)
		defer cancel()
		if _, err = w.doc.page.Context(ctx).Eval(unwatchJS, w.id); err != nil {
			w.doc.logger.Debug("browser: unwatch failed", "id", w.id, "error", err)
		}
	})
	return err
}

type element struct {
	el *rod.Element
}

func (e *element) Activate(ctx context.Context) error {
	res, err := e.el.Context(ctx).Eval(clickJS)
	if err != nil {
		return fmt.Errorf("browser: click: %w", err)
	}
	if !res.Value.Bool() {
		return dom.ErrDetached
	}
	return nil
}

func (e *element) Label(ctx context.Context) string {
	res, err := e.el.Context(ctx).Eval(labelJS)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}
