package dom

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Event is delivered to listeners.
type Event struct {
	Name   string
	Target *Element // nil for events dispatched on the document itself
	Detail any
}

// Listener handles an event.
type Listener func(Event)

// Document is a parsed HTML page with a minimal event system: events
// dispatched on an element bubble through its ancestors to the document.
type Document struct {
	root *html.Node

	// tree guards node attributes and children.
	tree sync.RWMutex

	mu        sync.Mutex
	elements  map[*html.Node]*Element
	listeners map[*html.Node]map[string][]Listener
	docLis    map[string][]Listener
	fragment  string
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Document{
		root:      root,
		elements:  make(map[*html.Node]*Element),
		listeners: make(map[*html.Node]map[string][]Listener),
		docLis:    make(map[string][]Listener),
	}, nil
}

// MustParse parses s and panics on error. Intended for tests and fixtures.
func MustParse(s string) *Document {
	d, err := Parse(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return d
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	d.tree.RLock()
	defer d.tree.RUnlock()
	return html.Render(w, d.root)
}

// String renders the document.
func (d *Document) String() string {
	var buf bytes.Buffer
	_ = d.Render(&buf)
	return buf.String()
}

// Fragment returns the URL fragment without '#'.
func (d *Document) Fragment() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fragment
}

// SetFragment replaces the URL fragment. A leading '#' is dropped.
func (d *Document) SetFragment(fragment string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fragment = strings.TrimPrefix(fragment, "#")
}

// element returns the wrapper for n, creating it once.
func (d *Document) element(n *html.Node) *Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.elements[n]; ok {
		return e
	}
	e := &Element{node: n, doc: d}
	d.elements[n] = e
	return e
}

// Body returns the body element, or nil.
func (d *Document) Body() *Element {
	d.tree.RLock()
	defer d.tree.RUnlock()
	if n := find(d.root, func(n *html.Node) bool { return n.DataAtom == atom.Body }); n != nil {
		return d.element(n)
	}
	return nil
}

// Forms returns all form elements in document order.
func (d *Document) Forms() []*Element {
	return d.ByTag("form")
}

// ByTag returns all elements with the given tag name in document order.
func (d *Document) ByTag(tag string) []*Element {
	d.tree.RLock()
	defer d.tree.RUnlock()
	var out []*Element
	walk(d.root, func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, d.element(n))
		}
	})
	return out
}

// ByID returns the element with the given id, or nil.
func (d *Document) ByID(id string) *Element {
	d.tree.RLock()
	defer d.tree.RUnlock()
	n := find(d.root, func(n *html.Node) bool {
		v, ok := attr(n, "id")
		return ok && v == id
	})
	if n == nil {
		return nil
	}
	return d.element(n)
}

// On registers a listener for events reaching the document.
func (d *Document) On(event string, fn Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.docLis[event] = append(d.docLis[event], fn)
}

// Dispatch fires an event on the document itself.
func (d *Document) Dispatch(event string, detail any) {
	d.dispatch(Event{Name: event, Detail: detail}, nil)
}

// on registers a listener on n.
func (d *Document) on(n *html.Node, event string, fn Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listeners[n] == nil {
		d.listeners[n] = make(map[string][]Listener)
	}
	d.listeners[n][event] = append(d.listeners[n][event], fn)
}

// dispatch calls listeners from n up to the document. Listener lists are
// copied first so listeners may dispatch further events.
func (d *Document) dispatch(ev Event, n *html.Node) {
	var chain []Listener
	d.tree.RLock()
	d.mu.Lock()
	for p := n; p != nil; p = p.Parent {
		chain = append(chain, d.listeners[p][ev.Name]...)
	}
	chain = append(chain, d.docLis[ev.Name]...)
	d.mu.Unlock()
	d.tree.RUnlock()

	for _, fn := range chain {
		fn(ev)
	}
}

// walk visits n and its descendants in document order.
func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// find returns the first node in document order matching pred.
func find(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if pred(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if m := find(c, pred); m != nil {
			return m
		}
	}
	return nil
}

// closest returns n or its nearest ancestor matching pred.
func closest(n *html.Node, pred func(*html.Node) bool) *html.Node {
	for p := n; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && pred(p) {
			return p
		}
	}
	return nil
}

// contains reports whether n is a or one of its descendants.
func contains(a, n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == a {
			return true
		}
	}
	return false
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, name, value string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

func removeAttr(n *html.Node, name string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// textContent concatenates the text of n's descendants.
func textContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	})
	return b.String()
}
