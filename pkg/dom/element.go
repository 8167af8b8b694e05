package dom

import (
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/mesh-intelligence/formprefill/pkg/types"
)

// Element wraps an element node of a Document.
type Element struct {
	node *html.Node
	doc  *Document
}

// Attr returns an attribute value.
func (e *Element) Attr(name string) (string, bool) {
	e.doc.tree.RLock()
	defer e.doc.tree.RUnlock()
	return attr(e.node, name)
}

// SetAttr sets an attribute.
func (e *Element) SetAttr(name, value string) {
	e.doc.tree.Lock()
	defer e.doc.tree.Unlock()
	setAttr(e.node, name, value)
}

// RemoveAttr removes an attribute.
func (e *Element) RemoveAttr(name string) {
	e.doc.tree.Lock()
	defer e.doc.tree.Unlock()
	removeAttr(e.node, name)
}

// Tag returns the element name.
func (e *Element) Tag() string {
	return e.node.Data
}

// Type returns the lower-cased type attribute.
func (e *Element) Type() string {
	v, _ := e.Attr("type")
	return strings.ToLower(v)
}

// Multiple reports whether the multiple attribute is present.
func (e *Element) Multiple() bool {
	_, ok := e.Attr("multiple")
	return ok
}

// HasClass reports whether the class attribute lists name.
func (e *Element) HasClass(name string) bool {
	v, _ := e.Attr("class")
	return slices.Contains(strings.Fields(v), name)
}

// Checked reports whether the checked attribute is present.
func (e *Element) Checked() bool {
	_, ok := e.Attr("checked")
	return ok
}

// SetChecked adds or removes the checked attribute.
func (e *Element) SetChecked(checked bool) {
	if checked {
		e.SetAttr("checked", "")
		return
	}
	e.RemoveAttr("checked")
}

// RawValue returns the element's value: the text of a textarea, the value
// attribute otherwise. Checkboxes and radios without a value attribute
// report "on".
func (e *Element) RawValue() string {
	e.doc.tree.RLock()
	defer e.doc.tree.RUnlock()
	return rawValue(e.node)
}

func rawValue(n *html.Node) string {
	if n.DataAtom == atom.Textarea {
		return textContent(n)
	}
	v, ok := attr(n, "value")
	if !ok && n.DataAtom == atom.Input {
		if t, _ := attr(n, "type"); strings.EqualFold(t, "checkbox") || strings.EqualFold(t, "radio") {
			return "on"
		}
	}
	return v
}

// SetValue replaces the element's value.
func (e *Element) SetValue(value string) {
	e.doc.tree.Lock()
	defer e.doc.tree.Unlock()
	if e.node.DataAtom == atom.Textarea {
		for c := e.node.FirstChild; c != nil; {
			next := c.NextSibling
			e.node.RemoveChild(c)
			c = next
		}
		e.node.AppendChild(&html.Node{Type: html.TextNode, Data: value})
		return
	}
	setAttr(e.node, "value", value)
}

// Form returns the nearest enclosing form, or nil.
func (e *Element) Form() *Element {
	e.doc.tree.RLock()
	n := closest(e.node, func(n *html.Node) bool { return n.DataAtom == atom.Form })
	e.doc.tree.RUnlock()
	if n == nil {
		return nil
	}
	return e.doc.element(n)
}

// Peers returns the elements of the enclosing form (the whole document when
// there is none) whose attribute attr equals value, in document order.
func (e *Element) Peers(name, value string) []types.Field {
	e.doc.tree.RLock()
	defer e.doc.tree.RUnlock()

	scope := closest(e.node, func(n *html.Node) bool { return n.DataAtom == atom.Form })
	if scope == nil {
		scope = e.doc.root
	}
	var out []types.Field
	walk(scope, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		if v, ok := attr(n, name); ok && v == value {
			out = append(out, e.doc.element(n))
		}
	})
	return out
}

// Fields returns the eligible fields inside e: inputs (except file
// inputs), selects, textareas and elements classed form-prefill or
// form-prefill-list. A field is skipped when its nearest ancestor-or-self
// carrying the exclude attribute is not overridden by a nearer one carrying
// the include attribute.
func (e *Element) Fields(exclude, include string) []types.Field {
	e.doc.tree.RLock()
	defer e.doc.tree.RUnlock()

	var out []types.Field
	walk(e.node, func(n *html.Node) {
		if n == e.node || !isField(n) {
			return
		}
		if excluded(n, exclude, include) {
			return
		}
		out = append(out, e.doc.element(n))
	})
	return out
}

// On registers a listener for events dispatched on e or its descendants.
func (e *Element) On(event string, fn Listener) {
	e.doc.on(e.node, event, fn)
}

// Dispatch fires an event on e; it bubbles to the document.
func (e *Element) Dispatch(event string, detail any) {
	e.doc.dispatch(Event{Name: event, Target: e, Detail: detail}, e.node)
}

// options returns the option elements of a select.
func (e *Element) options() []*html.Node {
	var out []*html.Node
	walk(e.node, func(n *html.Node) {
		if n.DataAtom == atom.Option {
			out = append(out, n)
		}
	})
	return out
}

func optionValue(n *html.Node) string {
	if v, ok := attr(n, "value"); ok {
		return v
	}
	return strings.TrimSpace(textContent(n))
}

func isField(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Input:
		t, _ := attr(n, "type")
		return !strings.EqualFold(t, "file")
	case atom.Select, atom.Textarea:
		return true
	}
	class, _ := attr(n, "class")
	classes := strings.Fields(class)
	return slices.Contains(classes, types.ClassField) || slices.Contains(classes, types.ClassListField)
}

func excluded(n *html.Node, exclude, include string) bool {
	if exclude == "" {
		return false
	}
	ex := closest(n, func(p *html.Node) bool { _, ok := attr(p, exclude); return ok })
	if ex == nil {
		return false
	}
	if include == "" {
		return true
	}
	in := closest(n, func(p *html.Node) bool { _, ok := attr(p, include); return ok })
	return in == nil || contains(in, ex)
}

var (
	_ types.Field     = (*Element)(nil)
	_ types.Container = (*Element)(nil)
	_ types.Observer  = (*Element)(nil)
	_ types.Location  = (*Document)(nil)
)

// Observe adapts On to the field-level observer contract.
func (e *Element) Observe(event string, fn func(target types.Field, detail any)) {
	e.On(event, func(ev Event) {
		var target types.Field
		if ev.Target != nil {
			target = ev.Target
		}
		fn(target, ev.Detail)
	})
}
