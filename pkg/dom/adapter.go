package dom

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html"

	"github.com/mesh-intelligence/formprefill/pkg/types"
)

// Adapter reads and writes the displayed value of elements from this
// package. It dispatches on the Kind resolved at bind time.
type Adapter struct{}

// Get returns the field's value: a string for text, list and single
// selects, a []string for multi-selects, and the raw value for checkables.
func (Adapter) Get(f types.Field, kind types.Kind) any {
	e, ok := f.(*Element)
	if !ok {
		return f.RawValue()
	}
	switch kind {
	case types.KindCheckbox, types.KindRadio:
		return e.RawValue()
	case types.KindSelect:
		sel := e.selected()
		if len(sel) == 0 {
			return nil
		}
		return sel[0]
	case types.KindMultiSelect:
		return e.selected()
	}
	if e.Tag() == "select" {
		if sel := e.selected(); len(sel) > 0 {
			return sel[0]
		}
		return nil
	}
	return e.RawValue()
}

// Set applies value to the field. Checkables are checked when their raw
// value is a member of value. Selects mark the matching options selected.
// Lists given to text fields are joined with commas.
func (Adapter) Set(f types.Field, kind types.Kind, value any) {
	e, ok := f.(*Element)
	if !ok {
		return
	}
	vals := toStrings(value)
	switch kind {
	case types.KindCheckbox, types.KindRadio:
		e.SetChecked(slices.Contains(vals, e.RawValue()))
	case types.KindSelect:
		if len(vals) > 1 {
			vals = vals[:1]
		}
		e.selectOptions(vals)
	case types.KindMultiSelect:
		e.selectOptions(vals)
	default:
		if e.Tag() == "select" {
			e.selectOptions(vals)
			return
		}
		e.SetValue(strings.Join(vals, ","))
	}
}

// selected returns the values of the selected options. A single select
// with no explicit selection reports its first option, like a browser.
func (e *Element) selected() []string {
	e.doc.tree.RLock()
	defer e.doc.tree.RUnlock()
	opts := e.options()
	var out []string
	for _, o := range opts {
		if _, ok := attr(o, "selected"); ok {
			out = append(out, optionValue(o))
		}
	}
	_, multiple := attr(e.node, "multiple")
	if len(out) == 0 && !multiple && len(opts) > 0 {
		out = append(out, optionValue(opts[0]))
	}
	return out
}

func (e *Element) selectOptions(vals []string) {
	e.doc.tree.Lock()
	defer e.doc.tree.Unlock()
	for _, o := range e.options() {
		setSelected(o, slices.Contains(vals, optionValue(o)))
	}
}

func setSelected(o *html.Node, selected bool) {
	if selected {
		setAttr(o, "selected", "")
		return
	}
	removeAttr(o, "selected")
}

// toStrings coerces a stored value into a list of strings.
func toStrings(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case bool:
		if v {
			return []string{"on"}
		}
		return nil
	default:
		return []string{fmt.Sprint(v)}
	}
}

var _ types.ValueAdapter = Adapter{}
