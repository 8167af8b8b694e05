package types

// Field is the DOM collaborator for a single input-like element.
type Field interface {
	// Attr returns the attribute value and whether the attribute is present.
	Attr(name string) (string, bool)
	SetAttr(name, value string)

	// Tag is the lower-cased element name ("input", "select", "textarea", ...).
	Tag() string
	// Type is the lower-cased type attribute, empty when absent.
	Type() string
	Multiple() bool
	HasClass(name string) bool

	Checked() bool
	SetChecked(checked bool)

	// RawValue is the element's own value, the one a checkbox or radio
	// contributes when checked.
	RawValue() string

	// Peers returns, in document order, the fields of the same enclosing
	// form whose attribute attr equals value. The field itself is included
	// when it matches.
	Peers(attr, value string) []Field

	// Dispatch fires an event on the field; events bubble to its container.
	Dispatch(event string, detail any)
}

// Container holds fields, typically a form.
type Container interface {
	// Fields returns the eligible fields in document order. File inputs are
	// never returned. A field inside an element carrying the exclude
	// attribute is skipped unless a nearer element (or the field itself)
	// carries the include attribute.
	Fields(exclude, include string) []Field

	Dispatch(event string, detail any)
}

// ValueAdapter reads and writes a field's displayed value.
//
// For KindText and KindList the value is a string. KindSelect yields a
// string, KindMultiSelect a []string. For checkables Get returns the raw
// value and Set checks the field when its raw value is a member of the
// given value (a string or list of strings).
type ValueAdapter interface {
	Get(f Field, kind Kind) any
	Set(f Field, kind Kind, value any)
}

// Location exposes the page's URL fragment (without the leading '#').
type Location interface {
	Fragment() string
	SetFragment(fragment string)
}

// Kind is the widget shape of a field, resolved once at bind time.
type Kind int

const (
	KindText Kind = iota
	KindSelect
	KindMultiSelect
	KindCheckbox
	KindRadio
	// KindList is a text-like field explicitly flagged as list valued.
	KindList
)

// Class names and attributes recognised on fields.
const (
	ClassField     = "form-prefill"
	ClassListField = "form-prefill-list"

	AttrKeys      = "data-form-prefill-keys"
	AttrRead      = "data-form-prefill-read"
	AttrWrite     = "data-form-prefill-write"
	AttrValueType = "data-value-type"
)

// KindOf resolves the kind of f. A data-value-type attribute naming
// "checkbox", "radio" or "select" takes precedence over the element's own
// type and tag.
func KindOf(f Field) Kind {
	if vt, ok := f.Attr(AttrValueType); ok {
		switch vt {
		case "checkbox":
			return KindCheckbox
		case "radio":
			return KindRadio
		case "select":
			if f.Multiple() {
				return KindMultiSelect
			}
			return KindSelect
		}
	}
	switch f.Type() {
	case "checkbox":
		return KindCheckbox
	case "radio":
		return KindRadio
	}
	if f.Tag() == "select" {
		if f.Multiple() {
			return KindMultiSelect
		}
		return KindSelect
	}
	if f.HasClass(ClassListField) {
		return KindList
	}
	return KindText
}

// IsList reports whether values of this kind are stored in list format.
func (k Kind) IsList() bool {
	switch k {
	case KindMultiSelect, KindCheckbox, KindRadio, KindList:
		return true
	}
	return false
}

// Checkable reports whether the kind's state is a checked flag.
func (k Kind) Checkable() bool {
	return k == KindCheckbox || k == KindRadio
}

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindSelect:
		return "select"
	case KindMultiSelect:
		return "select-multiple"
	case KindCheckbox:
		return "checkbox"
	case KindRadio:
		return "radio"
	case KindList:
		return "list"
	}
	return "unknown"
}

// Observer is implemented by containers that report events fired on their
// fields. target is the element the event was fired on; it may be the
// container itself or nil when the event has no element target.
type Observer interface {
	Observe(event string, fn func(target Field, detail any))
}
