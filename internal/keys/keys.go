// Package keys decides which storage keys a field reads from and writes to.
//
// Keys come from, in order of precedence: the data-form-prefill-keys
// attribute (both directions), the separate data-form-prefill-read and
// data-form-prefill-write attributes, and finally a derivation from the
// field's name. Write keys are always kept sorted so that fields meant to act
// as one set (a checkbox group) serialize to the same string. The resolved
// keys are written back onto the field's attributes.
package keys

import (
	"regexp"
	"slices"
	"strings"

	"github.com/mesh-intelligence/formprefill/pkg/types"
)

// bracketSegment matches one "[segment]" of a field name.
var bracketSegment = regexp.MustCompile(`\[([^\]]+)\]`)

// Derive is the default key derivation. A name without bracket segments is
// used as is. Otherwise the last segment is the key, except for checkboxes
// which use the second-to-last segment (the last one usually carries the
// checkbox value) and fall back to the whole name when there are fewer than
// two segments. Fields without a name yield ok == false.
func Derive(f types.Field) (types.Keys, bool) {
	name, _ := f.Attr("name")
	if name == "" {
		return types.Keys{}, false
	}
	segments := bracketSegment.FindAllStringSubmatch(name, -1)
	checkbox := f.Type() == "checkbox"
	if len(segments) == 0 || (checkbox && len(segments) < 2) {
		return types.Keys{Read: name, Write: name}, true
	}
	pick := segments[len(segments)-1]
	if checkbox {
		pick = segments[len(segments)-2]
	}
	return types.Keys{Read: pick[1], Write: pick[1]}, true
}

// ParseList splits a space separated key list. Empty input yields an empty list.
func ParseList(raw string) []string {
	return strings.Fields(raw)
}

// SerializeList joins keys with single spaces.
func SerializeList(keys []string) string {
	return strings.Join(keys, " ")
}

// SortedList parses raw and returns it serialized in lexicographic order.
func SortedList(raw string) string {
	list := ParseList(raw)
	slices.Sort(list)
	return SerializeList(list)
}

// Descriptor holds a field's resolved keys.
type Descriptor struct {
	// Read keys in lookup order, aliases appended.
	Read []string
	// Write keys, sorted.
	Write []string
}

// WriteKey returns the serialized write keys, the identity of a field set.
func (d Descriptor) WriteKey() string {
	return SerializeList(d.Write)
}

// Resolver resolves descriptors for fields. It is safe for concurrent use
// on different fields.
type Resolver struct {
	derive  types.KeyFunc
	aliases map[string][]string
}

// NewResolver builds a resolver from the configuration's derivation hook and
// alias map.
func NewResolver(cfg types.Config) *Resolver {
	cfg = cfg.Clone()
	derive := cfg.StorageKeys
	if derive == nil {
		derive = Derive
	}
	return &Resolver{derive: derive, aliases: cfg.Map}
}

// Resolve computes f's keys and stores them on f's read/write attributes.
func (r *Resolver) Resolve(f types.Field) Descriptor {
	if combined, ok := f.Attr(types.AttrKeys); ok {
		f.SetAttr(types.AttrRead, combined)
		f.SetAttr(types.AttrWrite, SortedList(combined))
	}

	_, hasRead := f.Attr(types.AttrRead)
	write, hasWrite := f.Attr(types.AttrWrite)
	switch {
	case !hasRead && !hasWrite:
		if derived, ok := r.derive(f); ok {
			if derived.Read != "" {
				f.SetAttr(types.AttrRead, derived.Read)
			}
			if derived.Write != "" {
				f.SetAttr(types.AttrWrite, SortedList(derived.Write))
			}
		}
	case hasWrite:
		f.SetAttr(types.AttrWrite, SortedList(write))
	}

	if len(r.aliases) > 0 {
		raw, _ := f.Attr(types.AttrRead)
		read := ParseList(raw)
		var aliases []string
		for _, key := range read {
			aliases = append(aliases, r.aliases[key]...)
		}
		f.SetAttr(types.AttrRead, SerializeList(append(read, aliases...)))
	}

	raw, _ := f.Attr(types.AttrRead)
	write, _ = f.Attr(types.AttrWrite)
	return Descriptor{Read: ParseList(raw), Write: ParseList(write)}
}
