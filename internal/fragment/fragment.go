// Package fragment imports prefill values passed in a page's URL fragment.
//
// A fragment is a ';' separated list of parts. Parts starting with "p:"
// carry '&' separated key=value pairs with percent-encoded values; they are
// consumed. Every other part is kept, in order, in the cleaned fragment.
package fragment

import (
	"context"
	"net/url"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/mesh-intelligence/formprefill/pkg/types"
)

// Marker starts a prefill part. Keys may repeat it for compatibility with
// older links.
const Marker = "p:"

// Parsed is the result of Parse.
type Parsed struct {
	// Fragment is the input without its prefill parts.
	Fragment string
	// Values holds every value per key in encounter order.
	Values map[string][]string
	// Prefill reports whether at least one prefill part was present.
	Prefill bool
}

// Parse splits fragment into prefill values and the remaining parts. A
// leading '#' is ignored. Pairs without '=' or with an empty key are
// skipped; values that are not valid percent-encoding are kept as is.
func Parse(fragment string) Parsed {
	fragment = strings.TrimPrefix(fragment, "#")
	out := Parsed{Values: make(map[string][]string)}
	if fragment == "" {
		return out
	}

	var kept []string
	for _, part := range strings.Split(fragment, ";") {
		rest, ok := strings.CutPrefix(part, Marker)
		if !ok {
			kept = append(kept, part)
			continue
		}
		out.Prefill = true
		for _, pair := range strings.Split(rest, "&") {
			key, raw, ok := strings.Cut(pair, "=")
			if !ok {
				continue
			}
			key = strings.TrimPrefix(key, Marker)
			if key == "" {
				continue
			}
			value, err := url.PathUnescape(raw)
			if err != nil {
				value = raw
			}
			out.Values[key] = append(out.Values[key], value)
		}
	}
	out.Fragment = strings.Join(kept, ";")
	return out
}

// ValuesSetter stores parsed values; *store.Set implements it.
type ValuesSetter interface {
	SetValuesMap(ctx context.Context, values map[string][]string) error
}

// Dispatcher receives the completion event.
type Dispatcher interface {
	Dispatch(event string, detail any)
}

// Import is a running fragment import.
type Import struct {
	Parsed

	done chan struct{}
	err  error
}

// Start parses fragment and, when it has prefill parts, stores the values
// in the background. When the store settles, successfully or not,
// EventHashStored is dispatched on target and Done is closed. Without
// prefill parts Done is closed immediately and nothing is dispatched.
func Start(ctx context.Context, fragment string, setter ValuesSetter, target Dispatcher, logger log.Logger) *Import {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	imp := &Import{Parsed: Parse(fragment), done: make(chan struct{})}
	if !imp.Prefill {
		close(imp.done)
		return imp
	}

	go func() {
		defer close(imp.done)
		imp.err = setter.SetValuesMap(ctx, imp.Values)
		if imp.err != nil {
			level.Warn(logger).Log("msg", "fragment values not fully stored", "keys", len(imp.Values), "err", imp.err)
		} else {
			level.Debug(logger).Log("msg", "fragment values stored", "keys", len(imp.Values))
		}
		if target != nil {
			target.Dispatch(types.EventHashStored, imp.err)
		}
	}()
	return imp
}

// Done is closed once the values are stored.
func (i *Import) Done() <-chan struct{} {
	return i.done
}

// Err returns the store error. It is only meaningful after Done is closed.
func (i *Import) Err() error {
	select {
	case <-i.done:
		return i.err
	default:
		return nil
	}
}

// Wait blocks until the import settles or ctx ends.
func (i *Import) Wait(ctx context.Context) error {
	select {
	case <-i.done:
		return i.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
