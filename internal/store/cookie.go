package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mesh-intelligence/formprefill/pkg/types"
)

// Cookie expiry dates are concrete timestamps, so a cookie that should
// never expire gets a fixed date far in the future.
const (
	neverExpires = "Fri, 31 Dec 9999 23:59:59 GMT"
	alreadyGone  = "Thu, 01 Jan 1970 00:00:00 GMT"
)

// CookieStore is a Store over a document cookie jar.
type CookieStore struct {
	jar    types.CookieJar
	prefix string
	domain string
	maxAge time.Duration
	secure bool
	now    func() time.Time
}

// NewCookieStore wraps jar using the prefix and cookie settings of cfg.
func NewCookieStore(jar types.CookieJar, cfg types.Config) *CookieStore {
	return &CookieStore{
		jar:    jar,
		prefix: cfg.Prefix,
		domain: cfg.CookieDomain,
		maxAge: cfg.CookieMaxAge,
		secure: cfg.CookieSecure,
		now:    time.Now,
	}
}

// SetItems writes one cookie per key with path "/".
func (c *CookieStore) SetItems(ctx context.Context, keys []string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	for _, key := range keys {
		line := c.line(c.name(key), encodeComponent(string(data)), c.expires())
		if err := c.jar.SetCookie(line); err != nil {
			return fmt.Errorf("set cookie %q: %w", key, err)
		}
	}
	return nil
}

// RemoveItems expires the cookie of every key.
func (c *CookieStore) RemoveItems(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, key := range keys {
		if err := c.jar.SetCookie(c.line(c.name(key), "", alreadyGone)); err != nil {
			return fmt.Errorf("remove cookie %q: %w", key, err)
		}
	}
	return nil
}

// GetFirst returns the decoded value of the first key with a cookie.
func (c *CookieStore) GetFirst(ctx context.Context, keys []string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := c.jar.Cookie()
	if err != nil {
		return nil, fmt.Errorf("read cookies: %w", err)
	}
	for _, key := range keys {
		raw, ok := lookupCookie(all, c.name(key))
		if !ok {
			continue
		}
		decoded, err := url.PathUnescape(raw)
		if err != nil {
			return nil, fmt.Errorf("unescape cookie %q: %w", key, err)
		}
		var v any
		if err := json.Unmarshal([]byte(decoded), &v); err != nil {
			return nil, fmt.Errorf("decode cookie %q: %w", key, err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("%w in cookies: %s", types.ErrNotFound, strings.Join(keys, ", "))
}

// name returns the encoded cookie name for key.
func (c *CookieStore) name(key string) string {
	return encodeComponent(c.prefix + ":" + key)
}

func (c *CookieStore) expires() string {
	if c.maxAge == 0 {
		return neverExpires
	}
	return c.now().Add(c.maxAge).UTC().Format(http.TimeFormat)
}

func (c *CookieStore) line(name, value, expires string) string {
	var b strings.Builder
	b.WriteString(name + "=" + value)
	b.WriteString("; expires=" + expires)
	b.WriteString("; path=/")
	if c.domain != "" {
		b.WriteString("; domain=" + c.domain)
	}
	if c.secure {
		b.WriteString("; secure")
	}
	return b.String()
}

// lookupCookie finds name in a "a=1; b=2" cookie string. The name is
// matched literally; regexp metacharacters in it are escaped.
func lookupCookie(all, name string) (string, bool) {
	re := regexp.MustCompile(`(?:^|;)\s*` + regexp.QuoteMeta(name) + `\s*=\s*([^;]*)`)
	m := re.FindStringSubmatch(all)
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// encodeComponent percent-encodes s the way encodeURIComponent does for the
// characters that matter in cookies: spaces become %20, not '+'.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

var _ types.Store = (*CookieStore)(nil)
