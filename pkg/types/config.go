package types

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Config holds the settings shared by a store set and the bindings created
// in one attach call. It is passed by value; constructors copy the maps and
// slices they keep.
type Config struct {
	// Prefix namespaces every entry written by the built-in backends.
	Prefix       string `mapstructure:"prefix" yaml:"prefix" json:"prefix"`
	StringPrefix string `mapstructure:"string_prefix" yaml:"string_prefix" json:"string_prefix"`
	ListPrefix   string `mapstructure:"list_prefix" yaml:"list_prefix" json:"list_prefix"`

	// Stores lists backend names in read-priority order.
	Stores []string `mapstructure:"stores" yaml:"stores" json:"stores"`

	CookieDomain string `mapstructure:"cookie_domain" yaml:"cookie_domain" json:"cookie_domain"`
	// CookieMaxAge of zero means the cookie never expires.
	CookieMaxAge time.Duration `mapstructure:"cookie_max_age" yaml:"cookie_max_age" json:"cookie_max_age"`
	CookieSecure bool          `mapstructure:"cookie_secure" yaml:"cookie_secure" json:"cookie_secure"`

	// Map lists alias keys appended to a field's read keys.
	Map map[string][]string `mapstructure:"map" yaml:"map" json:"map"`

	// Exclude and Include name the marker attributes used by field discovery.
	Exclude string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	Include string `mapstructure:"include" yaml:"include" json:"include"`

	Redis RedisConfig `mapstructure:"redis" yaml:"redis" json:"redis"`

	// DataDir and SessionID configure a durable host (the sqlite backend).
	// An empty SessionID gives every attach a fresh, discarded session.
	DataDir   string `mapstructure:"data_dir" yaml:"data_dir,omitempty" json:"data_dir,omitempty"`
	SessionID string `mapstructure:"session_id" yaml:"session_id,omitempty" json:"session_id,omitempty"`

	// StorageKeys derives a field's keys when it carries no explicit key
	// attributes. Nil selects the bracket-name convention.
	StorageKeys KeyFunc `mapstructure:"-" yaml:"-" json:"-"`
}

// RedisConfig configures the "redis" backend.
type RedisConfig struct {
	Addr string        `mapstructure:"addr" yaml:"addr" json:"addr"`
	DB   int           `mapstructure:"db" yaml:"db" json:"db"`
	TTL  time.Duration `mapstructure:"ttl" yaml:"ttl" json:"ttl"`
}

// Keys is the result of a key derivation: space separated read and write
// key lists. An empty string means "not derived".
type Keys struct {
	Read  string
	Write string
}

// KeyFunc derives keys for a field. ok is false when nothing can be derived.
type KeyFunc func(f Field) (keys Keys, ok bool)

// Defaults.
const (
	DefaultPrefix       = "formPrefill"
	DefaultStringPrefix = "s"
	DefaultListPrefix   = "l"
	DefaultExclude      = "data-form-prefill-exclude"
	DefaultInclude      = "data-form-prefill-include"
)

// Config validation errors.
var (
	ErrPrefixEmpty       = errors.New("prefix must not be empty")
	ErrFormatPrefixEmpty = errors.New("string and list prefixes must not be empty")
	ErrFormatPrefixSame  = errors.New("string and list prefixes must differ")
	ErrUnknownStore      = errors.New("unknown store")
	ErrCookieMaxAge      = errors.New("cookie max age must not be negative")
	ErrRedisAddrEmpty    = errors.New("redis store requires redis.addr")
)

// knownStores lists the backend names Validate accepts.
var knownStores = map[string]bool{
	StoreSession: true,
	StoreLocal:   true,
	StoreCookie:  true,
	StoreRedis:   true,
}

// DefaultConfig returns the configuration used when nothing is overridden:
// session storage only, secure cookies that never expire.
func DefaultConfig() Config {
	return Config{
		Prefix:       DefaultPrefix,
		StringPrefix: DefaultStringPrefix,
		ListPrefix:   DefaultListPrefix,
		Stores:       []string{StoreSession},
		CookieSecure: true,
		Exclude:      DefaultExclude,
		Include:      DefaultInclude,
	}
}

// Validate checks that the Config is well-formed. It returns a sentinel
// error from this package on failure.
func (c Config) Validate() error {
	if c.Prefix == "" {
		return ErrPrefixEmpty
	}
	if c.StringPrefix == "" || c.ListPrefix == "" {
		return ErrFormatPrefixEmpty
	}
	if c.StringPrefix == c.ListPrefix {
		return ErrFormatPrefixSame
	}
	if c.CookieMaxAge < 0 {
		return ErrCookieMaxAge
	}
	for _, name := range c.Stores {
		if !knownStores[name] {
			return fmt.Errorf("%w: %q", ErrUnknownStore, name)
		}
		if name == StoreRedis && c.Redis.Addr == "" {
			return ErrRedisAddrEmpty
		}
	}
	return nil
}

// Clone returns a copy that shares no maps or slices with c.
func (c Config) Clone() Config {
	out := c
	out.Stores = slices.Clone(c.Stores)
	if c.Map != nil {
		out.Map = make(map[string][]string, len(c.Map))
		for k, v := range c.Map {
			out.Map[k] = slices.Clone(v)
		}
	}
	return out
}
