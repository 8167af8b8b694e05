// Package types defines the Store, Storage, CookieJar and Host contracts, the
// DOM collaborator interfaces (Field, Container, ValueAdapter), the Config
// struct, event names and the standard errors for formprefill.
//
// Persisted layout shared with other tools: every entry is stored under
// "<prefix>:<format>:<key>" where format is the string prefix ("s") or the
// list prefix ("l"), and every value is JSON encoded, plain strings included.
package types
