// Package store implements the persistence backends and the store set that
// presents them as one Store.
//
// Backends built from a types.Host (session storage, local storage, cookies)
// share one convention: entries live under "<prefix>:<key>" and values are
// JSON encoded. A Set fans writes out to every backend concurrently and races
// reads across them, returning the first value found.
package store
