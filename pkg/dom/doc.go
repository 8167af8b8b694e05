// Package dom is an in-memory HTML document implementing the field,
// container, value-adapter and location collaborators. It backs the CLI,
// which prefills static HTML pages, and the tests of the packages above it.
//
// Properties a browser keeps apart from attributes (value, checked,
// selected) are stored as attributes, so rendering the document shows the
// current state.
package dom
