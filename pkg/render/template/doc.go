// Package template defines the renderer-agnostic template contract used by
// the console pages. The pongo2-backed implementation lives in gotemplate.
package template
