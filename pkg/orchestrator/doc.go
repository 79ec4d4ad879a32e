// Package orchestrator owns the lifecycle of a template generation request:
// one-shot model initialisation, prompt framing, the bounded inference call,
// document extraction, and the companion descriptor. At most one generation
// runs at a time; the most recent result is kept in a single slot.
package orchestrator
