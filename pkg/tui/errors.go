package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrNoPrompt is returned when the user finishes without describing a
	// template.
	ErrNoPrompt = errors.New("tui: no prompt given")
)
