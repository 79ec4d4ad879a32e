package tui

import (
	"context"
	"errors"
	"strings"
)

// CustomOption is the select entry that switches to free text.
const CustomOption = "Custom…"

// Option configures a Wizard.
type Option func(*Wizard)

// WithDriver swaps the terminal driver.
func WithDriver(driver PromptDriver) Option {
	return func(w *Wizard) {
		if driver != nil {
			w.driver = driver
		}
	}
}

// Wizard walks the user through describing a template and choosing what to
// do with the result.
type Wizard struct {
	driver   PromptDriver
	examples []string
}

// Exports are the post-generation choices.
type Exports struct {
	Copy bool
	Save bool
	Name string
}

// New builds a wizard that offers examples as starting points.
func New(examples []string, options ...Option) *Wizard {
	w := &Wizard{
		driver:   NewSurveyDriver(),
		examples: append([]string(nil), examples...),
	}
	for _, opt := range options {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// AskPrompt returns an example prompt or a custom description.
func (w *Wizard) AskPrompt(ctx context.Context) (string, error) {
	options := append(append([]string(nil), w.examples...), CustomOption)
	idx, err := w.driver.Select(ctx, SelectConfig{
		Message:  "What should the template show?",
		Options:  options,
		Help:     "Pick an example or choose Custom to describe your own.",
		PageSize: len(options),
	})
	if err != nil {
		return "", err
	}
	if idx >= 0 && idx < len(w.examples) {
		return w.examples[idx], nil
	}

	text, err := w.driver.Input(ctx, InputConfig{
		Message:   "Describe the SPX template you want to generate:",
		Validator: requireText,
	})
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoPrompt
	}
	return text, nil
}

// AskExports asks whether to copy and save the generated template. Save is
// only offered when canSave is set.
func (w *Wizard) AskExports(ctx context.Context, canSave bool, defaultName string) (Exports, error) {
	var out Exports
	copyIt, err := w.driver.Confirm(ctx, ConfirmConfig{Message: "Copy the HTML to the clipboard?"})
	if err != nil {
		return out, err
	}
	out.Copy = copyIt
	if !canSave {
		return out, nil
	}

	save, err := w.driver.Confirm(ctx, ConfirmConfig{Message: "Save into the SPX-GC templates folder?", Default: true})
	if err != nil {
		return out, err
	}
	if !save {
		return out, nil
	}
	name, err := w.driver.Input(ctx, InputConfig{
		Message: "Template name:",
		Default: defaultName,
	})
	if err != nil {
		return out, err
	}
	out.Save = true
	out.Name = strings.TrimSpace(name)
	return out, nil
}

// Info prints a line through the driver.
func (w *Wizard) Info(ctx context.Context, msg string) error {
	return w.driver.Info(ctx, msg)
}

func requireText(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("please describe the template")
	}
	return nil
}
