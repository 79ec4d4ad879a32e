package console

import (
	"fmt"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// Theme defaults.
const (
	DefaultTheme   = "spx"
	DefaultVariant = "dark"
)

// SPXManifest describes the console palette built from the SPX-GC brand
// colors.
func SPXManifest() *theme.Manifest {
	return &theme.Manifest{
		Name:    DefaultTheme,
		Version: "1.0.0",
		Tokens: map[string]string{
			"spx-blue":         "#295aaf",
			"spx-blue-dark":    "#2a3641",
			"spx-blue-darkest": "#2a2b33",
			"spx-gray-dark":    "#414c5a",
			"spx-gray-light":   "#bdc3c7",
			"spx-white":        "#ffffff",
			"spx-black":        "#000000",
			"surface":          "#2a2b33",
			"surface-raised":   "#2a3641",
			"border":           "#414c5a",
			"text":             "#ffffff",
			"text-muted":       "#bdc3c7",
			"accent":           "#295aaf",
		},
		Templates: map[string]string{
			"console.page": "index.tpl",
		},
		Assets: theme.Assets{
			Prefix: "/assets/themes/spx",
			Files: map[string]string{
				"console.favicon": "favicon.svg",
			},
		},
		Variants: map[string]theme.Variant{
			"dark": {
				Tokens: map[string]string{},
			},
			"light": {
				Tokens: map[string]string{
					"surface":        "#ffffff",
					"surface-raised": "#bdc3c7",
					"border":         "#bdc3c7",
					"text":           "#000000",
					"text-muted":     "#414c5a",
				},
			},
		},
	}
}

// PaletteSelector resolves theme/variant names against manifests held in a
// go-theme registry.
type PaletteSelector struct {
	provider       theme.Registry
	defaultTheme   string
	defaultVariant string
}

var _ theme.ThemeSelector = (*PaletteSelector)(nil)

// NewPaletteSelector registers manifests and remembers the defaults used
// when Select receives empty names.
func NewPaletteSelector(defaultTheme, defaultVariant string, manifests ...*theme.Manifest) (*PaletteSelector, error) {
	s := &PaletteSelector{
		provider:       theme.NewRegistry(),
		defaultTheme:   strings.TrimSpace(defaultTheme),
		defaultVariant: strings.TrimSpace(defaultVariant),
	}
	if s.defaultTheme == "" {
		s.defaultTheme = DefaultTheme
	}
	if len(manifests) == 0 {
		manifests = []*theme.Manifest{SPXManifest()}
	}
	for _, manifest := range manifests {
		if manifest == nil {
			continue
		}
		if err := s.provider.Register(manifest); err != nil {
			return nil, fmt.Errorf("console: register theme %q: %w", manifest.Name, err)
		}
	}
	if _, err := s.provider.Get(s.defaultTheme); err != nil {
		return nil, fmt.Errorf("console: default theme %q is not registered: %w", s.defaultTheme, err)
	}
	return s, nil
}

// Select implements theme.ThemeSelector.
func (s *PaletteSelector) Select(name, variant string, opts ...theme.QueryOption) (*theme.Selection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = s.defaultTheme
	}
	variant = strings.TrimSpace(variant)
	if variant == "" {
		variant = s.defaultVariant
	}

	manifest, err := s.provider.Get(name, opts...)
	if err != nil {
		return nil, fmt.Errorf("console: theme %q not found: %w", name, err)
	}
	if variant != "" {
		if _, ok := manifest.Variants[variant]; !ok {
			return nil, fmt.Errorf("console: theme %q has no variant %q", name, variant)
		}
	}
	return &theme.Selection{Theme: name, Variant: variant, Manifest: manifest}, nil
}

// RendererConfig merges base and variant tokens of a selection and derives
// the CSS custom properties the console page uses.
func RendererConfig(selection *theme.Selection) *theme.RendererConfig {
	if selection == nil || selection.Manifest == nil {
		return nil
	}
	manifest := selection.Manifest
	tokens := manifest.TokensForVariant(selection.Variant)
	variant, hasVariant := manifest.Variants[selection.Variant]

	cssVars := make(map[string]string, len(tokens))
	for key, value := range tokens {
		cssVars["--"+key] = value
	}

	partials := make(map[string]string, len(manifest.Templates))
	for key, value := range manifest.Templates {
		partials[key] = value
	}

	files := make(map[string]string, len(manifest.Assets.Files))
	for key, value := range manifest.Assets.Files {
		files[key] = value
	}
	prefix := strings.TrimRight(manifest.Assets.Prefix, "/")
	if hasVariant {
		for key, value := range variant.Assets.Files {
			files[key] = value
		}
		if p := strings.TrimRight(variant.Assets.Prefix, "/"); p != "" {
			prefix = p
		}
	}

	return &theme.RendererConfig{
		Theme:    selection.Theme,
		Variant:  selection.Variant,
		Partials: partials,
		Tokens:   tokens,
		CSSVars:  cssVars,
		AssetURL: func(key string) string {
			file, ok := files[key]
			if !ok || file == "" {
				return ""
			}
			if prefix == "" {
				return file
			}
			return prefix + "/" + file
		},
	}
}
