// Package descriptor builds the JSON field-configuration document that
// accompanies every generated SPX-GC template.
//
// The descriptor is a static substitution: it records the prompt the template
// was generated from and an empty DataFields list. Field metadata is not
// derived from the generated HTML; operators fill DataFields in SPX-GC when
// they wire the template to their rundown.
package descriptor

import (
	"bytes"
	"encoding/json"
	"strings"
)

// DefaultDescription is the description stamped on every descriptor.
const DefaultDescription = "Generated template based on user prompt"

// Descriptor mirrors the SPX-GC template definition fields produced alongside
// a generated template.
type Descriptor struct {
	Description string      `json:"description"`
	Prompt      string      `json:"prompt"`
	DataFields  []DataField `json:"DataFields"`
}

// DataField describes a single SPX-GC input field (textfield, dropdown, ...).
type DataField struct {
	Field string `json:"field"`
	FType string `json:"ftype"`
	Title string `json:"title"`
	Value string `json:"value"`
}

// New returns the descriptor for the supplied prompt. DataFields is always
// an empty, non-nil list so it serialises as [].
func New(userText string) Descriptor {
	return Descriptor{
		Description: DefaultDescription,
		Prompt:      strings.TrimSpace(userText),
		DataFields:  []DataField{},
	}
}

// Build renders the descriptor for userText as indented JSON.
func Build(userText string) string {
	out, err := New(userText).Marshal()
	if err != nil {
		// Descriptor only holds strings, encoding cannot fail.
		return "{}"
	}
	return string(out)
}

// Marshal encodes the descriptor with two-space indentation. HTML characters
// in the prompt are kept as-is rather than escaped to < sequences.
func (d Descriptor) Marshal() ([]byte, error) {
	if d.DataFields == nil {
		d.DataFields = []DataField{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Parse decodes a descriptor document.
func Parse(data []byte) (Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return Descriptor{}, err
	}
	if d.DataFields == nil {
		d.DataFields = []DataField{}
	}
	return d, nil
}
