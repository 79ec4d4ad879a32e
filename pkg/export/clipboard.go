package export

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

// ErrClipboardUnsupported is returned on systems without a clipboard utility.
var ErrClipboardUnsupported = errors.New("export: clipboard unsupported on this system")

var writeClipboard = clipboard.WriteAll

// CopyToClipboard writes text to the system clipboard.
func CopyToClipboard(text string) error {
	if clipboard.Unsupported {
		return ErrClipboardUnsupported
	}
	if text == "" {
		return ErrNothingToExport
	}
	if err := writeClipboard(text); err != nil {
		return fmt.Errorf("export: write clipboard: %w", err)
	}
	return nil
}
