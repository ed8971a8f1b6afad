package canvas

import (
	"errors"

	"github.com/atotto/clipboard"
)

// SystemClipboard writes copied captions to the operating system clipboard.
type SystemClipboard struct{}

// WriteText replaces the clipboard content with text.
func (SystemClipboard) WriteText(text string) error {
	if clipboard.Unsupported {
		return errors.New("clipboard: no clipboard utility available")
	}
	return clipboard.WriteAll(text)
}
