//go:build darwin && !cgo

package clipboard

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

const pbTimeout = 2 * time.Second

// SystemClipboard is the no-CGO build's clipboard accessor. Without cgo
// there's no NSPasteboard binding available, so it shells out to the
// pbcopy/pbpaste utilities every macOS install ships. Only plain text
// round-trips this way; pbcopy/pbpaste have no RTF or image mode.
type SystemClipboard struct{}

func NewSystemClipboard() *SystemClipboard {
	return &SystemClipboard{}
}

func (s *SystemClipboard) GetContent() (Content, error) {
	ctx, cancel := context.WithTimeout(context.Background(), pbTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "pbpaste").Output()
	if err != nil {
		return Content{}, err
	}
	return Content{Type: ContentTypeText, Text: string(out)}, nil
}

func (s *SystemClipboard) SetContent(content Content) error {
	if content.Type != ContentTypeText {
		return errors.New("clipboard: only text is supported without cgo")
	}

	ctx, cancel := context.WithTimeout(context.Background(), pbTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "pbcopy")
	cmd.Stdin = bytes.NewReader([]byte(content.Text))
	return cmd.Run()
}
