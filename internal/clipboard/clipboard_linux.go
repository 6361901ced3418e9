//go:build linux

package clipboard

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// clipboardTimeout bounds how long xclip/xsel is given to answer; a
// clipboard manager that's wedged shouldn't be able to stall a handler.
const clipboardTimeout = 2 * time.Second

// imageTargets lists the MIME targets GetContent probes, in the order
// NexRemote prefers them (lossless before lossy, binary before text).
var imageTargets = []struct {
	mime   string
	format string
}{
	{"image/png", "png"},
	{"image/jpeg", "jpeg"},
}

type SystemClipboard struct{}

func NewSystemClipboard() *SystemClipboard {
	return &SystemClipboard{}
}

func (s *SystemClipboard) GetContent() (Content, error) {
	for _, t := range imageTargets {
		if data, err := fetchTarget(t.mime); err == nil && len(data) > 0 {
			return Content{Type: ContentTypeImage, Image: data, ImageFormat: t.format}, nil
		}
	}
	if data, err := fetchTarget("text/rtf"); err == nil && len(data) > 0 {
		return Content{Type: ContentTypeRTF, RTF: data}, nil
	}
	if data, err := fetchTarget("text/plain;charset=utf-8"); err == nil && len(data) > 0 {
		return Content{Type: ContentTypeText, Text: string(data)}, nil
	}

	return Content{}, errors.New("clipboard: no supported format on X11 selection")
}

func (s *SystemClipboard) SetContent(content Content) error {
	switch content.Type {
	case ContentTypeText:
		return pushTarget("text/plain;charset=utf-8", []byte(content.Text))
	case ContentTypeRTF:
		return pushTarget("text/rtf", content.RTF)
	case ContentTypeImage:
		for _, t := range imageTargets {
			if t.format == content.ImageFormat {
				return pushTarget(t.mime, content.Image)
			}
		}
		return errors.New("clipboard: unsupported image format " + content.ImageFormat)
	default:
		return errors.New("clipboard: unsupported content type")
	}
}

// x11SelectionTool finds the clipboard helper installed on this system.
// xclip and xsel take slightly different flags, so callers get back the
// binary path and build their own argv.
func x11SelectionTool() (string, error) {
	if path, err := exec.LookPath("xclip"); err == nil {
		return path, nil
	}
	if path, err := exec.LookPath("xsel"); err == nil {
		return path, nil
	}
	return "", errors.New("clipboard: xclip or xsel required for X11 clipboard access")
}

func fetchTarget(mime string) ([]byte, error) {
	tool, err := x11SelectionTool()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), clipboardTimeout)
	defer cancel()

	var cmd *exec.Cmd
	switch {
	case isXclip(tool):
		cmd = exec.CommandContext(ctx, tool, "-selection", "clipboard", "-t", mime, "-o")
	default:
		cmd = exec.CommandContext(ctx, tool, "-b", "-o", "-t", mime)
	}
	return cmd.Output()
}

func pushTarget(mime string, data []byte) error {
	if len(data) == 0 {
		return errors.New("clipboard: empty data")
	}
	tool, err := x11SelectionTool()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), clipboardTimeout)
	defer cancel()

	var cmd *exec.Cmd
	switch {
	case isXclip(tool):
		cmd = exec.CommandContext(ctx, tool, "-selection", "clipboard", "-t", mime, "-i")
	default:
		cmd = exec.CommandContext(ctx, tool, "-b", "-i", "-t", mime)
	}
	cmd.Stdin = bytes.NewReader(data)
	return cmd.Run()
}

func isXclip(path string) bool {
	return len(path) >= 5 && path[len(path)-5:] == "xclip"
}
