// Package clipboard implements the clipboard message type, proxying
// get/set requests to the host's native clipboard through a
// platform-specific Provider.
package clipboard

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/AvishakeAdhikary/NexRemote/internal/dispatch"
	"github.com/AvishakeAdhikary/NexRemote/internal/session"
)

type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeRTF   ContentType = "rtf"
	ContentTypeImage ContentType = "image"
)

// Content is the clipboard payload exchanged with a Provider, normalized
// across platforms into one of the three supported types.
type Content struct {
	Type        ContentType
	Text        string
	RTF         []byte
	Image       []byte
	ImageFormat string
}

// Provider reads and writes the host's native clipboard. Each platform
// supplies its own implementation via NewSystemClipboard.
type Provider interface {
	GetContent() (Content, error)
	SetContent(content Content) error
}

// Service wires a Provider into the clipboard message type.
type Service struct {
	provider Provider
}

// New returns a clipboard Service backed by provider. A nil provider
// falls back to the host's default SystemClipboard implementation.
func New(provider Provider) *Service {
	if provider == nil {
		provider = NewSystemClipboard()
	}
	return &Service{provider: provider}
}

// Register binds the clipboard message type to this Service. Clipboard
// access is in-memory/OS-API work, not blocking I/O, so it runs inline
// like the other control-plane message types.
func (s *Service) Register(router *dispatch.Router) {
	router.Register("clipboard", false, s.Handle)
}

// Handle dispatches one clipboard action: get or set.
func (s *Service) Handle(ctx context.Context, sess *session.ClientSession, env dispatch.Envelope) (any, error) {
	switch env.Action {
	case "get":
		return s.get()
	case "set":
		return nil, s.set(env)
	default:
		return nil, fmt.Errorf("clipboard: unknown action %q", env.Action)
	}
}

func (s *Service) get() (any, error) {
	content, err := s.provider.GetContent()
	if err != nil {
		return nil, err
	}

	payload := map[string]any{"type": "clipboard_content", "contentType": string(content.Type)}
	switch content.Type {
	case ContentTypeText:
		payload["text"] = content.Text
	case ContentTypeRTF:
		payload["rtf"] = base64.StdEncoding.EncodeToString(content.RTF)
	case ContentTypeImage:
		payload["image"] = base64.StdEncoding.EncodeToString(content.Image)
		payload["imageFormat"] = content.ImageFormat
	}
	return payload, nil
}

func (s *Service) set(env dispatch.Envelope) error {
	contentType := ContentType(env.GetString("contentType", string(ContentTypeText)))

	switch contentType {
	case ContentTypeText:
		return s.provider.SetContent(Content{Type: ContentTypeText, Text: env.GetString("text", "")})
	case ContentTypeRTF:
		data, err := base64.StdEncoding.DecodeString(env.GetString("rtf", ""))
		if err != nil {
			return fmt.Errorf("decode rtf: %w", err)
		}
		return s.provider.SetContent(Content{Type: ContentTypeRTF, RTF: data})
	case ContentTypeImage:
		data, err := base64.StdEncoding.DecodeString(env.GetString("image", ""))
		if err != nil {
			return fmt.Errorf("decode image: %w", err)
		}
		return s.provider.SetContent(Content{
			Type:        ContentTypeImage,
			Image:       data,
			ImageFormat: env.GetString("imageFormat", "png"),
		})
	default:
		return fmt.Errorf("clipboard: unsupported contentType %q", contentType)
	}
}
