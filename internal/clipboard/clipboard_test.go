package clipboard

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/AvishakeAdhikary/NexRemote/internal/dispatch"
	"github.com/AvishakeAdhikary/NexRemote/internal/session"
)

type nullSender struct{}

func (nullSender) SendText(data []byte) error   { return nil }
func (nullSender) SendBinary(data []byte) error { return nil }
func (nullSender) Close() error                 { return nil }

type fakeProvider struct {
	content Content
	setErr  error
}

func (f *fakeProvider) GetContent() (Content, error) { return f.content, nil }
func (f *fakeProvider) SetContent(c Content) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.content = c
	return nil
}

func decode(t *testing.T, raw string) dispatch.Envelope {
	t.Helper()
	env, err := dispatch.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env
}

func TestGetReturnsTextContent(t *testing.T) {
	svc := New(&fakeProvider{content: Content{Type: ContentTypeText, Text: "hello"}})
	sess := session.New(context.Background(), nullSender{})

	resp, err := svc.Handle(context.Background(), sess, decode(t, `{"type":"clipboard","action":"get"}`))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	payload := resp.(map[string]any)
	if payload["text"] != "hello" {
		t.Fatalf("text = %v, want hello", payload["text"])
	}
}

func TestSetTextUpdatesProvider(t *testing.T) {
	provider := &fakeProvider{}
	svc := New(provider)
	sess := session.New(context.Background(), nullSender{})

	_, err := svc.Handle(context.Background(), sess, decode(t, `{"type":"clipboard","action":"set","contentType":"text","text":"world"}`))
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if provider.content.Text != "world" {
		t.Fatalf("content.Text = %q, want world", provider.content.Text)
	}
}

func TestSetImageDecodesBase64(t *testing.T) {
	provider := &fakeProvider{}
	svc := New(provider)
	sess := session.New(context.Background(), nullSender{})

	encoded := base64.StdEncoding.EncodeToString([]byte{0xDE, 0xAD, 0xBE, 0xEF})
	_, err := svc.Handle(context.Background(), sess, decode(t, `{"type":"clipboard","action":"set","contentType":"image","imageFormat":"png","image":"`+encoded+`"}`))
	if err != nil {
		t.Fatalf("set image: %v", err)
	}
	if len(provider.content.Image) != 4 {
		t.Fatalf("image length = %d, want 4", len(provider.content.Image))
	}
}

func TestUnknownActionIsRejected(t *testing.T) {
	svc := New(&fakeProvider{})
	sess := session.New(context.Background(), nullSender{})

	_, err := svc.Handle(context.Background(), sess, decode(t, `{"type":"clipboard","action":"not_real"}`))
	if err == nil {
		t.Fatal("expected error for unknown action")
	}
}
