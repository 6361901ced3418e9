package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T, accept Accept) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		conn := newConn(ws)
		go conn.WritePump()
		if accept != nil {
			accept(conn)
		}
	}))
	return srv
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + srv.URL[len("http"):]
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestServerEchoesTextMessages(t *testing.T) {
	srv := newTestServer(t, func(conn *Conn) {
		go conn.ReadLoop(func(data []byte) {
			conn.SendText(data)
		}, nil)
	})
	defer srv.Close()

	client := dialWS(t, srv)
	defer client.Close()

	if err := client.WriteMessage(websocket.TextMessage, []byte(`{"hello":"world"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != `{"hello":"world"}` {
		t.Fatalf("got %q, want echo", data)
	}
}

func TestServerDeliversBinaryFrames(t *testing.T) {
	var accepted *Conn
	ready := make(chan struct{})
	srv := newTestServer(t, func(conn *Conn) {
		accepted = conn
		close(ready)
		go conn.ReadLoop(nil, nil)
	})
	defer srv.Close()

	client := dialWS(t, srv)
	defer client.Close()
	<-ready

	if err := accepted.SendBinary([]byte{0xDE, 0xAD, 0xBE, 0xEF}); err != nil {
		t.Fatalf("SendBinary: %v", err)
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, data, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if msgType != websocket.BinaryMessage {
		t.Fatalf("msgType = %v, want BinaryMessage", msgType)
	}
	if len(data) != 4 || data[0] != 0xDE {
		t.Fatalf("data = %v, want [DE AD BE EF]", data)
	}
}

func TestConnCloseIsIdempotent(t *testing.T) {
	srv := newTestServer(t, func(conn *Conn) {
		conn.Close()
		conn.Close() // must not panic
	})
	defer srv.Close()

	client := dialWS(t, srv)
	defer client.Close()
	time.Sleep(50 * time.Millisecond)
}
