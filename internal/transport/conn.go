// Package transport implements the WebSocket server transport: dual
// TLS/plain listeners accepting inbound client connections, each wrapped
// in a Conn that exposes buffered send queues and liveness pings.
package transport

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AvishakeAdhikary/NexRemote/internal/logging"
)

var log = logging.L("transport")

const (
	writeWait      = 10 * time.Second
	pongWait       = 10 * time.Second
	pingPeriod     = 20 * time.Second
	maxMessageSize = 50 * 1024 * 1024
)

// Conn wraps one accepted WebSocket connection. It implements
// session.Sender without importing the session package, keeping transport
// independent of session lifecycle concerns.
type Conn struct {
	ws *websocket.Conn

	sendChan   chan []byte
	binaryChan chan []byte
	closeOnce  sync.Once
	closed     chan struct{}

	RemoteAddr string
}

func newConn(ws *websocket.Conn) *Conn {
	ws.SetReadLimit(maxMessageSize)
	return &Conn{
		ws:         ws,
		sendChan:   make(chan []byte, 64),
		binaryChan: make(chan []byte, 8),
		closed:     make(chan struct{}),
		RemoteAddr: ws.RemoteAddr().String(),
	}
}

// SendText enqueues a JSON text frame. Blocks while the queue is full,
// until space frees up or the connection closes; control-plane messages are small and infrequent compared to
// binary frame streams, which use SendBinary's drop-on-full policy instead.
func (c *Conn) SendText(data []byte) error {
	select {
	case c.sendChan <- data:
		return nil
	case <-c.closed:
		return fmt.Errorf("transport: connection closed")
	}
}

// SendBinary enqueues a binary frame (screen/camera data), dropping it if
// the outbound queue is already full rather than blocking the producer.
func (c *Conn) SendBinary(data []byte) error {
	select {
	case c.binaryChan <- data:
		return nil
	case <-c.closed:
		return fmt.Errorf("transport: connection closed")
	default:
		return fmt.Errorf("transport: binary queue full, frame dropped")
	}
}

// Close shuts down the connection's pumps and underlying socket. Safe to
// call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.ws.Close()
	})
	return nil
}

// ReadLoop blocks reading inbound frames, dispatching text messages to
// onText and binary messages to onBinary, until the connection closes or
// an error occurs. Callers run this on its own goroutine.
func (c *Conn) ReadLoop(onText func([]byte), onBinary func([]byte)) {
	c.ws.SetReadDeadline(time.Now().Add(pingPeriod + pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pingPeriod + pongWait))
		return nil
	})

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("read error", "remote", c.RemoteAddr, "error", err)
			}
			c.Close()
			return
		}

		switch msgType {
		case websocket.TextMessage:
			if onText != nil {
				onText(data)
			}
		case websocket.BinaryMessage:
			if onBinary != nil {
				onBinary(data)
			}
		}
	}
}

// WritePump drains the send queues onto the socket and pings on
// pingPeriod. Callers run this on its own goroutine alongside ReadLoop.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return

		case msg := <-c.sendChan:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Warn("write error", "remote", c.RemoteAddr, "error", err)
				c.Close()
				return
			}

		case frame := <-c.binaryChan:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				log.Warn("binary write error", "remote", c.RemoteAddr, "error", err)
				c.Close()
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
