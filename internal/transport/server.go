package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

// Accept is called once per accepted connection, on its own goroutine,
// after WritePump has been started; Accept is responsible for running
// ReadLoop. Implementations typically wrap
// the Conn in a session and hand it off to the dispatcher.
type Accept func(conn *Conn)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server runs the two listeners the remote-control protocol exposes: a
// TLS listener for normal clients and a plain-TCP fallback for clients
// that can't validate a self-signed certificate (mirrors the original
// server's secure/insecure WebSocket pair).
type Server struct {
	Accept Accept

	secureSrv   *http.Server
	insecureSrv *http.Server
}

// New creates a Server that will invoke accept for every accepted
// connection on either listener.
func New(accept Accept) *Server {
	return &Server{Accept: accept}
}

// Run starts both listeners and blocks until ctx is cancelled, then shuts
// both down gracefully.
func (s *Server) Run(ctx context.Context, securePort, insecurePort int, cert tls.Certificate) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleUpgrade)

	s.secureSrv = &http.Server{
		Addr:    fmt.Sprintf(":%d", securePort),
		Handler: mux,
		TLSConfig: &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS13,
			MaxVersion:   tls.VersionTLS13,
		},
	}
	s.insecureSrv = &http.Server{
		Addr:    fmt.Sprintf(":%d", insecurePort),
		Handler: mux,
	}

	errCh := make(chan error, 2)
	go func() {
		if err := s.secureSrv.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("secure listener: %w", err)
		}
	}()
	go func() {
		if err := s.insecureSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("insecure listener: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.shutdown()
		return nil
	case err := <-errCh:
		s.shutdown()
		return err
	}
}

func (s *Server) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if s.secureSrv != nil {
		s.secureSrv.Shutdown(shutdownCtx)
	}
	if s.insecureSrv != nil {
		s.insecureSrv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	conn := newConn(ws)
	go conn.WritePump()

	if s.Accept != nil {
		s.Accept(conn)
	}
}
