// Package discovery implements the UDP broadcast responder that lets
// clients find this server on the local network without knowing its
// address ahead of time.
package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"net"

	"github.com/AvishakeAdhikary/NexRemote/internal/logging"
)

var log = logging.L("discovery")

// MagicPrefix identifies a discovery probe datagram. Everything after it
// in the payload is ignored.
var MagicPrefix = []byte("NEXREMOTE_DISCOVER")

// ProtocolVersion is reported in every discovery response.
const ProtocolVersion = "1.0.0"

// Identity is the server information answered back to a discovery probe.
type Identity struct {
	Name          string
	Port          int
	PortInsecure  int
	ID            string
}

// response is the wire shape of a discovery reply.
type response struct {
	Type         string `json:"type"`
	Name         string `json:"name"`
	Port         int    `json:"port"`
	PortInsecure int    `json:"port_insecure"`
	ID           string `json:"id"`
	Version      string `json:"version"`
}

// Responder answers UDP discovery probes with the server's identity.
type Responder struct {
	identity func() Identity
}

// NewResponder creates a Responder. identity is called for each probe so
// a changed pc_name or device_id is reflected without restarting the
// responder.
func NewResponder(identity func() Identity) *Responder {
	return &Responder{identity: identity}
}

// Run binds a UDP socket on port and serves discovery probes until ctx is
// cancelled. A datagram without the magic prefix is ignored, and a read
// error or a failed response send is logged; in each case the loop continues; it never exits except via context cancellation or a
// fatal bind error.
func (r *Responder) Run(ctx context.Context, port int) error {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return err
	}
	defer conn.Close()

	log.Info("discovery responder listening", "port", port)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, 1024)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			log.Warn("discovery read error", "error", err)
			continue
		}

		if !bytes.HasPrefix(buf[:n], MagicPrefix) {
			continue
		}

		log.Info("discovery request received", "from", addr.String())

		id := r.identity()
		body, err := json.Marshal(response{
			Type:         "discovery_response",
			Name:         id.Name,
			Port:         id.Port,
			PortInsecure: id.PortInsecure,
			ID:           id.ID,
			Version:      ProtocolVersion,
		})
		if err != nil {
			log.Error("discovery response marshal failed", "error", err)
			continue
		}

		if _, err := conn.WriteToUDP(body, addr); err != nil {
			log.Warn("discovery response send failed", "to", addr.String(), "error", err)
		}
	}
}
