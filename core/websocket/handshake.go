// Package websocket computes the RFC 6455 handshake response for an
// upgrade request already parsed by internal/httpwire. It is
// deliberately synchronous and allocation-light, sized to run inline
// from a connection's event-loop tick rather than on a dedicated
// per-connection goroutine: the reactor never blocks on a read to
// service one connection, and a classic blocking bufio.Reader/Writer
// read/write-pump pair cannot be driven that way without giving every
// upgraded connection its own OS thread, which defeats the
// shared-nothing reactor model this server is built around. A future
// framed-message phase would need a state machine living in
// internal/conn itself to drive the upgraded connection non-blockingly.
package websocket

import (
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/searchktools/reactor-server/internal/httpwire"
)

const acceptMagic = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

var (
	// ErrNotUpgrade reports that the request does not ask for a
	// WebSocket upgrade.
	ErrNotUpgrade = errors.New("websocket: not an upgrade request")
	// ErrMissingKey reports a missing or empty Sec-WebSocket-Key header.
	ErrMissingKey = errors.New("websocket: missing Sec-WebSocket-Key")
)

// IsUpgradeRequest reports whether req carries the Upgrade/Connection
// header pair RFC 6455 requires.
func IsUpgradeRequest(req *httpwire.Request) bool {
	upgrade, _ := req.Header("Upgrade")
	conn, _ := req.Header("Connection")
	return strings.EqualFold(upgrade, "websocket") && headerContainsToken(conn, "upgrade")
}

func headerContainsToken(header, token string) bool {
	for _, part := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}

// AcceptKey computes the Sec-WebSocket-Accept value for clientKey per
// RFC 6455 section 4.2.2.
func AcceptKey(clientKey string) string {
	h := sha1.New()
	h.Write([]byte(clientKey + acceptMagic))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// HandshakeResponse builds the "101 Switching Protocols" response for
// req, or an error if req is not a valid upgrade request. Callers are
// responsible for actually transitioning the owning Connection into a
// framed-message mode afterward — internal/conn.Connection currently
// has no state that does this, so today nothing calls this function
// from the live request path; it exists so that wiring is a
// state-machine change, not a protocol implementation, when that work
// is taken on.
func HandshakeResponse(req *httpwire.Request) (*httpwire.Response, error) {
	if !IsUpgradeRequest(req) {
		return nil, ErrNotUpgrade
	}
	key, _ := req.Header("Sec-WebSocket-Key")
	if key == "" {
		return nil, ErrMissingKey
	}

	resp := httpwire.Respond(101, nil, "")
	resp.Headers = append(resp.Headers,
		httpwire.Header{Name: "Upgrade", Value: "websocket"},
		httpwire.Header{Name: "Connection", Value: "Upgrade"},
		httpwire.Header{Name: "Sec-WebSocket-Accept", Value: AcceptKey(key)},
	)
	return resp, nil
}
