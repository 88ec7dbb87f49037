package websocket

import (
	"testing"

	"github.com/searchktools/reactor-server/internal/httpwire"
)

func upgradeRequest() *httpwire.Request {
	req := httpwire.NewRequest()
	req.Method = "GET"
	req.Path = "/ws"
	req.SetHeader("Upgrade", "websocket")
	req.SetHeader("Connection", "Upgrade")
	req.SetHeader("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	return req
}

func TestAcceptKeyMatchesRFC6455Example(t *testing.T) {
	got := AcceptKey("dGhlIHNhbXBsZSBub25jZQ==")
	want := "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
	if got != want {
		t.Errorf("AcceptKey() = %q, want %q", got, want)
	}
}

func TestIsUpgradeRequest(t *testing.T) {
	if !IsUpgradeRequest(upgradeRequest()) {
		t.Error("expected upgrade request to be recognized")
	}

	plain := httpwire.NewRequest()
	plain.Method = "GET"
	plain.Path = "/"
	if IsUpgradeRequest(plain) {
		t.Error("expected plain request to not be recognized as upgrade")
	}
}

func TestHandshakeResponseSetsAcceptHeader(t *testing.T) {
	resp, err := HandshakeResponse(upgradeRequest())
	if err != nil {
		t.Fatalf("HandshakeResponse() error = %v", err)
	}
	if resp.Code != 101 {
		t.Errorf("expected code 101, got %d", resp.Code)
	}

	found := false
	for _, h := range resp.Headers {
		if h.Name == "Sec-WebSocket-Accept" && h.Value == "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected Sec-WebSocket-Accept header, got %+v", resp.Headers)
	}
}

func TestHandshakeResponseRejectsNonUpgrade(t *testing.T) {
	plain := httpwire.NewRequest()
	plain.Method = "GET"
	plain.Path = "/"
	if _, err := HandshakeResponse(plain); err != ErrNotUpgrade {
		t.Errorf("expected ErrNotUpgrade, got %v", err)
	}
}

func TestHandshakeResponseRejectsMissingKey(t *testing.T) {
	req := httpwire.NewRequest()
	req.Method = "GET"
	req.Path = "/ws"
	req.SetHeader("Upgrade", "websocket")
	req.SetHeader("Connection", "Upgrade")
	if _, err := HandshakeResponse(req); err != ErrMissingKey {
		t.Errorf("expected ErrMissingKey, got %v", err)
	}
}
