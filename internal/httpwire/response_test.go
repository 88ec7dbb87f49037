package httpwire

import (
	"bytes"
	"testing"

	"github.com/searchktools/reactor-server/internal/pool"
)

func TestRenderResponseHelloWorldMatchesSpecExample(t *testing.T) {
	resp := OK([]byte("hi"), "text/plain")
	common := []byte("Server: reactor-server\r\nDate: Mon, 02 Jan 2006 15:04:05 GMT\r\n")

	p := pool.New(256)
	buf := p.Get()
	defer buf.Release()

	ok := RenderResponse(buf, common, resp)
	if !ok {
		t.Fatalf("expected render to succeed with ample buffer space")
	}

	got := buf.View()
	wantPrefix := "HTTP/1.1 200 OK\r\n"
	if !bytes.HasPrefix(got, []byte(wantPrefix)) {
		t.Fatalf("expected status line %q, got %q", wantPrefix, got)
	}
	if !bytes.Contains(got, common) {
		t.Fatalf("expected rendered response to contain the common headers block verbatim")
	}
	if !bytes.Contains(got, []byte("Content-Type: text/plain\r\n")) {
		t.Fatalf("expected Content-Type header, got %q", got)
	}
	if !bytes.Contains(got, []byte("Content-Length: 2\r\n")) {
		t.Fatalf("expected Content-Length: 2 header, got %q", got)
	}
	if !bytes.HasSuffix(got, []byte("\r\n\r\nhi")) {
		t.Fatalf("expected body to follow the blank-line terminator, got %q", got)
	}
}

func TestRenderResponseNotFoundEmptyBody(t *testing.T) {
	resp := SharedNotFound()
	common := []byte("Server: reactor-server\r\n")

	p := pool.New(256)
	buf := p.Get()
	defer buf.Release()

	if !RenderResponse(buf, common, resp) {
		t.Fatalf("expected render to succeed")
	}
	got := buf.View()
	if !bytes.HasPrefix(got, []byte("HTTP/1.1 404 Not Found\r\n")) {
		t.Fatalf("unexpected status line: %q", got)
	}
	if !bytes.Contains(got, []byte("Content-Length: 0\r\n")) {
		t.Fatalf("expected Content-Length: 0, got %q", got)
	}
}

func TestRenderResponseReturnsFalseWithoutMutatingOnInsufficientSpace(t *testing.T) {
	resp := OK([]byte("this body is far too long for the tiny buffer"), "text/plain")
	common := []byte("Server: reactor-server\r\n")

	p := pool.New(8)
	buf := p.Get()
	defer buf.Release()

	before := buf.Len()
	ok := RenderResponse(buf, common, resp)
	if ok {
		t.Fatalf("expected render to fail, buffer is far too small")
	}
	if buf.Len() != before {
		t.Fatalf("expected buffer to be untouched on failed render, len changed from %d to %d", before, buf.Len())
	}
}

func TestOutputSizeMatchesActualRenderedLength(t *testing.T) {
	resp := OK([]byte("payload"), "application/json")
	common := []byte("Server: x\r\n")

	p := pool.New(512)
	buf := p.Get()
	defer buf.Release()

	RenderResponse(buf, common, resp)
	if buf.Len() != resp.OutputSize()+len(common) {
		t.Fatalf("expected rendered length %d to equal OutputSize+commonHeaders %d", buf.Len(), resp.OutputSize()+len(common))
	}
}
