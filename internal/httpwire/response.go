package httpwire

import (
	"strconv"

	"github.com/searchktools/reactor-server/internal/pool"
)

// Header is one response header in render order. A slice rather than a
// map keeps rendering deterministic and allocation-free for the common
// case of one or two headers.
type Header struct {
	Name  string
	Value string
}

// Response carries a status code, headers, and a body. Content-Length
// always reflects the body length — every constructor below sets it,
// and nothing else in this package is allowed to set it independently.
//
// A response may instead carry a file-backed body: FilePath non-empty
// means RenderResponse renders only the status line and headers into
// buf, and the caller (internal/reactor's ResponseWriterService) is
// responsible for sending FileSize bytes of FilePath starting at
// FileOffset via the platform sendfile syscall once the header block
// is flushed. Body and FilePath are mutually exclusive.
type Response struct {
	Code    int
	Headers []Header
	Body    []byte

	FilePath   string
	FileOffset int64
	FileSize   int64

	fileSent    int64
	headersSent bool
	statusLine  string
}

// FileSent reports how many bytes of a file-backed body have already
// gone out via sendfile — ResponseWriterService resumes from here on
// the next writable event rather than re-sending from the start.
func (r *Response) FileSent() int64 { return r.fileSent }

// AdvanceFileSent records n additional sendfile'd bytes.
func (r *Response) AdvanceFileSent(n int64) { r.fileSent += n }

// FileDone reports whether the entire file body has been sent.
func (r *Response) FileDone() bool { return r.fileSent >= r.FileSize }

// HeadersSent and MarkHeadersSent track whether a file-backed
// response's status line and headers have already been rendered into
// a connection's write buffer, so ResponseWriterService knows to go
// straight to sendfile on a retried tick instead of rendering again.
func (r *Response) HeadersSent() bool { return r.headersSent }
func (r *Response) MarkHeadersSent()   { r.headersSent = true }

var statusText = map[int]string{
	200: "OK",
	201: "Created",
	204: "No Content",
	301: "Moved Permanently",
	302: "Found",
	304: "Not Modified",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	413: "Payload Too Large",
	429: "Too Many Requests",
	500: "Internal Server Error",
	502: "Bad Gateway",
	503: "Service Unavailable",
}

func statusLineFor(code int) string {
	text, ok := statusText[code]
	if !ok {
		text = "Unknown"
	}
	return "HTTP/1.1 " + strconv.Itoa(code) + " " + text + "\r\n"
}

// newResponse builds a Response with Content-Length already set from
// the body, and an optional Content-Type header.
func newResponse(code int, body []byte, contentType string) *Response {
	r := &Response{
		Code:       code,
		Body:       body,
		statusLine: statusLineFor(code),
	}
	if contentType != "" {
		r.Headers = append(r.Headers, Header{Name: HeaderContentType, Value: contentType})
	}
	r.Headers = append(r.Headers, Header{Name: HeaderContentLength, Value: strconv.Itoa(len(body))})
	return r
}

// OK builds a 200 response. contentType is optional; pass "" to omit
// the header.
func OK(body []byte, contentType string) *Response {
	return newResponse(200, body, contentType)
}

// Respond builds a response with an arbitrary status code — the
// general-purpose constructor for callers (core/http.Context) that
// need a code other than the common 200/204/404 cases OK/NoContent/
// NotFound cover.
func Respond(code int, body []byte, contentType string) *Response {
	return newResponse(code, body, contentType)
}

// sharedNoContentHeaders is the process-wide immutable header set for
// NoContent responses: a global shared response template, initialized
// once and never mutated.
var sharedNoContentHeaders = []Header{{Name: HeaderContentLength, Value: "0"}}

// NoContent builds a 204 response with an empty body, reusing the
// shared zero-length header set.
func NoContent() *Response {
	return &Response{Code: 204, Headers: sharedNoContentHeaders, statusLine: statusLineFor(204)}
}

// NotFound builds a 404 response with the given body and optional
// content type. The empty-body fallback a missing handler yields is
// SharedNotFound.
func NotFound(body []byte, contentType string) *Response {
	return newResponse(404, body, contentType)
}

// genericNotFoundHandlerResponse is the zero-body 404 used when no
// handler matches a requested path.
var genericNotFoundHandlerResponse = &Response{
	Code:       404,
	Headers:    sharedNoContentHeaders,
	statusLine: statusLineFor(404),
}

// SharedNotFound returns the process-wide empty-body 404 response.
func SharedNotFound() *Response { return genericNotFoundHandlerResponse }

// IsFileBacked reports whether the response body should be sent via
// sendfile rather than rendered inline.
func (r *Response) IsFileBacked() bool { return r.FilePath != "" }

// headerSize is the number of bytes the status line and header block
// occupy, excluding any body.
func (r *Response) headerSize() int {
	n := len(r.statusLine)
	for _, h := range r.Headers {
		n += len(h.Name) + 2 + len(h.Value) + 2 // "name: value\r\n"
	}
	n += 2 // terminating \r\n
	return n
}

// OutputSize is the number of bytes RenderResponse will write for this
// response, excluding the worker's common-headers block (the caller
// adds worker.CommonHeaderSize separately). For a file-backed response
// this excludes the sendfile'd body, since that never passes through
// buf.
func (r *Response) OutputSize() int {
	n := r.headerSize()
	n += len(r.Body)
	return n
}

// RenderResponse writes the status line, the worker's pre-rendered
// common-headers block, the response-specific headers, the terminator,
// and the body into buf. If buf cannot hold
// response.OutputSize()+len(commonHeaders), it returns false without
// mutating buf at all — the caller must flush buf and retry. For a
// file-backed response, the body is omitted here; the caller sendfile's
// it separately after flushing these headers.
func RenderResponse(buf *pool.Buffer, commonHeaders []byte, r *Response) bool {
	if r.statusLine == "" {
		// Responses built outside this package's constructors (such as
		// core/sendfile's file-backed ones) carry no cached status line.
		r.statusLine = statusLineFor(r.Code)
	}
	if buf.Remaining() < r.OutputSize()+len(commonHeaders) {
		return false
	}

	buf.Append([]byte(r.statusLine))
	buf.Append(commonHeaders)
	for _, h := range r.Headers {
		buf.Append([]byte(h.Name))
		buf.Append(colonSpace)
		buf.Append([]byte(h.Value))
		buf.Append(crlf)
	}
	buf.Append(crlf)
	if !r.IsFileBacked() {
		buf.Append(r.Body)
	}
	return true
}

var (
	crlf       = []byte("\r\n")
	colonSpace = []byte(": ")
)
