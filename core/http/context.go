// Package http is the ergonomic request/response Context built on top
// of internal/httpwire and internal/conn. Handlers build
// httpwire.Response values and hand them to exchange.Conn.AppendResponse
// rather than writing to a net.Conn directly, since the reactor core
// owns the socket and schedules every write through
// ResponseWriterService.
package http

import (
	"encoding/json"
	"sync"

	"github.com/searchktools/reactor-server/core/sendfile"
	"github.com/searchktools/reactor-server/internal/httpwire"
)

// Context is the per-request API handed to a registered HandlerFunc.
type Context interface {
	Method() string
	Path() string
	Param(key string) string
	Query(key string) string
	Header(key string) string
	Body() []byte
	SetParam(key, value string)

	String(code int, s string)
	JSON(code int, v any)
	Bytes(code int, data []byte)
	Data(code int, contentType string, data []byte)
	Error(code int, message string)
	Success(data any)
	ServeFile(filePath string) error

	Bind(v any) error

	// SetHeader queues an extra response header, applied to whichever of
	// String/JSON/Bytes/Data/Error/Success/Status sends the response
	// next.
	SetHeader(key, value string)
	// Status sends a response with the given code and no body, applying
	// any headers queued by SetHeader.
	Status(code int)

	// Abort marks the request as handled by a middleware that wants to
	// stop the chain (core/middleware.Pipeline checks IsAborted between
	// each handler); it does not itself send a response.
	Abort()
	IsAborted() bool

	// Exchange exposes the underlying parsed request/connection handle
	// for callers that need lower-level access.
	Exchange() *httpwire.Exchange
}

// standardContext is the pooled Context implementation. Route params
// are held in a 4-slot fixed array with an overflow map beyond that:
// route params rarely exceed 4 in practice, and avoiding a map
// allocation for the common case matters on the request hot path.
type standardContext struct {
	paramKeys   [4]string
	paramValues [4]string
	paramCount  int

	paramMapOverflow map[string]string

	extraHeaders []httpwire.Header
	aborted      bool

	ex *httpwire.Exchange
}

var contextPool = sync.Pool{
	New: func() any { return &standardContext{} },
}

// Acquire builds a Context for ex, pulling params in from the router's
// match result.
func Acquire(ex *httpwire.Exchange, params map[string]string) Context {
	ctx := contextPool.Get().(*standardContext)
	ctx.ex = ex
	ctx.paramCount = 0
	ctx.paramMapOverflow = nil
	ctx.extraHeaders = nil
	ctx.aborted = false
	for k, v := range params {
		ctx.SetParam(k, v)
	}
	return ctx
}

// Release returns ctx to the pool. Call once the handler has returned
// and the Context will not be touched again.
func Release(ctx Context) {
	if c, ok := ctx.(*standardContext); ok {
		c.ex = nil
		c.paramCount = 0
		if c.paramMapOverflow != nil {
			for k := range c.paramMapOverflow {
				delete(c.paramMapOverflow, k)
			}
		}
		contextPool.Put(c)
	}
}

func (c *standardContext) Exchange() *httpwire.Exchange { return c.ex }

func (c *standardContext) SetParam(key, value string) {
	if c.paramCount < 4 {
		c.paramKeys[c.paramCount] = key
		c.paramValues[c.paramCount] = value
		c.paramCount++
		return
	}
	if c.paramMapOverflow == nil {
		c.paramMapOverflow = make(map[string]string)
	}
	c.paramMapOverflow[key] = value
}

func (c *standardContext) Param(key string) string {
	for i := 0; i < c.paramCount; i++ {
		if c.paramKeys[i] == key {
			return c.paramValues[i]
		}
	}
	if c.paramMapOverflow != nil {
		return c.paramMapOverflow[key]
	}
	return ""
}

func (c *standardContext) Method() string { return c.ex.Request.Method }
func (c *standardContext) Path() string   { return c.ex.Request.Path }
func (c *standardContext) Body() []byte   { return c.ex.Request.Body }

func (c *standardContext) Query(key string) string {
	if c.ex.Request.Query == nil {
		return ""
	}
	return c.ex.Request.Query[key]
}

func (c *standardContext) Header(key string) string {
	v, _ := c.ex.Request.Header(key)
	return v
}

func (c *standardContext) Bind(v any) error {
	return json.Unmarshal(c.ex.Request.Body, v)
}

func (c *standardContext) String(code int, s string) {
	c.Data(code, "text/plain", []byte(s))
}

func (c *standardContext) JSON(code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.Data(500, "text/plain", []byte("JSON marshal error"))
		return
	}
	c.Data(code, "application/json", data)
}

func (c *standardContext) Bytes(code int, data []byte) {
	c.Data(code, "application/octet-stream", data)
}

// Data builds a Response with the given status code, content type, and
// body and hands it to the connection.
func (c *standardContext) Data(code int, contentType string, data []byte) {
	resp := httpwire.Respond(code, data, contentType)
	if len(c.extraHeaders) > 0 {
		resp.Headers = append(resp.Headers, c.extraHeaders...)
		c.extraHeaders = c.extraHeaders[:0]
	}
	c.ex.Conn.AppendResponse(resp)
}

// SetHeader queues key/value, applied by the next response-sending call.
func (c *standardContext) SetHeader(key, value string) {
	c.extraHeaders = append(c.extraHeaders, httpwire.Header{Name: key, Value: value})
}

// Status sends an empty-body response with the given code.
func (c *standardContext) Status(code int) {
	c.Data(code, "", nil)
}

// Abort marks the request aborted; core/middleware.Pipeline stops
// calling further handlers once this is set.
func (c *standardContext) Abort() { c.aborted = true }

// IsAborted reports whether Abort has been called for this request.
func (c *standardContext) IsAborted() bool { return c.aborted }

func (c *standardContext) Error(code int, message string) {
	c.JSON(code, map[string]any{"code": code, "message": message})
}

func (c *standardContext) Success(data any) {
	c.JSON(200, map[string]any{"code": 0, "message": "success", "data": data})
}

// ServeFile serves filePath via the zero-copy sendfile(2) path:
// core/sendfile stats the file and builds a Response carrying a
// FilePath marker instead of a body, which internal/reactor's
// ResponseWriterService transfers straight from the file descriptor to
// the socket once headers are flushed, without ever copying the file
// into this process's heap.
func (c *standardContext) ServeFile(filePath string) error {
	resp, err := sendfile.NewFileResponse(filePath)
	if err != nil {
		c.String(404, "File not found")
		return err
	}
	if len(c.extraHeaders) > 0 {
		resp.Headers = append(resp.Headers, c.extraHeaders...)
		c.extraHeaders = c.extraHeaders[:0]
	}
	c.ex.Conn.AppendResponse(resp)
	return nil
}
