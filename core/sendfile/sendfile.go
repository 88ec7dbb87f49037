// Package sendfile builds httpwire.Response values backed by a file on
// disk rather than an in-memory body. internal/sendfile owns the file-
// descriptor cache and the actual sendfile(2) transfer that
// internal/reactor's ResponseWriterService issues once headers are
// flushed; this package is the application-facing half.
package sendfile

import (
	"path/filepath"
	"strconv"

	"github.com/searchktools/reactor-server/internal/httpwire"
	intsendfile "github.com/searchktools/reactor-server/internal/sendfile"
)

// NewFileResponse stats path and returns a Response carrying Content-
// Type/Content-Length headers and a FilePath body marker, or an error
// if the file cannot be opened. core/http.Context.ServeFile hands this
// straight to Connection.AppendResponse exactly like any in-memory
// response.
func NewFileResponse(path string) (*httpwire.Response, error) {
	file, err := intsendfile.Global.Get(path)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	size := info.Size()
	resp := &httpwire.Response{
		Code:       200,
		FilePath:   path,
		FileOffset: 0,
		FileSize:   size,
	}
	resp.Headers = append(resp.Headers,
		httpwire.Header{Name: httpwire.HeaderContentType, Value: ContentType(path)},
		httpwire.Header{Name: httpwire.HeaderContentLength, Value: strconv.FormatInt(size, 10)},
	)
	return resp, nil
}

// ContentType returns a MIME type guessed from filename's extension.
func ContentType(filename string) string {
	switch filepath.Ext(filename) {
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "application/javascript; charset=utf-8"
	case ".json":
		return "application/json; charset=utf-8"
	case ".xml":
		return "application/xml; charset=utf-8"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".ico":
		return "image/x-icon"
	case ".pdf":
		return "application/pdf"
	case ".zip":
		return "application/zip"
	case ".gz":
		return "application/gzip"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// CloseCache closes every descriptor the file cache holds open.
// Engine.Shutdown calls this so a restart doesn't leak fds.
func CloseCache() {
	intsendfile.Global.Close()
}
