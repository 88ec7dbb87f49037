package httpwire

import (
	"bytes"
	"strconv"
)

// ParseRequest attempts to parse one complete HTTP/1.1 request from the
// front of data. On success it returns the parsed Request and the
// number of bytes consumed, so ConnectionReadService can slide the
// remainder of a pipelined read forward and parse the next request from
// the same buffer. On a request that is valid so far but not yet
// complete, it returns ErrIncomplete and the caller should wait for
// more bytes from the socket. Any other error is a ParseError: the
// connection must be closed with a descriptive reason.
//
// Method/Path/Proto/header values here are copied rather than aliased
// into data: the connection read buffer is compacted after every parse
// and reused across scheduler ticks, so a request queued for
// RequestHandlerService must outlive the bytes it was parsed from.
func ParseRequest(data []byte, req *Request) (consumed int, err error) {
	lineEnd := bytes.IndexByte(data, '\n')
	if lineEnd == -1 {
		if len(data) > maxMethodLen+maxPathLen+32 {
			return 0, ErrInvalidRequest
		}
		return 0, ErrIncomplete
	}

	line := data[:lineEnd]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}

	sp1 := bytes.IndexByte(line, ' ')
	if sp1 == -1 {
		return 0, ErrInvalidRequest
	}
	if sp1 > maxMethodLen {
		return 0, ErrMethodTooLong
	}

	rest := line[sp1+1:]
	sp2 := bytes.IndexByte(rest, ' ')
	if sp2 == -1 {
		return 0, ErrInvalidRequest
	}
	if sp2 > maxPathLen {
		return 0, ErrPathTooLong
	}
	sp2 += sp1 + 1

	req.Method = string(line[:sp1])
	path := string(line[sp1+1 : sp2])
	req.Proto = string(line[sp2+1:])

	if idx := bytes.IndexByte([]byte(path), '?'); idx != -1 {
		path = parseQuery(req, path, idx)
	}
	req.Path = path

	headerStart := lineEnd + 1
	headerData := data[headerStart:]

	headerEnd := bytes.Index(headerData, []byte("\r\n\r\n"))
	sepLen := 4
	if bytes.HasPrefix(headerData, []byte("\r\n")) {
		// Empty header block: the blank line directly follows the request
		// line, so a pipelined request's terminator must not be matched.
		headerEnd, sepLen = 0, 2
	} else if bytes.HasPrefix(headerData, []byte("\n")) {
		headerEnd, sepLen = 0, 1
	} else if headerEnd == -1 {
		headerEnd = bytes.Index(headerData, []byte("\n\n"))
		sepLen = 2
		if headerEnd == -1 {
			return 0, ErrIncomplete
		}
	}

	parseHeaders(req, headerData[:headerEnd])
	bodyStart := headerStart + headerEnd + sepLen

	bodyLen := 0
	if req.ContentLength != "" {
		n, convErr := strconv.Atoi(req.ContentLength)
		if convErr != nil || n < 0 {
			return 0, ErrInvalidRequest
		}
		bodyLen = n
	}

	if len(data)-bodyStart < bodyLen {
		return 0, ErrIncomplete
	}

	if bodyLen > 0 {
		req.Body = append(req.Body[:0], data[bodyStart:bodyStart+bodyLen]...)
	}

	return bodyStart + bodyLen, nil
}

func parseHeaders(req *Request, data []byte) {
	for len(data) > 0 {
		lineEnd := bytes.IndexByte(data, '\n')
		if lineEnd == -1 {
			lineEnd = len(data)
		}

		line := data[:lineEnd]
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}

		if len(line) == 0 {
			break
		}

		if colon := bytes.IndexByte(line, ':'); colon > 0 {
			key := string(bytes.TrimSpace(line[:colon]))
			value := string(bytes.TrimSpace(line[colon+1:]))
			req.SetHeader(key, value)
		}

		if lineEnd == len(data) {
			break
		}
		data = data[lineEnd+1:]
	}
}

func parseQuery(req *Request, path string, idx int) string {
	queryStr := path[idx+1:]
	path = path[:idx]

	if req.Query == nil {
		req.Query = make(map[string]string)
	}

	for _, pair := range bytes.Split([]byte(queryStr), []byte("&")) {
		kv := bytes.SplitN(pair, []byte("="), 2)
		if len(kv) == 2 {
			req.Query[string(kv[0])] = string(kv[1])
		} else if len(kv) == 1 && len(kv[0]) > 0 {
			req.Query[string(kv[0])] = ""
		}
	}

	return path
}
