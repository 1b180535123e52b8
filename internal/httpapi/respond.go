package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/hugr-lab/apiquery/builder"
	"github.com/hugr-lab/apiquery/internal/msgpack"
	"github.com/hugr-lab/apiquery/sqlquery"
)

// Response content types.
const (
	contentTypeJSON    = "application/json"
	contentTypeMsgpack = "application/msgpack"
	contentTypeArrow   = "application/vnd.apache.arrow.stream"
)

// Pagination response headers.
const (
	headerTotal    = "X-Total-Count"
	headerPage     = "X-Page"
	headerPerPage  = "X-Per-Page"
	headerLastPage = "X-Last-Page"
)

type format int

const (
	formatJSON format = iota
	formatMsgpack
	formatArrow
)

func (f format) contentType() string {
	switch f {
	case formatArrow:
		return contentTypeArrow
	case formatMsgpack:
		return contentTypeMsgpack
	default:
		return contentTypeJSON
	}
}

// negotiate picks the response format from the Accept header.
func negotiate(r *http.Request) format {
	accept := r.Header.Get("Accept")
	switch {
	case strings.Contains(accept, contentTypeArrow):
		return formatArrow
	case strings.Contains(accept, contentTypeMsgpack), strings.Contains(accept, "application/x-msgpack"):
		return formatMsgpack
	default:
		return formatJSON
	}
}

// acceptsZstd reports whether the client accepts zstd-encoded bodies.
func acceptsZstd(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if name == "zstd" {
			return true
		}
	}
	return false
}

// respond writes v as JSON or MessagePack, or rows as an Arrow stream.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, v any, rows []builder.Row, columns []string) {
	f := negotiate(r)
	if f != formatArrow {
		s.encode(w, r, f, v)
		return
	}

	rec, err := sqlquery.ToRecord(s.allocator, rows, columns)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer rec.Release()

	var buf bytes.Buffer
	if err := sqlquery.WriteIPC(&buf, s.allocator, rec); err != nil {
		s.fail(w, r, err)
		return
	}
	s.write(w, r, formatArrow, buf.Bytes())
}

// encode writes v in format f.
func (s *Server) encode(w http.ResponseWriter, r *http.Request, f format, v any) {
	var (
		body []byte
		err  error
	)
	if f == formatMsgpack {
		body, err = msgpack.Encode(v)
	} else {
		body, err = json.Marshal(v)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.write(w, r, f, body)
}

// write sends body, zstd-compressed when the client accepts it.
func (s *Server) write(w http.ResponseWriter, r *http.Request, f format, body []byte) {
	w.Header().Set("Content-Type", f.contentType())
	w.Header().Add("Vary", "Accept, Accept-Encoding")
	if acceptsZstd(r) && len(body) > 0 {
		body = s.compressor.Compress(body)
		w.Header().Set("Content-Encoding", "zstd")
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.logger.Debug("Response write failed", "path", r.URL.Path, "error", err)
	}
}

func setPaginationHeaders(w http.ResponseWriter, p *builder.Pagination) {
	w.Header().Set(headerTotal, strconv.FormatInt(p.Total, 10))
	w.Header().Set(headerPage, strconv.Itoa(p.CurrentPage))
	w.Header().Set(headerPerPage, strconv.Itoa(p.PerPage))
	w.Header().Set(headerLastPage, strconv.Itoa(p.LastPage))
}

func writeJSON(w io.Writer, v any) {
	_ = json.NewEncoder(w).Encode(v)
}
