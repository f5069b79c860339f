package sitehttp

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/keithlinneman/jslearn-web/internal/log"
	"github.com/keithlinneman/jslearn-web/internal/metrics"
	"github.com/keithlinneman/jslearn-web/internal/pdfstore"
)

const tracerName = "jslearn/sitehttp"

func (rt *Routes) download(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	L := log.FromContext(ctx)

	m, err := rt.lookup(chi.URLParam(r, "id"))
	if err != nil {
		rt.metrics.IncDownload(metrics.DownloadUnknown)
		writeJSONError(w, http.StatusNotFound, "Module not found")
		return
	}

	octx, span := otel.Tracer(tracerName).Start(ctx, "pdfstore.Open")
	span.SetAttributes(
		attribute.String("pdfstore.kind", rt.store.Kind()),
		attribute.Int("module.id", m.ID),
	)
	f, err := rt.store.Open(octx, m.Filename)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
	}
	span.End()

	switch {
	case errors.Is(err, pdfstore.ErrFileMissing):
		rt.metrics.IncDownload(metrics.DownloadFileMissing)
		L.Warn(ctx, "module pdf missing", "module_id", m.ID, "filename", m.Filename, "store", rt.store.Kind())
		writeJSONError(w, http.StatusNotFound, "File not found")
		return
	case err != nil:
		rt.metrics.IncDownload(metrics.DownloadError)
		L.Error(ctx, err, "open module pdf", "module_id", m.ID, "filename", m.Filename, "store", rt.store.Kind())
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer f.Close()

	h := w.Header()
	h.Set("Content-Type", "application/pdf")
	h.Set("Content-Disposition", contentDisposition(m.Filename))
	h.Set("Cache-Control", "no-cache")

	cw := &countingWriter{ResponseWriter: w}
	if rs, ok := f.Seeker(); ok {
		// handles Range, If-Modified-Since and HEAD
		http.ServeContent(cw, r, m.Filename, f.ModTime, rs)
	} else {
		if f.Size >= 0 {
			h.Set("Content-Length", strconv.FormatInt(f.Size, 10))
		}
		if !f.ModTime.IsZero() {
			h.Set("Last-Modified", f.ModTime.UTC().Format(http.TimeFormat))
		}
		cw.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			if _, err := io.Copy(cw, f.Body); err != nil && cw.err == nil {
				// read side failed; the headers are already gone
				cw.err = err
			}
		}
	}

	result := downloadResult(cw, ctx.Err())
	if result == metrics.DownloadInterrupted {
		L.Warn(ctx, "download interrupted", "module_id", m.ID, "bytes", cw.n, "err", cw.err)
	}
	rt.metrics.IncDownload(result)
	rt.metrics.AddDownloadBytes(cw.n)
}

// downloadResult classifies a finished download by what was actually sent.
func downloadResult(cw *countingWriter, ctxErr error) string {
	switch {
	case cw.err != nil || ctxErr != nil:
		return metrics.DownloadInterrupted
	case cw.status == http.StatusNotModified:
		return metrics.DownloadNotModified
	case cw.status == http.StatusRequestedRangeNotSatisfiable:
		return metrics.DownloadBadRange
	case cw.status >= http.StatusBadRequest:
		return metrics.DownloadError
	}
	return metrics.DownloadOK
}

// contentDisposition quotes the catalog filename, switching to the RFC 2231
// form when it is not plain ASCII.
func contentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}

// countingWriter records the status, the bytes written and the first
// write error.
type countingWriter struct {
	http.ResponseWriter
	status int
	n      int64
	err    error
}

func (c *countingWriter) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	n, err := c.ResponseWriter.Write(p)
	c.n += int64(n)
	if err != nil && c.err == nil {
		c.err = err
	}
	return n, err
}

func (c *countingWriter) Unwrap() http.ResponseWriter { return c.ResponseWriter }
