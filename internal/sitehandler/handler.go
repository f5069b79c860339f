package sitehandler

import (
	"io/fs"
	"net/http"
	"strconv"
)

// Handler serves the public asset tree and the 404 page for every path the
// router did not match.
type Handler struct {
	opts     Options
	notFound []byte
}

func New(opts Options) (*Handler, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	// read once; the page is served for hostile paths that ServeFileFS would reject
	page, err := fs.ReadFile(opts.PublicFS, opts.NotFoundFile)
	if err != nil {
		return nil, err
	}
	return &Handler{opts: opts, notFound: page}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// only GET/HEAD reach files
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	file, ok := resolvePath(r.URL.Path, h.opts.PublicFS)
	if !ok || file == h.opts.NotFoundFile {
		h.serveNotFound(w, r)
		return
	}

	if cc := cacheControlForFile(file, &h.opts); cc != "" {
		w.Header().Set("Cache-Control", cc)
	}
	http.ServeFileFS(w, r, h.opts.PublicFS, file)
}

func (h *Handler) serveNotFound(w http.ResponseWriter, r *http.Request) {
	hdr := w.Header()
	// avoid caching 404 responses
	hdr.Set("Cache-Control", "no-store")
	hdr.Set("Content-Type", "text/html; charset=utf-8")
	hdr.Set("Content-Length", strconv.Itoa(len(h.notFound)))
	w.WriteHeader(http.StatusNotFound)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(h.notFound)
}
