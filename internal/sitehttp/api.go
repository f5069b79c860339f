package sitehttp

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/jslearn-web/internal/log"
)

type errorBody struct {
	Error string `json:"error"`
}

func (rt *Routes) apiModules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, rt.cat.List())
}

func (rt *Routes) apiModule(w http.ResponseWriter, r *http.Request) {
	m, err := rt.lookup(chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "Module not found")
		return
	}
	writeJSON(w, r, http.StatusOK, m)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	// encode first so a failure can still become a clean 500
	b, err := marshal(v)
	if err != nil {
		ctx := r.Context()
		log.FromContext(ctx).Error(ctx, err, "encode json response")
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeRawJSON(w, status, b)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	// errorBody always encodes
	b, _ := marshal(errorBody{Error: msg})
	w.Header().Set("Cache-Control", "no-store")
	writeRawJSON(w, status, b)
}

func writeRawJSON(w http.ResponseWriter, status int, b []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

// marshal keeps "&" and "<" literal so topics like "Parameters & Arguments"
// read the same in the payload as on the page.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
