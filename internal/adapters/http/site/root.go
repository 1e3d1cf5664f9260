// Package site serves the service landing page.
package site

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/sackline/internal/app"
)

// Error constants
var (
	ErrGenerate = errors.New("landing page generation failed")
	ErrServe    = errors.New("landing page serve failed")
)

// SchemaProvider supplies the schema summary rendered on the page.
type SchemaProvider interface {
	Schema() service.SchemaInfo
}

// Register attaches the landing page to the exact root path of mux.
func Register(_ context.Context, mux *http.ServeMux, schema SchemaProvider) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET /{$}", NewRootHandler(schema).HandleRoot)
}

// RootHandler handles root path requests
type RootHandler struct {
	schema SchemaProvider
}

// NewRootHandler creates a new root handler
func NewRootHandler(schema SchemaProvider) *RootHandler {
	return &RootHandler{schema: schema}
}

// Render writes the landing page for info into a buffer.
func Render(info service.SchemaInfo) ([]byte, error) {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, info); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerate, err)
	}
	return buf.Bytes(), nil
}

// HandleRoot handles GET / requests.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, _ *http.Request) {
	page, err := Render(h.schema.Schema())
	if err != nil {
		http.Error(w, ErrServe.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}
