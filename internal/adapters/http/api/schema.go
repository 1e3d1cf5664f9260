package api

import (
	"net/http"

	service "github.com/okian/sackline/internal/app"
)

// SchemaDependencies exposes the serving schema.
type SchemaDependencies interface {
	Schema() service.SchemaInfo
}

// SchemaHandler handles schema requests.
type SchemaHandler struct {
	deps SchemaDependencies
}

// NewSchemaHandler creates a new schema handler.
func NewSchemaHandler(deps SchemaDependencies) *SchemaHandler {
	return &SchemaHandler{deps: deps}
}

// HandleSchema handles GET /schema requests.
func (h *SchemaHandler) HandleSchema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Schema())
}
