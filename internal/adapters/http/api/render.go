package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/visualverse/internal/domain/catalog"
	"github.com/okian/visualverse/internal/domain/render"
)

// Renderer runs vertical generators and lists what they can render.
type Renderer interface {
	Catalog(domain string) []catalog.Entry
	Render(ctx context.Context, domain, kind string, params json.RawMessage) (render.Result, error)
}

// RenderHandler serves the catalog and synchronous renders.
type RenderHandler struct {
	deps    Renderer
	maxBody int64
}

// NewRenderHandler creates a new render handler.
func NewRenderHandler(deps Renderer, maxBody int64) *RenderHandler {
	return &RenderHandler{deps: deps, maxBody: maxBody}
}

type catalogResponse struct {
	Items []catalog.Entry `json:"items"`
	Total int             `json:"total"`
}

// HandleCatalog handles GET /api/v1/catalog[?domain=].
func (h *RenderHandler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	items := h.deps.Catalog(r.URL.Query().Get("domain"))
	if items == nil {
		items = []catalog.Entry{}
	}
	writeJSON(w, http.StatusOK, catalogResponse{Items: items, Total: len(items)})
}

// HandleRender handles POST /api/v1/render/{domain}/{kind}. The body is the
// generator's params object.
func (h *RenderHandler) HandleRender(w http.ResponseWriter, r *http.Request) {
	const op = "api.render"
	params, err := readParams(w, r, h.maxBody)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	res, err := h.deps.Render(r.Context(), chi.URLParam(r, "domain"), chi.URLParam(r, "kind"), params)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// readParams reads a raw JSON body; an empty body means no params.
func readParams(w http.ResponseWriter, r *http.Request, limit int64) (json.RawMessage, error) {
	var raw json.RawMessage
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if isMaxBytes(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return raw, nil
}
