// Package endpoint binds URL patterns and resource configurations to the crud
// engine over HTTP.
//
// An endpoint with collection pattern "/notes" and item pattern "/notes/{id}"
// mounted under "/api" serves:
//
//	GET    /api/notes       list
//	POST   /api/notes       create (201)
//	GET    /api/notes/{id}  get
//	PUT    /api/notes/{id}  full update
//	PATCH  /api/notes/{id}  partial update
//	DELETE /api/notes/{id}  delete (204)
//
// Every {name} wildcard is passed to the engine as a path capture.
package endpoint

import (
	"log/slog"
	"net/http"
	"regexp"

	"github.com/mmynk/backstack/internal/apperr"
	"github.com/mmynk/backstack/internal/crud"
	"github.com/mmynk/backstack/internal/middleware"
)

var wildcard = regexp.MustCompile(`\{(\w+)(?:\.\.\.)?\}`)

// Endpoint binds a resource configuration to URL patterns. Either pattern may
// be empty to leave those routes unregistered.
type Endpoint struct {
	// Collection is the pattern of the list and create routes (e.g. "/notes").
	Collection string

	// Item is the pattern of the single-row routes (e.g. "/notes/{id}").
	Item string

	Resource *crud.Resource
}

// Router mounts endpoints on a ServeMux.
type Router struct {
	engine    *crud.Engine
	prefix    string
	logger    *slog.Logger
	endpoints []Endpoint
}

// NewRouter creates a router serving endpoints under prefix (e.g. "/api").
func NewRouter(engine *crud.Engine, prefix string, logger *slog.Logger) *Router {
	return &Router{engine: engine, prefix: prefix, logger: logger}
}

// Add registers endpoints for the next Mount.
func (rt *Router) Add(endpoints ...Endpoint) *Router {
	rt.endpoints = append(rt.endpoints, endpoints...)
	return rt
}

// Mount registers the routes of every endpoint on mux.
func (rt *Router) Mount(mux *http.ServeMux) {
	for _, ep := range rt.endpoints {
		h := &handler{engine: rt.engine, res: ep.Resource}
		if ep.Collection != "" {
			h := h.withCaptures(ep.Collection)
			mux.HandleFunc("GET "+rt.prefix+ep.Collection, h.list)
			mux.HandleFunc("POST "+rt.prefix+ep.Collection, h.create)
		}
		if ep.Item != "" {
			h := h.withCaptures(ep.Item)
			mux.HandleFunc("GET "+rt.prefix+ep.Item, h.get)
			mux.HandleFunc("PUT "+rt.prefix+ep.Item, h.replace)
			mux.HandleFunc("PATCH "+rt.prefix+ep.Item, h.patch)
			mux.HandleFunc("DELETE "+rt.prefix+ep.Item, h.remove)
		}
		rt.logger.Debug("Endpoint mounted", "resource", ep.Resource.Descriptor.Name,
			"collection", rt.prefix+ep.Collection, "item", rt.prefix+ep.Item)
	}
}

// Captures returns the wildcard names of a route pattern.
func Captures(pattern string) []string {
	var names []string
	for _, m := range wildcard.FindAllStringSubmatch(pattern, -1) {
		names = append(names, m[1])
	}
	return names
}

type handler struct {
	engine   *crud.Engine
	res      *crud.Resource
	captures []string
}

func (h *handler) withCaptures(pattern string) *handler {
	c := *h
	c.captures = Captures(pattern)
	return &c
}

func (h *handler) request(r *http.Request) *crud.Request {
	path := make(map[string]string, len(h.captures))
	for _, name := range h.captures {
		path[name] = r.PathValue(name)
	}
	return &crud.Request{
		Principal: middleware.GetPrincipal(r.Context()),
		Origin:    middleware.ClientAddr(r.Header, r.RemoteAddr),
		Path:      path,
		Query:     r.URL.Query(),
	}
}

// list handles GET {collection}
func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	page, err := h.engine.List(r.Context(), h.res, h.request(r))
	if err != nil {
		WriteError(w, apperr.Translate(err))
		return
	}
	WriteJSON(w, http.StatusOK, page)
}

// create handles POST {collection}
func (h *handler) create(w http.ResponseWriter, r *http.Request) {
	payload, err := DecodePayload(r)
	if err != nil {
		WriteError(w, apperr.Translate(err))
		return
	}
	m, err := h.engine.Create(r.Context(), h.res, h.request(r), payload)
	if err != nil {
		WriteError(w, apperr.Translate(err))
		return
	}
	WriteJSON(w, http.StatusCreated, m)
}

// get handles GET {item}
func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	m, err := h.engine.Get(r.Context(), h.res, h.request(r))
	if err != nil {
		WriteError(w, apperr.Translate(err))
		return
	}
	WriteJSON(w, http.StatusOK, m)
}

// replace handles PUT {item}
func (h *handler) replace(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

// patch handles PATCH {item}
func (h *handler) patch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

func (h *handler) update(w http.ResponseWriter, r *http.Request, partial bool) {
	payload, err := DecodePayload(r)
	if err != nil {
		WriteError(w, apperr.Translate(err))
		return
	}
	m, err := h.engine.Update(r.Context(), h.res, h.request(r), payload, partial)
	if err != nil {
		WriteError(w, apperr.Translate(err))
		return
	}
	WriteJSON(w, http.StatusOK, m)
}

// remove handles DELETE {item}
func (h *handler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Delete(r.Context(), h.res, h.request(r)); err != nil {
		WriteError(w, apperr.Translate(err))
		return
	}
	WriteNoContent(w)
}
