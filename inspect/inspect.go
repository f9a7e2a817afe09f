// Package inspect serves a read-only HTTP view of a frozen registry.
//
//	GET /keys            every interned key
//	GET /owners          every declared owner type
//	GET /owners/{name}   the component layout of an owner type
//	GET /metrics         prometheus metrics
package inspect

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oriumgames/cardinal"
)

// KeyInfo describes a component key.
type KeyInfo struct {
	ID    string `json:"id"`
	Class string `json:"class"`
	Kind  string `json:"kind"`
	Index int    `json:"index"`
}

// OwnerInfo describes an owner type.
type OwnerInfo struct {
	Name   string `json:"name"`
	Parent string `json:"parent,omitempty"`
	Depth  int    `json:"depth"`
}

// SlotInfo describes one component of an owner type's layout.
type SlotInfo struct {
	Key          string   `json:"key"`
	Impl         string   `json:"impl"`
	Plugin       string   `json:"plugin,omitempty"`
	Dynamic      bool     `json:"dynamic"`
	CopyStrategy string   `json:"copy_strategy"`
	Dependencies []string `json:"dependencies,omitempty"`
	Hooks        []string `json:"hooks,omitempty"`
}

// DescriptorInfo describes the component layout of an owner type.
type DescriptorInfo struct {
	Owner      string     `json:"owner"`
	Components []SlotInfo `json:"components"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves the registry view.
type Handler struct {
	registry *cardinal.Registry
	gatherer prometheus.Gatherer
	log      *slog.Logger
	router   chi.Router
}

// NewHandler returns a handler on r. Metrics are gathered from g; a nil g
// uses the default prometheus gatherer.
func NewHandler(r *cardinal.Registry, g prometheus.Gatherer) *Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	h := &Handler{registry: r, gatherer: g, log: r.Logger()}
	h.router = h.routes()
	return h
}

func (h *Handler) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/keys", h.keys)
	r.Get("/owners", h.owners)
	r.Get("/owners/{name}", h.owner)
	r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	return r
}

// Router returns the routes of the handler, for mounting under a prefix.
func (h *Handler) Router() chi.Router {
	return h.router
}

// ServeHTTP serves the routes of the handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) keys(w http.ResponseWriter, _ *http.Request) {
	keys := h.registry.Keys()
	out := make([]KeyInfo, 0, len(keys))
	for _, k := range keys {
		out = append(out, KeyInfo{
			ID:    k.ID(),
			Class: typeName(k.Class()),
			Kind:  k.Kind().String(),
			Index: k.Index(),
		})
	}
	h.write(w, http.StatusOK, out)
}

func (h *Handler) owners(w http.ResponseWriter, _ *http.Request) {
	types := h.registry.OwnerTypes()
	out := make([]OwnerInfo, 0, len(types))
	for _, t := range types {
		info := OwnerInfo{Name: t.Name(), Depth: t.Depth()}
		if p := t.Parent(); p != nil {
			info.Parent = p.Name()
		}
		out = append(out, info)
	}
	h.write(w, http.StatusOK, out)
}

func (h *Handler) owner(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	t, ok := h.registry.OwnerType(name)
	if !ok {
		h.write(w, http.StatusNotFound, errorResponse{Error: "unknown owner type " + name})
		return
	}

	desc, err := h.registry.Specialize(t)
	switch {
	case errors.Is(err, cardinal.ErrNotInitialized):
		h.write(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	case err != nil:
		h.write(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}
	h.write(w, http.StatusOK, Describe(desc))
}

// Describe converts a descriptor to its JSON form.
func Describe(desc *cardinal.Descriptor) DescriptorInfo {
	out := DescriptorInfo{Owner: desc.Owner().Name(), Components: make([]SlotInfo, 0, desc.Len())}
	for i := range desc.Len() {
		s := desc.Slot(i)
		info := SlotInfo{
			Key:          s.Key().ID(),
			Impl:         typeName(s.Impl()),
			Plugin:       s.Plugin(),
			Dynamic:      s.Dynamic(),
			CopyStrategy: s.CopyStrategy().String(),
		}
		for _, d := range s.Dependencies() {
			info.Dependencies = append(info.Dependencies, d.ID())
		}
		for _, hook := range cardinal.Hooks() {
			if s.Receives(hook) {
				info.Hooks = append(info.Hooks, hook.String())
			}
		}
		out.Components = append(out.Components, info)
	}
	return out
}

func typeName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	return t.String()
}

func (h *Handler) write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn("cardinal: failed to write inspect response", "error", err)
	}
}
