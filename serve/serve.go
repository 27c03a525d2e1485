// Package serve hosts trained classifiers behind named HTTP endpoints.
//
// A Host sits on top of a storage.Store holding model archives. Creating an
// endpoint loads its archive into memory once; invocations afterward only
// touch the loaded network. Endpoints live until they are deleted or the
// process exits.
//
// The HTTP surface:
//
//		GET    /ping                             health check
//		GET    /endpoints                        list endpoints
//		POST   /endpoints                        create from {"name", "model"}
//		GET    /endpoints/NAME                   describe one endpoint
//		DELETE /endpoints/NAME                   remove an endpoint
//		POST   /endpoints/NAME/invocations       score {"instances": [[..], ..]}
package serve

import (
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"crescent/nn"
	"crescent/storage"
)

// Host serves models from a Store as named endpoints. It is safe for
// concurrent use.
type Host struct {
	store storage.Store

	mu        sync.Mutex
	endpoints map[string]*endpoint
}

type endpoint struct {
	info EndpointInfo
	net  *nn.Network
}

// EndpointInfo describes one live endpoint.
type EndpointInfo struct {
	// Name is the identifier the endpoint was created under.
	Name string `json:"name"`

	// Model is the storage key of the archive the endpoint serves.
	Model string `json:"model"`

	// Created is when the endpoint came up.
	Created time.Time `json:"created"`
}

// CreateRequest is the body of POST /endpoints.
type CreateRequest struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}

// InvokeRequest is the body of POST /endpoints/NAME/invocations. Each
// instance is one feature vector.
type InvokeRequest struct {
	Instances [][]float64 `json:"instances"`
}

// InvokeResponse carries one score per instance, in order.
type InvokeResponse struct {
	Predictions []float64 `json:"predictions"`
}

// NewHost returns a Host serving model archives out of store.
func NewHost(store storage.Store) *Host {
	return &Host{
		store:     store,
		endpoints: make(map[string]*endpoint),
	}
}

// Handler returns the Host's full HTTP surface on a fresh mux.
func (h *Host) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", h.Ping)
	mux.HandleFunc("/endpoints", h.Endpoints)
	mux.HandleFunc("/endpoints/", h.Endpoint)
	return mux
}

// Ping reports that the Host is up.
func (h *Host) Ping(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

// Endpoints lists endpoints on GET and creates one on POST.
func (h *Host) Endpoints(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Host) list(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	infos := make([]EndpointInfo, 0, len(h.endpoints))
	for _, ep := range h.endpoints {
		infos = append(infos, ep.info)
	}
	h.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(infos)
}

func (h *Host) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Name == "" || strings.Contains(req.Name, "/") {
		http.Error(w, "Endpoint name must be non-empty and must not contain '/'", http.StatusBadRequest)
		return
	}
	if req.Model == "" {
		http.Error(w, "Model key must be non-empty", http.StatusBadRequest)
		return
	}

	// Loading happens outside the lock; the name check comes after.
	rc, err := h.store.Get(r.Context(), req.Model)
	if errors.Cause(err) == storage.ErrNoSuchKey {
		http.Error(w, "No such model: "+req.Model, http.StatusNotFound)
		return
	} else if err != nil {
		log.Printf("Fetching model %q: %v", req.Model, err)
		http.Error(w, "Failed to fetch model", http.StatusInternalServerError)
		return
	}

	net, err := nn.ReadArchive(rc)
	rc.Close()
	if err != nil {
		log.Printf("Loading model %q: %v", req.Model, err)
		http.Error(w, "Model archive is not loadable", http.StatusBadRequest)
		return
	}

	ep := &endpoint{
		info: EndpointInfo{Name: req.Name, Model: req.Model, Created: time.Now()},
		net:  net,
	}

	h.mu.Lock()
	if _, exists := h.endpoints[req.Name]; exists {
		h.mu.Unlock()
		http.Error(w, "Endpoint already exists: "+req.Name, http.StatusConflict)
		return
	}
	h.endpoints[req.Name] = ep
	h.mu.Unlock()

	log.Printf("Endpoint %q serving model %q", req.Name, req.Model)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(ep.info)
}

// Endpoint routes requests under /endpoints/NAME: GET describes, DELETE
// removes, and POST to NAME/invocations scores a batch.
func (h *Host) Endpoint(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/endpoints/")
	name, sub, hasSub := strings.Cut(rest, "/")
	if name == "" {
		http.Error(w, "Endpoint name missing", http.StatusNotFound)
		return
	}

	if hasSub {
		if sub != "invocations" {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.invoke(w, r, name)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.describe(w, r, name)
	case http.MethodDelete:
		h.delete(w, r, name)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Host) lookup(name string) (*endpoint, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ep, ok := h.endpoints[name]
	return ep, ok
}

func (h *Host) describe(w http.ResponseWriter, r *http.Request, name string) {
	ep, ok := h.lookup(name)
	if !ok {
		http.Error(w, "No such endpoint: "+name, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ep.info)
}

func (h *Host) delete(w http.ResponseWriter, r *http.Request, name string) {
	h.mu.Lock()
	_, ok := h.endpoints[name]
	delete(h.endpoints, name)
	h.mu.Unlock()

	if !ok {
		http.Error(w, "No such endpoint: "+name, http.StatusNotFound)
		return
	}

	log.Printf("Endpoint %q deleted", name)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Host) invoke(w http.ResponseWriter, r *http.Request, name string) {
	ep, ok := h.lookup(name)
	if !ok {
		http.Error(w, "No such endpoint: "+name, http.StatusNotFound)
		return
	}

	var req InvokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	scores, err := ep.net.ScoreBatch(req.Instances)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(InvokeResponse{Predictions: scores})
}
