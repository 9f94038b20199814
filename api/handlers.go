// Package api exposes the pipeline over HTTP: authentication, media upload
// with the coordinate-extraction fallback chain, media queries, aggregated
// map markers with resolved addresses, and the shared coordinate parser for
// manual entry.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"geopin/extract"
	"geopin/geo"
	"geopin/geocode"
	"geopin/storage"
)

// Handlers bundles the wired dependencies behind the HTTP surface.
type Handlers struct {
	Store          storage.Store
	Blobs          storage.BlobStore
	Extractor      *extract.Extractor
	Resolver       *geocode.Resolver
	Hint           geo.RegionHint
	SecretKey      string
	MaxUploadBytes int64
	Log            *zap.Logger
}

// Router builds the route table. Reads are public; uploads and deletions
// require a login.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.recoveryMiddleware, h.requestLogMiddleware)

	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/register", h.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", h.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/verify", h.requireAuth(h.handleVerify)).Methods(http.MethodGet)
	api.HandleFunc("/auth/logout", h.requireAuth(h.handleLogout)).Methods(http.MethodPost)

	api.HandleFunc("/media/upload", h.requireAuth(h.handleUpload)).Methods(http.MethodPost)
	api.HandleFunc("/media", h.handleListMedia).Methods(http.MethodGet)
	api.HandleFunc("/media/location", h.handleMediaByLocation).Methods(http.MethodGet)
	api.HandleFunc("/media/{id:[0-9]+}/file", h.handleMediaFile).Methods(http.MethodGet)
	api.HandleFunc("/media/{id:[0-9]+}", h.requireAuth(h.handleDeleteMedia)).Methods(http.MethodDelete)

	api.HandleFunc("/locations", h.handleLocations).Methods(http.MethodGet)
	api.HandleFunc("/coordinates/parse", h.handleParseCoordinates).Methods(http.MethodPost)
	api.HandleFunc("/export", h.requireAuth(h.handleExport)).Methods(http.MethodGet)

	api.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "API endpoint not found")
	})

	return r
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
