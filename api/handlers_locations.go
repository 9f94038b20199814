package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"geopin/geo"
	"geopin/model"
)

// handleLocations aggregates all media into map markers and resolves a
// human-readable address for each group.
func (h *Handlers) handleLocations(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListMedia("")
	if err != nil {
		h.Log.Error("listing media for markers failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}

	markers := model.AggregateMarkers(records, r.URL.Query().Get("category"))
	for i := range markers {
		markers[i].Address = h.Resolver.Resolve(r.Context(), markers[i].Pair())
	}

	respondJSON(w, http.StatusOK, map[string]any{"locations": markers})
}

type parseCoordinatesRequest struct {
	Text string `json:"text"`
}

// handleParseCoordinates turns free-form coordinate text into a decimal
// pair, applying the regional hint to bare unsigned values.
func (h *Handlers) handleParseCoordinates(w http.ResponseWriter, r *http.Request) {
	var req parseCoordinatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "Text required")
		return
	}

	pair, explicit := geo.ParseCoordinateString(req.Text)
	if pair == nil {
		respondJSON(w, http.StatusOK, map[string]any{"found": false})
		return
	}

	adjusted, guessed := *pair, false
	if !explicit {
		adjusted, guessed = h.Hint.Apply(*pair)
	}
	if err := adjusted.Validate(); err != nil {
		respondJSON(w, http.StatusOK, map[string]any{"found": false})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"found":        true,
		"latitude":     adjusted.Latitude,
		"longitude":    adjusted.Longitude,
		"region_guess": guessed,
	})
}
