package api

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"geopin/extract"
	"geopin/geo"
	"geopin/model"
	"geopin/storage"
)

const thumbnailSize = 256

// handleUpload ingests one media file: extraction chain for images, required
// manual coordinates for videos, a final validation gate, then blob +
// record persistence. Extraction misses are expected and answered with a
// message prompting manual entry; only the final gate rejects the upload.
func (h *Handlers) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.MaxUploadBytes {
		respondError(w, http.StatusRequestEntityTooLarge, "File size exceeds limit")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)

	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "Failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile("media")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	category, err := model.ParseCategory(r.FormValue("category"))
	if err != nil {
		if r.FormValue("category") == "" {
			respondError(w, http.StatusBadRequest, "Category required")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	contentType := header.Header.Get("Content-Type")
	kind, ok := model.KindFromContentType(contentType)
	if !ok {
		respondError(w, http.StatusBadRequest, "Unsupported file type. Only images and videos are allowed.")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	pair, source, guessed, errMsg := h.resolveCoordinates(r, kind, header.Filename, data)
	if errMsg != "" {
		respondError(w, http.StatusBadRequest, errMsg)
		return
	}

	// Final validation gate before persistence; the only tier where the user
	// must take corrective action.
	if err := pair.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, _ := userFrom(r)
	storedName := uuid.NewString() + filepath.Ext(header.Filename)

	if err := h.Blobs.Save(storedName, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		h.Log.Error("saving payload failed", zap.String("name", storedName), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to store file")
		return
	}

	rec := &model.MediaRecord{
		Filename:    filepath.Base(header.Filename),
		StoredName:  storedName,
		Latitude:    pair.Latitude,
		Longitude:   pair.Longitude,
		Category:    category,
		Description: r.FormValue("description"),
		Kind:        kind,
		ContentType: contentType,
		Size:        int64(len(data)),
		UploadedAt:  time.Now(),
		UserID:      &user.ID,
	}
	if kind == model.KindImage {
		rec.ThumbName = h.makeThumbnail(storedName, data)
	}

	if err := h.Store.SaveMedia(rec); err != nil {
		h.Blobs.Delete(storedName)
		if rec.ThumbName != "" {
			h.Blobs.Delete(rec.ThumbName)
		}
		h.Log.Error("saving media record failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to save media")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":  "Media uploaded successfully",
		"media_id": rec.ID,
		"location": map[string]any{
			"latitude":  pair.Latitude,
			"longitude": pair.Longitude,
		},
		"source":       source,
		"region_guess": guessed,
	})
}

// resolveCoordinates runs the fallback tiers for an upload: the extraction
// chain for images, then caller-supplied form coordinates. The returned
// message is empty on success and user-facing otherwise.
func (h *Handlers) resolveCoordinates(r *http.Request, kind model.Kind, filename string, data []byte) (geo.CoordinatePair, string, bool, string) {
	if kind == model.KindImage {
		res, err := h.Extractor.Extract(r.Context(), &extract.Media{
			Filename: filename,
			Kind:     kind,
			Data:     data,
		})
		if err == nil {
			return res.Pair, res.Source, res.Guessed, ""
		}
		if !errors.Is(err, geo.ErrNotFound) {
			h.Log.Error("extraction chain failed", zap.String("file", filename), zap.Error(err))
		}
	}

	latStr, lngStr := r.FormValue("latitude"), r.FormValue("longitude")
	if latStr == "" || lngStr == "" {
		if kind == model.KindVideo {
			return geo.CoordinatePair{}, "", false, "Videos do not contain GPS data. Please provide latitude and longitude."
		}
		return geo.CoordinatePair{}, "", false, "No GPS data found in image. Please provide latitude and longitude."
	}

	lat, latErr := strconv.ParseFloat(latStr, 64)
	lng, lngErr := strconv.ParseFloat(lngStr, 64)
	if latErr != nil || lngErr != nil {
		return geo.CoordinatePair{}, "", false, "Latitude and longitude must be numeric"
	}
	return geo.CoordinatePair{Latitude: lat, Longitude: lng}, "manual", false, ""
}

// makeThumbnail renders a small JPEG preview; failures are logged and the
// record simply ships without one.
func (h *Handlers) makeThumbnail(storedName string, data []byte) string {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		h.Log.Warn("decoding image for thumbnail failed", zap.String("name", storedName), zap.Error(err))
		return ""
	}
	thumb := imaging.Thumbnail(img, thumbnailSize, thumbnailSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85}); err != nil {
		h.Log.Warn("encoding thumbnail failed", zap.String("name", storedName), zap.Error(err))
		return ""
	}

	thumbName := storedName + "_thumb.jpg"
	if err := h.Blobs.Save(thumbName, &buf, int64(buf.Len()), "image/jpeg"); err != nil {
		h.Log.Warn("saving thumbnail failed", zap.String("name", thumbName), zap.Error(err))
		return ""
	}
	return thumbName
}

// handleListMedia lists records, optionally restricted to a map viewport via
// minLat/maxLat/minLng/maxLng.
func (h *Handlers) handleListMedia(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category := q.Get("category")

	var records []model.MediaRecord
	var err error
	if q.Get("minLat") != "" || q.Get("maxLat") != "" || q.Get("minLng") != "" || q.Get("maxLng") != "" {
		bounds := [4]float64{}
		for i, name := range []string{"minLat", "maxLat", "minLng", "maxLng"} {
			bounds[i], err = strconv.ParseFloat(q.Get(name), 64)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Bounds must be four numeric values")
				return
			}
		}
		records, err = h.Store.ListMediaInBounds(bounds[0], bounds[1], bounds[2], bounds[3], category)
	} else {
		records, err = h.Store.ListMedia(category)
	}
	if err != nil {
		h.Log.Error("listing media failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"media": records})
}

func (h *Handlers) handleMediaByLocation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	latStr, lngStr := q.Get("lat"), q.Get("lng")
	if latStr == "" || lngStr == "" {
		respondError(w, http.StatusBadRequest, "Latitude and longitude required")
		return
	}
	lat, latErr := strconv.ParseFloat(latStr, 64)
	lng, lngErr := strconv.ParseFloat(lngStr, 64)
	if latErr != nil || lngErr != nil {
		respondError(w, http.StatusBadRequest, "Latitude and longitude must be numeric")
		return
	}

	records, err := h.Store.ListMediaNear(lat, lng, q.Get("category"))
	if err != nil {
		h.Log.Error("listing media by location failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"media": records})
}

// handleMediaFile streams a stored payload (or its thumbnail with
// ?variant=thumb).
func (h *Handlers) handleMediaFile(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid media id")
		return
	}

	rec, err := h.Store.GetMedia(uint(id))
	if err != nil {
		respondError(w, http.StatusNotFound, "Media not found")
		return
	}

	name, contentType := rec.StoredName, rec.ContentType
	if r.URL.Query().Get("variant") == "thumb" && rec.ThumbName != "" {
		name, contentType = rec.ThumbName, "image/jpeg"
	}

	blob, err := h.Blobs.Open(name)
	if err != nil {
		h.Log.Error("opening payload failed", zap.String("name", name), zap.Error(err))
		respondError(w, http.StatusNotFound, "File not found in storage")
		return
	}
	defer blob.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", rec.Filename))
	if _, err := io.Copy(w, blob); err != nil {
		h.Log.Warn("streaming payload interrupted", zap.String("name", name), zap.Error(err))
	}
}

func (h *Handlers) handleDeleteMedia(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid media id")
		return
	}
	user, _ := userFrom(r)

	rec, err := h.Store.GetMedia(uint(id))
	if err != nil {
		respondError(w, http.StatusNotFound, "Media not found or unauthorized")
		return
	}

	if err := h.Store.DeleteMedia(uint(id), user.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Media not found or unauthorized")
			return
		}
		h.Log.Error("deleting media failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}

	// The record is gone; payload cleanup is best-effort.
	h.Blobs.Delete(rec.StoredName)
	if rec.ThumbName != "" {
		h.Blobs.Delete(rec.ThumbName)
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Media deleted successfully"})
}

func (h *Handlers) handleExport(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r)
	records, err := h.Store.ListMediaByUser(user.ID)
	if err != nil {
		h.Log.Error("export failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": records})
}
