package devices

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"pcbd/internal/ai"
	"pcbd/internal/auth"
	"pcbd/internal/logs"
	"pcbd/internal/models"
	"pcbd/internal/storage"

	"github.com/gorilla/mux"
)

// 10 MiB cap on uploaded board photos.
const maxImageSize = 10 << 20

type HTTP struct {
	repo  *Repo
	store *storage.Store
	inv   ai.Invoker
}

func NewHTTP(repo *Repo, store *storage.Store, inv ai.Invoker) *HTTP {
	return &HTTP{repo: repo, store: store, inv: inv}
}

func (h *HTTP) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/analyze-pcb", h.analyze).Methods(http.MethodPost)

	api.HandleFunc("/devices", h.create).Methods(http.MethodPost)
	api.HandleFunc("/devices", h.list).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}", h.get).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}", h.delete).Methods(http.MethodDelete)
}

// readImage pulls the multipart "image" part and validates it is an image.
func readImage(r *http.Request) ([]byte, string, string, error) {
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		return nil, "", "", errors.New("invalid multipart form")
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, "", "", errors.New("image file not provided")
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", "", errors.New("invalid file type, please upload an image")
	}
	// Read one byte past the cap so an at-limit upload and an over-limit
	// one are distinguishable instead of silently truncated.
	data, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		return nil, "", "", errors.New("failed to read image")
	}
	if len(data) > maxImageSize {
		return nil, "", "", errors.New("image too large, limit is 10 MiB")
	}
	return data, contentType, filepath.Ext(header.Filename), nil
}

// analyze runs the vision model over an uploaded photo without persisting
// anything. The client decides whether to save the result via POST /devices.
func (h *HTTP) analyze(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	data, contentType, _, err := readImage(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := ai.AnalyzeImage(r.Context(), h.inv, data, contentType)
	if err != nil {
		logs.Logger.Errorf("pcb analysis: %v", err)
		http.Error(w, "error during AI analysis", http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(res)
}

func (h *HTTP) create(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	data, _, ext, err := readImage(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var components []string
	if raw := r.FormValue("components"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &components); err != nil {
			http.Error(w, "components must be a JSON array of strings", http.StatusBadRequest)
			return
		}
	}

	// Blob first: a device row must never reference an unwritten key.
	key, err := h.store.Save(data, ext)
	if err != nil {
		logs.Logger.Errorf("image save: %v", err)
		http.Error(w, "there was an error uploading the file", http.StatusInternalServerError)
		return
	}

	d := models.Device{
		Name:             r.FormValue("name"),
		ImageKey:         key,
		Complexity:       r.FormValue("complexity"),
		Components:       components,
		OperatingVoltage: r.FormValue("operating_voltage"),
		Description:      r.FormValue("description"),
		OwnerID:          auth.UserIDFrom(r.Context()),
	}
	if err := h.repo.Create(&d); err != nil {
		h.store.Remove(key) // don't leak the blob
		logs.Logger.Errorf("device create: %v", err)
		http.Error(w, "failed to save device", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(&d)
}

func (h *HTTP) list(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 100
	}

	ds, e := h.repo.List(offset, limit, auth.UserIDFrom(r.Context()))
	if e != nil {
		http.Error(w, e.Error(), http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(ds)
}

func (h *HTTP) get(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid device id", http.StatusBadRequest)
		return
	}
	d, err := h.repo.GetWithMessages(uint(id), auth.UserIDFrom(r.Context()))
	if err != nil {
		if errors.Is(err, ErrDeviceNotFound) {
			http.Error(w, "device not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(d)
}

func (h *HTTP) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid device id", http.StatusBadRequest)
		return
	}
	imageKey, err := h.repo.Delete(uint(id), auth.UserIDFrom(r.Context()))
	if err != nil {
		if errors.Is(err, ErrDeviceNotFound) {
			http.Error(w, "device not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	// Rows are gone; blob removal is best-effort and must not fail the call.
	h.store.Remove(imageKey)
	w.WriteHeader(http.StatusNoContent)
}
