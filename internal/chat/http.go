package chat

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"pcbd/internal/auth"
	"pcbd/internal/devices"
	"pcbd/internal/logs"

	"github.com/gorilla/mux"
)

type HTTP struct {
	devices   *devices.Repo
	repo      *Repo
	assembler *Assembler
}

func NewHTTP(dr *devices.Repo, cr *Repo, a *Assembler) *HTTP {
	return &HTTP{devices: dr, repo: cr, assembler: a}
}

func (h *HTTP) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/devices/{id}/chat-history", h.history).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}/chat", h.chat).Methods(http.MethodPost)
	api.HandleFunc("/devices/{id}/chat-with-image", h.chatWithImage).Methods(http.MethodPost)
}

func deviceID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	return uint(id), err == nil
}

func (h *HTTP) history(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	id, ok := deviceID(r)
	if !ok {
		http.Error(w, "invalid device id", http.StatusBadRequest)
		return
	}
	if _, err := h.devices.Get(id, auth.UserIDFrom(r.Context())); err != nil {
		if errors.Is(err, devices.ErrDeviceNotFound) {
			http.Error(w, "device not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	msgs, err := h.repo.History(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(msgs)
}

// chatMessage pulls the user's text from a JSON body or a form field.
func chatMessage(r *http.Request) string {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var in struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err == nil {
			return strings.TrimSpace(in.Message)
		}
		return ""
	}
	return strings.TrimSpace(r.FormValue("message"))
}

func (h *HTTP) chat(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	id, ok := deviceID(r)
	if !ok {
		http.Error(w, "invalid device id", http.StatusBadRequest)
		return
	}
	msg := chatMessage(r)
	if msg == "" {
		http.Error(w, "message required", http.StatusBadRequest)
		return
	}

	reply, err := h.assembler.Turn(r.Context(), id, auth.UserIDFrom(r.Context()), msg)
	if err != nil {
		if errors.Is(err, devices.ErrDeviceNotFound) {
			http.Error(w, "device not found", http.StatusNotFound)
			return
		}
		logs.Logger.Errorf("chat turn device=%d: %v", id, err)
		http.Error(w, "error during AI processing", http.StatusInternalServerError)
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"device_id":   id,
		"ai_response": reply,
	})
}

// chatWithImage answers one question about a device, optionally against a
// freshly uploaded photo. The turn is stateless: nothing is appended to the
// device's transcript, and the image only exists as a data URL in the request
// sent to the model.
func (h *HTTP) chatWithImage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	id, ok := deviceID(r)
	if !ok {
		http.Error(w, "invalid device id", http.StatusBadRequest)
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	msg := strings.TrimSpace(r.FormValue("message"))
	if msg == "" {
		http.Error(w, "message required", http.StatusBadRequest)
		return
	}

	d, err := h.devices.Get(id, auth.UserIDFrom(r.Context()))
	if err != nil {
		if errors.Is(err, devices.ErrDeviceNotFound) {
			http.Error(w, "device not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// The image part is optional; anything that is not an image is ignored.
	var imageURL string
	if file, header, ferr := r.FormFile("image"); ferr == nil {
		defer file.Close()
		if ct := header.Header.Get("Content-Type"); strings.HasPrefix(ct, "image/") {
			data, rerr := io.ReadAll(file)
			if rerr != nil {
				http.Error(w, "failed to read image", http.StatusBadRequest)
				return
			}
			imageURL = fmt.Sprintf("data:%s;base64,%s", ct, base64.StdEncoding.EncodeToString(data))
		}
	}

	reply, err := h.assembler.AdHocTurn(r.Context(), d, msg, imageURL)
	if err != nil {
		logs.Logger.Errorf("chat with image device=%d: %v", id, err)
		http.Error(w, "error during AI processing", http.StatusInternalServerError)
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"device_id":      d.ID,
		"device_name":    d.Name,
		"user_message":   msg,
		"image_provided": imageURL != "",
		"ai_response":    reply,
	})
}
