package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"lookout/internal/alerting"
	"lookout/internal/auth"
	"lookout/internal/detection"
	"lookout/internal/imaging"
	"lookout/internal/watchlist"
)

const maxUploadBytes = 10 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Server] Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"session_running": s.deps.Manager.Running(),
		"capture_running": s.deps.Provider.Running(),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, expiresAt, err := s.deps.Auth.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrAuthDisabled) {
			writeError(w, http.StatusBadRequest, "authentication is disabled")
			return
		}
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_at": expiresAt,
	})
}

func (s *Server) handleWatchlistList(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.Store.SnapshotAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []watchlist.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleWatchlistEnroll accepts a multipart form with "name", "type" and an
// "image" file, and enrolls the single face found in the image.
func (s *Server) handleWatchlistEnroll(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	name := r.FormValue("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	faceType := watchlist.FaceType(r.FormValue("type"))
	if !faceType.Valid() {
		writeError(w, http.StatusBadRequest, "type must be blacklist or whitelist")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read image")
		return
	}

	img, err := imaging.Decode(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not decode image")
		return
	}

	embedding, err := s.deps.Enroll(r.Context(), img)
	if err != nil {
		switch {
		case errors.Is(err, detection.ErrNoFaces):
			writeError(w, http.StatusUnprocessableEntity, "no face detected in the image")
		case errors.Is(err, detection.ErrMultipleFaces):
			writeError(w, http.StatusUnprocessableEntity, "more than one face detected in the image")
		default:
			log.Printf("[Server] Enrollment failed: %v", err)
			writeError(w, http.StatusInternalServerError, "enrollment failed")
		}
		return
	}

	entry := &watchlist.Entry{
		ID:        uuid.New().String(),
		Name:      name,
		Embedding: embedding,
		Type:      faceType,
		CreatedAt: time.Now(),
	}
	if err := s.deps.Store.Insert(entry); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("[Server] %s enrolled %s (%s)", requestUser(r.Context()), entry.Name, entry.Type)
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleWatchlistDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	entry, err := s.deps.Store.Get(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "watchlist entry not found")
		return
	}

	if err := s.deps.Store.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogsList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := s.deps.Logs.Recent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []alerting.LogRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleLogsClear(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Logs.Clear(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Manager.StartSession(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	log.Printf("[Server] Session started by %s", requestUser(r.Context()))
	writeJSON(w, http.StatusOK, map[string]interface{}{"running": true})
}

func (s *Server) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	s.deps.Manager.StopSession()
	log.Printf("[Server] Session stopped by %s", requestUser(r.Context()))
	writeJSON(w, http.StatusOK, map[string]interface{}{"running": false})
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"running": s.deps.Manager.Running(),
		"stats":   s.deps.Manager.Stats(),
		"capture": s.deps.Provider.Stats(),
	})
}

func (s *Server) handleConfigGet(w http.ResponseWriter, r *http.Request) {
	cfg := s.deps.Config
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"mode":                 cfg.Mode,
		"similarity_threshold": cfg.SimilarityThreshold,
		"frame_interval_ms":    cfg.FrameInterval.Milliseconds(),
		"alert_cooldown_s":     int(cfg.AlertCooldown.Seconds()),
		"camera_device":        cfg.CameraDevice,
		"telegram_configured":  cfg.TelegramConfigured(),
	})
}
