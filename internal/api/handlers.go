package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/splitsy/internal/bill"
	"github.com/zombor/splitsy/internal/scanning"
	"github.com/zombor/splitsy/internal/split"
	"github.com/zombor/splitsy/internal/summary"
)

const (
	// maxUploadSize allows high-resolution phone photos
	maxUploadSize = int64(50 << 20)
	// maxBodySize caps JSON request bodies
	maxBodySize = int64(1 << 20)
	// maxParticipants caps how many people a session can be resized to
	maxParticipants = 100
)

type sessionRequest struct {
	Bill         bill.Bill `json:"bill"`
	Participants int       `json:"participants"`
}

type resizeRequest struct {
	Snapshot     Snapshot `json:"snapshot"`
	Participants int      `json:"participants"`
}

type itemRequest struct {
	Snapshot Snapshot `json:"snapshot"`
	ID       string   `json:"id"`
	ItemEdit
}

type chargesRequest struct {
	Snapshot Snapshot `json:"snapshot"`
	Charges
}

type methodRequest struct {
	Snapshot Snapshot     `json:"snapshot"`
	Method   split.Method `json:"method"`
}

type participantRequest struct {
	Snapshot Snapshot `json:"snapshot"`
	ID       string   `json:"id"`
	Name     string   `json:"name"`
}

type assignmentRequest struct {
	Snapshot      Snapshot `json:"snapshot"`
	ItemID        string   `json:"item_id"`
	ParticipantID string   `json:"participant_id"`
}

type summaryRequest struct {
	Snapshot
	Options   summary.Options   `json:"options"`
	Transport summary.Transport `json:"transport"`
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON encodes v with the given status
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes a JSON error body
func writeError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

// writeSnapshot writes the edited snapshot, or a 404 for unknown IDs
func writeSnapshot(w http.ResponseWriter, snap Snapshot, err error) {
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, ErrNotFound) {
			code = http.StatusNotFound
		}
		writeError(w, err.Error(), code)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// decodeJSON reads a JSON request body into v, writing a 400 on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		slog.Warn("Invalid request body", "path", r.URL.Path, "error", err)
		writeError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

// handleHealth reports that the server is up
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleExtract scans an uploaded receipt into a bill
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		writeError(w, errorMsg, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			errorMsg = "No file was selected. Please choose a receipt photo to upload."
		}
		writeError(w, errorMsg, http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}
	if len(data) == 0 {
		writeError(w, "The uploaded file is empty.", http.StatusBadRequest)
		return
	}

	contentType := detectContentType(header.Header.Get("Content-Type"), header.Filename)

	b, err := s.service.Extract(r.Context(), header.Filename, data, contentType)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, b)
}

// detectContentType prefers the part's declared type and falls back to the
// file extension
func detectContentType(declared, filename string) string {
	contentType := strings.ToLower(strings.TrimSpace(declared))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// handleNormalize turns hand-entered receipt data into a bill
func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	var data scanning.ReceiptData
	if !decodeJSON(w, r, &data) {
		return
	}
	writeJSON(w, http.StatusOK, s.service.Normalize(&data))
}

// handleNewSession starts a session with default participants
func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Participants > maxParticipants {
		writeError(w, fmt.Sprintf("At most %d participants are supported", maxParticipants), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.service.NewSession(req.Bill, req.Participants))
}

// handleResize changes the participant count of an equal split
func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	var req resizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Participants < 0 || req.Participants > maxParticipants {
		writeError(w, fmt.Sprintf("Participants must be between 0 and %d", maxParticipants), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Resize(req.Snapshot, req.Participants))
}

// handleSplit allocates the bill across the participants
func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	var snap Snapshot
	if !decodeJSON(w, r, &snap) {
		return
	}
	writeJSON(w, http.StatusOK, s.service.Split(snap))
}

// handleSummary renders the shareable summary
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := s.service.Summarize(req.Snapshot, req.Options, req.Transport)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleAddItem appends a hand-entered item
func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.service.AddItem(req.Snapshot, req.ItemEdit))
}

// handleEditItem updates the fields of an item that were sent
func (s *Server) handleEditItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	snap, err := s.service.EditItem(req.Snapshot, req.ID, req.ItemEdit)
	writeSnapshot(w, snap, err)
}

// handleRemoveItem deletes an item
func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	snap, err := s.service.RemoveItem(req.Snapshot, req.ID)
	writeSnapshot(w, snap, err)
}

// handleCharges sets tax and service
func (s *Server) handleCharges(w http.ResponseWriter, r *http.Request) {
	var req chargesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.service.SetCharges(req.Snapshot, req.Charges))
}

// handleMethod switches the split method
func (s *Server) handleMethod(w http.ResponseWriter, r *http.Request) {
	var req methodRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.service.SetMethod(req.Snapshot, req.Method))
}

// handleAddParticipant appends a participant
func (s *Server) handleAddParticipant(w http.ResponseWriter, r *http.Request) {
	var req participantRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Snapshot.Participants) >= maxParticipants {
		writeError(w, fmt.Sprintf("At most %d participants are supported", maxParticipants), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.service.AddParticipant(req.Snapshot, req.Name))
}

// handleRemoveParticipant removes a participant
func (s *Server) handleRemoveParticipant(w http.ResponseWriter, r *http.Request) {
	var req participantRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	snap, err := s.service.RemoveParticipant(req.Snapshot, req.ID)
	writeSnapshot(w, snap, err)
}

// handleRenameParticipant renames a participant
func (s *Server) handleRenameParticipant(w http.ResponseWriter, r *http.Request) {
	var req participantRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	snap, err := s.service.RenameParticipant(req.Snapshot, req.ID, req.Name)
	writeSnapshot(w, snap, err)
}

// handleToggleAssignment flips whether a participant shares an item
func (s *Server) handleToggleAssignment(w http.ResponseWriter, r *http.Request) {
	var req assignmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	snap, err := s.service.ToggleAssignment(req.Snapshot, req.ItemID, req.ParticipantID)
	writeSnapshot(w, snap, err)
}
