package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/KCD1111/DMVREAL/constants"
	"github.com/KCD1111/DMVREAL/internal/common"
	"github.com/KCD1111/DMVREAL/internal/pipeline"
	"github.com/KCD1111/DMVREAL/internal/store"
	"github.com/KCD1111/DMVREAL/internal/validate"
)

// rawTextPreviewLen bounds raw_ocr_text in API responses; the full text
// stays in the session row.
const rawTextPreviewLen = 500

type processResponse struct {
	Success          bool               `json:"success"`
	SessionID        string             `json:"session_id"`
	LicenseID        string             `json:"license_id,omitempty"`
	RawOCRText       string             `json:"raw_ocr_text"`
	ExtractedData    map[string]any     `json:"extracted_data"`
	Confidence       map[string]float64 `json:"confidence_scores"`
	ExtractionMethod string             `json:"extraction_method"`
	NormalizedData   map[string]any     `json:"normalized_data"`
	ValidationReport *validate.Report   `json:"validation_report"`
	ProcessingTimeMs int64              `json:"processing_time_ms"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleProcessDocument(w http.ResponseWriter, r *http.Request) {
	s.processUpload(w, r, "document")
}

// handleProcessPDF keeps the original upload endpoint alive for clients
// that still post the file under the "pdf" form key.
func (s *Server) handleProcessPDF(w http.ResponseWriter, r *http.Request) {
	s.processUpload(w, r, "pdf")
}

func (s *Server) processUpload(w http.ResponseWriter, r *http.Request, formKey string) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("parse upload: %v", err))
		return
	}

	file, header, err := r.FormFile(formKey)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("missing %q file field", formKey))
		return
	}
	defer file.Close()

	ext := constants.NormalizeExt(filepath.Ext(header.Filename))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported file type %q", ext))
		return
	}

	tmpPath, err := saveUpload(file, ext)
	if err != nil {
		s.log.Error("server.save_upload", "error", err)
		writeError(w, http.StatusInternalServerError, "could not store upload")
		return
	}
	defer os.Remove(tmpPath)

	res, err := s.processor.ProcessFile(r.Context(), tmpPath, header.Filename, ext)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, common.ErrNoTextExtracted):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, common.ErrInvalidInput):
			status = http.StatusBadRequest
		case errors.Is(err, common.ErrCollaboratorUnavailable):
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toProcessResponse(res))
}

func toProcessResponse(res *pipeline.Result) processResponse {
	preview := res.RawText
	if len(preview) > rawTextPreviewLen {
		preview = preview[:rawTextPreviewLen]
	}
	return processResponse{
		Success:          true,
		SessionID:        res.SessionID,
		LicenseID:        res.LicenseID,
		RawOCRText:       preview,
		ExtractedData:    res.ExtractedData,
		Confidence:       res.Confidence,
		ExtractionMethod: res.Method,
		NormalizedData:   res.NormalizedData,
		ValidationReport: res.ValidationReport,
		ProcessingTimeMs: res.ProcessingTimeMs,
	}
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.store.GetSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		s.log.Error("server.get_session", "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	resp := map[string]any{"success": true, "session": sess}
	if lic, err := s.store.GetLicense(r.Context(), id); err == nil {
		resp["license"] = lic
		if lic.ConfidenceJSON != "" {
			resp["confidence_scores"] = json.RawMessage(lic.ConfidenceJSON)
		}
		if lic.ValidationJSON != "" {
			resp["validation_report"] = json.RawMessage(lic.ValidationJSON)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	num := strings.TrimSpace(chi.URLParam(r, "licenseNumber"))
	if num == "" {
		writeError(w, http.StatusBadRequest, "license number required")
		return
	}
	licenses, err := s.store.SearchByLicenseNumber(r.Context(), num)
	if err != nil {
		s.log.Error("server.search", "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if licenses == nil {
		licenses = []*store.License{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"count":    len(licenses),
		"licenses": licenses,
	})
}

func (s *Server) handleRecentSessions(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be 1..100")
			return
		}
		limit = n
	}
	sessions, err := s.store.RecentSessions(r.Context(), limit)
	if err != nil {
		s.log.Error("server.recent_sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if sessions == nil {
		sessions = []*store.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"count":    len(sessions),
		"sessions": sessions,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="licenses.xlsx"`)
	if err := s.exporter.WriteRecent(r.Context(), w, limit); err != nil {
		s.log.Error("server.export", "error", err)
	}
}

func saveUpload(file io.Reader, ext string) (string, error) {
	tmp, err := os.CreateTemp("", "upload-*."+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer tmp.Close()
	if _, err := io.Copy(tmp, file); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	return tmp.Name(), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}
