package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/copia/internal/interfaces"
	"github.com/ternarybob/copia/internal/models"
	"github.com/ternarybob/copia/internal/services/importer"
)

// ImportHandler handles import job API requests
type ImportHandler struct {
	importService  *importer.Service
	staleThreshold time.Duration
	validate       *validator.Validate
	logger         arbor.ILogger
}

// NewImportHandler creates a new import handler
func NewImportHandler(importService *importer.Service, staleThreshold time.Duration, logger arbor.ILogger) *ImportHandler {
	return &ImportHandler{
		importService:  importService,
		staleThreshold: staleThreshold,
		validate:       validator.New(),
		logger:         logger,
	}
}

// SubmitImportRequest is the body of POST /api/imports.
type SubmitImportRequest struct {
	SourceLabel string             `json:"source_label" validate:"required,max=200"`
	Mode        *models.ImportMode `json:"mode"`
	Records     []models.RawRecord `json:"records" validate:"required,min=1"`
}

// jobStatusResponse is the wire shape of one import job.
type jobStatusResponse struct {
	ID             string            `json:"id"`
	SourceLabel    string            `json:"source_label"`
	Mode           models.ImportMode `json:"mode"`
	Status         string            `json:"status"`
	Total          int               `json:"total"`
	Processed      int               `json:"processed"`
	Imported       int               `json:"imported"`
	Updated        int               `json:"updated"`
	Skipped        int               `json:"skipped"`
	Errors         int               `json:"errors"`
	Error          string            `json:"error,omitempty"`
	Stalled        bool              `json:"stalled,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	LastActivityAt time.Time         `json:"last_activity_at"`
	StartedAt      *time.Time        `json:"started_at,omitempty"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
}

func (h *ImportHandler) jobResponse(job *models.ImportJob) jobStatusResponse {
	return jobStatusResponse{
		ID:             job.ID,
		SourceLabel:    job.SourceLabel,
		Mode:           job.Mode,
		Status:         string(job.Status),
		Total:          job.Total,
		Processed:      job.Processed,
		Imported:       job.Imported,
		Updated:        job.Updated,
		Skipped:        job.Skipped,
		Errors:         job.Errors,
		Error:          job.Error,
		Stalled:        job.IsStalled(h.staleThreshold, time.Now()),
		CreatedAt:      job.CreatedAt,
		LastActivityAt: job.LastActivityAt,
		StartedAt:      job.StartedAt,
		CompletedAt:    job.CompletedAt,
	}
}

// SubmitHandler accepts a batch of raw records for background import
// POST /api/imports
func (h *ImportHandler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	ownerID, ok := RequireOwner(w, r)
	if !ok {
		return
	}

	var req SubmitImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	// Omitted mode means a full upsert: create what's new, refresh the rest.
	mode := models.ImportMode{UpdateExisting: true, ImportNew: true}
	if req.Mode != nil {
		mode = *req.Mode
	}

	job, err := h.importService.Submit(r.Context(), ownerID, req.SourceLabel, mode, req.Records)
	if err != nil {
		if errors.Is(err, importer.ErrNoRecords) || errors.Is(err, importer.ErrTooManyRecords) {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("owner_id", ownerID).Msg("Failed to submit import")
		WriteError(w, http.StatusInternalServerError, "Failed to submit import")
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": string(job.Status),
	})
}

// ListHandler returns the owner's recent import jobs
// GET /api/imports?limit=10
func (h *ImportHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	ownerID, ok := RequireOwner(w, r)
	if !ok {
		return
	}

	limit := QueryInt(r, "limit", 0)
	jobs, err := h.importService.ListRecent(r.Context(), ownerID, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("owner_id", ownerID).Msg("Failed to list import jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to list import jobs")
		return
	}

	responses := make([]jobStatusResponse, 0, len(jobs))
	for _, job := range jobs {
		responses = append(responses, h.jobResponse(job))
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  responses,
		"count": len(responses),
	})
}

// GetHandler returns one import job's status
// GET /api/imports/{id}
func (h *ImportHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	ownerID, ok := RequireOwner(w, r)
	if !ok {
		return
	}
	jobID := jobIDFromPath(r.URL.Path)
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	job, err := h.importService.GetJob(r.Context(), jobID, ownerID)
	if err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to get import job")
		WriteError(w, http.StatusInternalServerError, "Failed to get import job")
		return
	}

	WriteJSON(w, http.StatusOK, h.jobResponse(job))
}

// CancelHandler requests cooperative cancellation of a running import
// POST /api/imports/{id}/cancel
func (h *ImportHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	ownerID, ok := RequireOwner(w, r)
	if !ok {
		return
	}
	jobID := jobIDFromPath(strings.TrimSuffix(r.URL.Path, "/cancel"))
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	requested, err := h.importService.Cancel(r.Context(), jobID, ownerID)
	if err != nil {
		// Unknown and foreign jobs get the same 400 as terminal ones, so
		// a cancel probe reveals nothing about other owners' jobs.
		if errors.Is(err, interfaces.ErrJobNotFound) {
			WriteError(w, http.StatusBadRequest, "Job not found or already finished")
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to cancel import job")
		WriteError(w, http.StatusInternalServerError, "Failed to cancel import job")
		return
	}
	if !requested {
		WriteError(w, http.StatusBadRequest, "Job not found or already finished")
		return
	}

	h.logger.Info().Str("job_id", jobID).Str("owner_id", ownerID).Msg("Cancellation requested")
	WriteJSON(w, http.StatusOK, map[string]string{
		"job_id": jobID,
		"status": "cancellation_requested",
	})
}

// jobIDFromPath extracts the id segment from /api/imports/{id}[...]
func jobIDFromPath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}
