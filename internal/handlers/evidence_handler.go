package handlers

import (
	"net/http"
	"strconv"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/repositories"
	"github.com/SAP-F-2025/proctoring-service/internal/services"
	"github.com/SAP-F-2025/proctoring-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type EvidenceHandler struct {
	BaseHandler
	evidenceService services.EvidenceService
	validator       *utils.Validator
}

type ConfirmUploadRequest struct {
	UploadToken string `json:"upload_token" validate:"required"`
	FileSize    int64  `json:"file_size" validate:"required,gt=0"`
	Checksum    string `json:"checksum" validate:"required,max=128"`
}

func NewEvidenceHandler(
	evidenceService services.EvidenceService,
	validator *utils.Validator,
	logger utils.Logger,
) *EvidenceHandler {
	return &EvidenceHandler{
		BaseHandler:     NewBaseHandler(logger),
		evidenceService: evidenceService,
		validator:       validator,
	}
}

// RequestUpload registers an evidence artifact and returns an upload
// handle
// @Summary Request evidence upload
// @Tags evidence
// @Accept json
// @Produce json
// @Param id path uint true "Session ID"
// @Param evidence body services.RequestUploadRequest true "Evidence data"
// @Success 201 {object} services.UploadHandleResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /proctoring/sessions/{id}/evidence [post]
func (h *EvidenceHandler) RequestUpload(c *gin.Context) {
	sessionID := parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}
	candidateID := requireUserID(c)
	if candidateID == "" {
		return
	}

	var req services.RequestUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Registering evidence upload", "session_id", sessionID, "type", req.Type)

	handle, err := h.evidenceService.RequestUpload(c.Request.Context(), sessionID, &req, candidateID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handle)
}

// ConfirmUpload completes the two-phase evidence upload
// @Summary Confirm evidence upload
// @Tags evidence
// @Accept json
// @Produce json
// @Param confirmation body ConfirmUploadRequest true "Upload confirmation"
// @Success 200 {object} models.ProctorEvidence
// @Failure 400 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Router /proctoring/evidence/confirm [post]
func (h *EvidenceHandler) ConfirmUpload(c *gin.Context) {
	var req ConfirmUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
		return
	}

	evidence, err := h.evidenceService.ConfirmUpload(c.Request.Context(), req.UploadToken, req.FileSize, req.Checksum)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, evidence)
}

// ListEvidence lists a session's evidence records
// @Summary List session evidence
// @Tags evidence
// @Produce json
// @Param id path uint true "Session ID"
// @Param type query string false "Evidence type"
// @Param is_uploaded query bool false "Uploaded only"
// @Success 200 {array} models.ProctorEvidence
// @Failure 404 {object} ErrorResponse
// @Router /proctoring/sessions/{id}/evidence [get]
func (h *EvidenceHandler) ListEvidence(c *gin.Context) {
	sessionID := parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}

	filters := repositories.EvidenceFilters{
		Limit:  queryInt(c, "limit", 100),
		Offset: queryInt(c, "offset", 0),
	}
	if evidenceType := c.Query("type"); evidenceType != "" {
		et := models.EvidenceType(evidenceType)
		filters.Type = &et
	}
	if uploaded := c.Query("is_uploaded"); uploaded != "" {
		if v, err := strconv.ParseBool(uploaded); err == nil {
			filters.IsUploaded = &v
		}
	}

	evidence, err := h.evidenceService.ListBySession(c.Request.Context(), sessionID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, evidence)
}

// SweepEvidence triggers the retention sweep on demand
// @Summary Sweep expired evidence
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]int64
// @Router /proctoring/admin/sweep/evidence [post]
func (h *EvidenceHandler) SweepEvidence(c *gin.Context) {
	count, err := h.evidenceService.SweepExpired(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expired": count})
}
