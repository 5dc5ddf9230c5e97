package handler

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sepiri/certhub-api/internal/models"
	"github.com/sepiri/certhub-api/internal/service"
	appErrors "github.com/sepiri/certhub-api/pkg/errors"
	"github.com/sepiri/certhub-api/pkg/response"
)

type certificateService interface {
	Issue(ctx context.Context, req models.BatchRequest, issuedBy *string) (*models.BatchResult, error)
	List(ctx context.Context, filter models.CertificateFilter) ([]models.Certificate, *models.Pagination, error)
	GetBySerial(ctx context.Context, serialNumber string) (*models.Certificate, error)
	DownloadPath(ctx context.Context, serialNumber string) (string, string, error)
	Programs() []models.Program
	VerifySMTP(ctx context.Context) error
}

type registryExporter interface {
	Generate(ctx context.Context, format service.ExportFormat, filter models.CertificateFilter) (*service.ExportResult, error)
	ParseToken(token string, allowExpired bool) (exportID, relPath string, expiresAt time.Time, err error)
	Open(relPath string) (*os.File, error)
}

// CertificateHandler wires HTTP endpoints to the certificate services.
type CertificateHandler struct {
	service certificateService
	exports registryExporter
}

// NewCertificateHandler creates a new handler.
func NewCertificateHandler(svc certificateService, exports registryExporter) *CertificateHandler {
	return &CertificateHandler{service: svc, exports: exports}
}

// Generate godoc
// @Summary Issue certificates for a batch of participants
// @Description Renders, persists and emails one certificate per participant
// @Tags Certificates
// @Accept json
// @Produce json
// @Param payload body models.BatchRequest true "Batch payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /certificates/generate [post]
func (h *CertificateHandler) Generate(c *gin.Context) {
	var req models.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid batch payload"))
		return
	}

	var issuedBy *string
	if claims := claimsFromContext(c); claims != nil {
		issuedBy = &claims.UserID
	}

	result, err := h.service.Issue(c.Request.Context(), req, issuedBy)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List issued certificates
// @Tags Certificates
// @Produce json
// @Param programCode query string false "Program code"
// @Param instituteId query string false "Institute id"
// @Param email query string false "Participant email"
// @Param startDate query string false "Issue date lower bound (RFC 3339 or YYYY-MM-DD)"
// @Param endDate query string false "Issue date upper bound"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /certificates [get]
func (h *CertificateHandler) List(c *gin.Context) {
	filter := models.CertificateFilter{
		ProgramCode: c.Query("programCode"),
		InstituteID: c.Query("instituteId"),
		Email:       c.Query("email"),
	}
	if raw := c.Query("startDate"); raw != "" {
		ts, err := parseDate(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid startDate"))
			return
		}
		filter.StartDate = &ts
	}
	if raw := c.Query("endDate"); raw != "" {
		ts, err := parseDate(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid endDate"))
			return
		}
		filter.EndDate = &ts
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	certs, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, certs, pagination)
}

// GetBySerial godoc
// @Summary Look up a certificate by serial number
// @Tags Certificates
// @Produce json
// @Param serialNumber path string true "Serial number"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /certificates/{serialNumber} [get]
func (h *CertificateHandler) GetBySerial(c *gin.Context) {
	cert, err := h.service.GetBySerial(c.Request.Context(), c.Param("serialNumber"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, cert, nil)
}

// Download godoc
// @Summary Download a certificate PDF
// @Tags Certificates
// @Produce application/pdf
// @Param serialNumber path string true "Serial number"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /certificates/{serialNumber}/download [get]
func (h *CertificateHandler) Download(c *gin.Context) {
	path, filename, err := h.service.DownloadPath(c.Request.Context(), c.Param("serialNumber"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.FileAttachment(path, filename)
}

// Programs godoc
// @Summary List available programs
// @Tags Certificates
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /certificates/programs/list [get]
func (h *CertificateHandler) Programs(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Programs(), nil)
}

// SMTPTest godoc
// @Summary Verify SMTP connectivity
// @Tags Certificates
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /certificates/smtp/test [get]
func (h *CertificateHandler) SMTPTest(c *gin.Context) {
	if err := h.service.VerifySMTP(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"smtp": "ok"}, nil)
}

// Export godoc
// @Summary Export the certificate registry
// @Tags Certificates
// @Produce json
// @Security BearerAuth
// @Param format query string false "csv or pdf" default(csv)
// @Param programCode query string false "Program code"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /certificates/export [get]
func (h *CertificateHandler) Export(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	filter := models.CertificateFilter{
		ProgramCode: c.Query("programCode"),
		InstituteID: c.Query("instituteId"),
	}

	result, err := h.exports.Generate(c.Request.Context(), format, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// ExportDownload godoc
// @Summary Download a registry export via signed token
// @Tags Certificates
// @Produce application/octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /certificates/export/download/{token} [get]
func (h *CertificateHandler) ExportDownload(c *gin.Context) {
	_, relPath, _, err := h.exports.ParseToken(c.Param("token"), false)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token"))
		return
	}

	file, err := h.exports.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available"))
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export file"))
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+info.Name())
	c.DataFromReader(http.StatusOK, info.Size(), contentTypeFor(relPath), file, nil)
}

func contentTypeFor(path string) string {
	if len(path) > 4 && path[len(path)-4:] == ".pdf" {
		return "application/pdf"
	}
	return "text/csv"
}

func parseDate(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", raw)
}
