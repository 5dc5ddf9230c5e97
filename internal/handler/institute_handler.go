package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sepiri/certhub-api/internal/models"
	appErrors "github.com/sepiri/certhub-api/pkg/errors"
	"github.com/sepiri/certhub-api/pkg/response"
)

type instituteService interface {
	List(ctx context.Context) ([]models.Institute, error)
	Get(ctx context.Context, id string) (*models.Institute, error)
	Create(ctx context.Context, req models.InstituteRequest, createdBy *string) (*models.Institute, error)
	Rename(ctx context.Context, id string, req models.InstituteRequest) (*models.Institute, error)
	Deactivate(ctx context.Context, id string) error
}

// InstituteHandler wires HTTP endpoints to the institute service.
type InstituteHandler struct {
	service instituteService
}

// NewInstituteHandler creates a new handler.
func NewInstituteHandler(svc instituteService) *InstituteHandler {
	return &InstituteHandler{service: svc}
}

// List godoc
// @Summary List active institutes
// @Tags Institutes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /institutes [get]
func (h *InstituteHandler) List(c *gin.Context) {
	institutes, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, institutes, nil)
}

// Get godoc
// @Summary Get an institute by id
// @Tags Institutes
// @Produce json
// @Param id path string true "Institute id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /institutes/{id} [get]
func (h *InstituteHandler) Get(c *gin.Context) {
	institute, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, institute, nil)
}

// Create godoc
// @Summary Register a partner institute
// @Tags Institutes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.InstituteRequest true "Institute payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /institutes [post]
func (h *InstituteHandler) Create(c *gin.Context) {
	var req models.InstituteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid institute payload"))
		return
	}

	var createdBy *string
	if claims := claimsFromContext(c); claims != nil {
		createdBy = &claims.UserID
	}

	institute, err := h.service.Create(c.Request.Context(), req, createdBy)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, institute)
}

// Update godoc
// @Summary Rename an institute
// @Tags Institutes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Institute id"
// @Param payload body models.InstituteRequest true "Institute payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /institutes/{id} [put]
func (h *InstituteHandler) Update(c *gin.Context) {
	var req models.InstituteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid institute payload"))
		return
	}

	institute, err := h.service.Rename(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, institute, nil)
}

// Delete godoc
// @Summary Deactivate an institute
// @Tags Institutes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Institute id"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /institutes/{id} [delete]
func (h *InstituteHandler) Delete(c *gin.Context) {
	if err := h.service.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
