package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sepiri/certhub-api/internal/middleware"
	"github.com/sepiri/certhub-api/internal/models"
	appErrors "github.com/sepiri/certhub-api/pkg/errors"
)

type instituteServiceMock struct {
	listResp  []models.Institute
	getResp   *models.Institute
	getErr    error
	created   *models.Institute
	createdBy *string
	createErr error
}

func (m *instituteServiceMock) List(ctx context.Context) ([]models.Institute, error) {
	return m.listResp, nil
}

func (m *instituteServiceMock) Get(ctx context.Context, id string) (*models.Institute, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.getResp, nil
}

func (m *instituteServiceMock) Create(ctx context.Context, req models.InstituteRequest, createdBy *string) (*models.Institute, error) {
	m.createdBy = createdBy
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = &models.Institute{ID: "inst-1", CollegeName: req.CollegeName, CreatedBy: createdBy, Active: true}
	return m.created, nil
}

func (m *instituteServiceMock) Rename(ctx context.Context, id string, req models.InstituteRequest) (*models.Institute, error) {
	return &models.Institute{ID: id, CollegeName: req.CollegeName, Active: true}, nil
}

func (m *instituteServiceMock) Deactivate(ctx context.Context, id string) error {
	return m.getErr
}

func TestInstituteHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &instituteServiceMock{listResp: []models.Institute{{ID: "inst-1", CollegeName: "National College", Active: true}}}
	h := NewInstituteHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/institutes", nil)
	c.Request = req

	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data []models.Institute `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "National College", envelope.Data[0].CollegeName)
}

func TestInstituteHandlerCreateRecordsActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &instituteServiceMock{}
	h := NewInstituteHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(models.InstituteRequest{CollegeName: "City Engineering College"})
	req, _ := http.NewRequest(http.MethodPost, "/institutes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, mock.createdBy)
	assert.Equal(t, "admin-1", *mock.createdBy)
}

func TestInstituteHandlerCreateConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &instituteServiceMock{createErr: appErrors.Clone(appErrors.ErrConflict, "institute with this name already exists")}
	h := NewInstituteHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(models.InstituteRequest{CollegeName: "City Engineering College"})
	req, _ := http.NewRequest(http.MethodPost, "/institutes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Create(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestInstituteHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &instituteServiceMock{getErr: appErrors.Clone(appErrors.ErrNotFound, "institute not found")}
	h := NewInstituteHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/institutes/missing", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	h.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
