package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sepiri/certhub-api/internal/models"
	appErrors "github.com/sepiri/certhub-api/pkg/errors"
)

type instituteRepository interface {
	ListActive(ctx context.Context) ([]models.Institute, error)
	FindByID(ctx context.Context, id string) (*models.Institute, error)
	ExistsByName(ctx context.Context, collegeName, excludeID string) (bool, error)
	Create(ctx context.Context, institute *models.Institute) error
	UpdateName(ctx context.Context, id, collegeName string) error
	SoftDelete(ctx context.Context, id string) error
}

// InstituteService manages the partner institute catalog.
type InstituteService struct {
	repo      instituteRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewInstituteService constructs an InstituteService.
func NewInstituteService(repo instituteRepository, validate *validator.Validate, logger *zap.Logger) *InstituteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &InstituteService{repo: repo, validator: validate, logger: logger}
}

// List returns all active institutes.
func (s *InstituteService) List(ctx context.Context) ([]models.Institute, error) {
	institutes, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list institutes")
	}
	return institutes, nil
}

// Get returns a single institute by id.
func (s *InstituteService) Get(ctx context.Context, id string) (*models.Institute, error) {
	institute, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "institute not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load institute")
	}
	return institute, nil
}

// Create adds a new institute after a duplicate-name check.
func (s *InstituteService) Create(ctx context.Context, req models.InstituteRequest, createdBy *string) (*models.Institute, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid institute payload")
	}

	name := strings.TrimSpace(req.CollegeName)
	exists, err := s.repo.ExistsByName(ctx, name, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check institute name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "institute with this name already exists")
	}

	institute := &models.Institute{
		CollegeName: name,
		CreatedBy:   createdBy,
		Active:      true,
	}
	if err := s.repo.Create(ctx, institute); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create institute")
	}

	s.logger.Info("institute_created", zap.String("institute_id", institute.ID), zap.String("college", institute.CollegeName))
	return institute, nil
}

// Rename changes the college name of an existing institute.
func (s *InstituteService) Rename(ctx context.Context, id string, req models.InstituteRequest) (*models.Institute, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid institute payload")
	}

	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.CollegeName)
	exists, err := s.repo.ExistsByName(ctx, name, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check institute name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "institute with this name already exists")
	}

	if err := s.repo.UpdateName(ctx, id, name); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rename institute")
	}
	return s.Get(ctx, id)
}

// Deactivate soft-deletes an institute. Existing certificates keep their
// denormalized college name.
func (s *InstituteService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate institute")
	}
	s.logger.Info("institute_deactivated", zap.String("institute_id", id))
	return nil
}
