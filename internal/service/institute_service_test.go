package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sepiri/certhub-api/internal/models"
	appErrors "github.com/sepiri/certhub-api/pkg/errors"
)

type mockInstituteRepo struct {
	items       map[string]*models.Institute
	deactivated []string
	renamed     map[string]string
}

func newMockInstituteRepo() *mockInstituteRepo {
	return &mockInstituteRepo{
		items: map[string]*models.Institute{
			"i1": {ID: "i1", CollegeName: "St. Xavier College", Active: true},
		},
		renamed: map[string]string{},
	}
}

func (m *mockInstituteRepo) ListActive(ctx context.Context) ([]models.Institute, error) {
	out := make([]models.Institute, 0)
	for _, institute := range m.items {
		if institute.Active {
			out = append(out, *institute)
		}
	}
	return out, nil
}

func (m *mockInstituteRepo) FindByID(ctx context.Context, id string) (*models.Institute, error) {
	if institute, ok := m.items[id]; ok {
		cp := *institute
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockInstituteRepo) ExistsByName(ctx context.Context, collegeName, excludeID string) (bool, error) {
	for id, institute := range m.items {
		if institute.Active && strings.EqualFold(institute.CollegeName, collegeName) && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockInstituteRepo) Create(ctx context.Context, institute *models.Institute) error {
	institute.ID = "new-id"
	m.items[institute.ID] = institute
	return nil
}

func (m *mockInstituteRepo) UpdateName(ctx context.Context, id, collegeName string) error {
	m.renamed[id] = collegeName
	m.items[id].CollegeName = collegeName
	return nil
}

func (m *mockInstituteRepo) SoftDelete(ctx context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	m.items[id].Active = false
	return nil
}

func TestInstituteServiceCreate(t *testing.T) {
	repo := newMockInstituteRepo()
	svc := NewInstituteService(repo, nil, nil)

	creator := "user-1"
	institute, err := svc.Create(context.Background(), models.InstituteRequest{CollegeName: "  New College  "}, &creator)
	require.NoError(t, err)
	assert.Equal(t, "New College", institute.CollegeName)
	assert.True(t, institute.Active)
	require.NotNil(t, institute.CreatedBy)
	assert.Equal(t, "user-1", *institute.CreatedBy)
}

func TestInstituteServiceCreateRejectsDuplicateName(t *testing.T) {
	repo := newMockInstituteRepo()
	svc := NewInstituteService(repo, nil, nil)

	_, err := svc.Create(context.Background(), models.InstituteRequest{CollegeName: "st. xavier college"}, nil)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestInstituteServiceCreateRejectsShortName(t *testing.T) {
	svc := NewInstituteService(newMockInstituteRepo(), nil, nil)

	_, err := svc.Create(context.Background(), models.InstituteRequest{CollegeName: "ab"}, nil)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestInstituteServiceRename(t *testing.T) {
	repo := newMockInstituteRepo()
	svc := NewInstituteService(repo, nil, nil)

	institute, err := svc.Rename(context.Background(), "i1", models.InstituteRequest{CollegeName: "Renamed College"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed College", institute.CollegeName)

	_, err = svc.Rename(context.Background(), "missing", models.InstituteRequest{CollegeName: "Whatever College"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestInstituteServiceDeactivate(t *testing.T) {
	repo := newMockInstituteRepo()
	svc := NewInstituteService(repo, nil, nil)

	require.NoError(t, svc.Deactivate(context.Background(), "i1"))
	assert.Equal(t, []string{"i1"}, repo.deactivated)

	err := svc.Deactivate(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
