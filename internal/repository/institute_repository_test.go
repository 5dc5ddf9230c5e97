package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sepiri/certhub-api/internal/models"
)

func newInstituteRepoMock(t *testing.T) (*InstituteRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewInstituteRepository(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func TestInstituteRepositoryListActive(t *testing.T) {
	repo, mock, cleanup := newInstituteRepoMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "college_name", "created_by", "active", "created_at", "updated_at"}).
		AddRow("i1", "St. Xavier College", nil, true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM institutes WHERE active = TRUE ORDER BY created_at DESC")).
		WillReturnRows(rows)

	institutes, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, institutes, 1)
	assert.Equal(t, "St. Xavier College", institutes[0].CollegeName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInstituteRepositoryCreateAndSoftDelete(t *testing.T) {
	repo, mock, cleanup := newInstituteRepoMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO institutes").
		WithArgs(sqlmock.AnyArg(), "St. Xavier College", sqlmock.AnyArg(), true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	institute := &models.Institute{CollegeName: "St. Xavier College", Active: true}
	require.NoError(t, repo.Create(context.Background(), institute))
	assert.NotEmpty(t, institute.ID)

	mock.ExpectExec("UPDATE institutes SET active = FALSE").
		WithArgs("i1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.SoftDelete(context.Background(), "i1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInstituteRepositoryExistsByName(t *testing.T) {
	repo, mock, cleanup := newInstituteRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM institutes WHERE LOWER(college_name) = LOWER($1) AND active = TRUE LIMIT 1")).
		WithArgs("St. Xavier College").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.ExistsByName(context.Background(), "St. Xavier College", "")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM institutes WHERE LOWER(college_name) = LOWER($1) AND active = TRUE AND id <> $2 LIMIT 1")).
		WithArgs("St. Xavier College", "i1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	exists, err = repo.ExistsByName(context.Background(), "St. Xavier College", "i1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
