package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sepiri/certhub-api/internal/models"
	appErrors "github.com/sepiri/certhub-api/pkg/errors"
)

func newCertificateRepoMock(t *testing.T) (*CertificateRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	repo := NewCertificateRepository(sqlx.NewDb(db, "sqlmock"), nil, 0, zap.NewNop())
	return repo, mock, func() { db.Close() }
}

func certificateRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "serial_number", "participant_name", "participant_email",
		"program_code", "program_name", "institute_id", "college_name",
		"certificate_file", "issue_date", "issued_by", "email_sent",
		"email_sent_at", "created_at", "updated_at",
	}).AddRow(
		"c1", "SE-MCX-202402-ABC12345", "Jane Doe", "jane@example.com",
		"MCX", "Multi Commodity Exchange", "i1", "St. Xavier College",
		"Jane_Doe_SE-MCX-202402-ABC12345.pdf", now, nil, false,
		nil, now, now,
	)
}

func TestCertificateRepositoryCreate(t *testing.T) {
	repo, mock, cleanup := newCertificateRepoMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO certificates").
		WithArgs(
			sqlmock.AnyArg(), "SE-MCX-202402-ABC12345", "Jane Doe", "jane@example.com",
			"MCX", "Multi Commodity Exchange", "i1", "St. Xavier College",
			"Jane_Doe_SE-MCX-202402-ABC12345.pdf", sqlmock.AnyArg(), sqlmock.AnyArg(),
			false, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	cert := &models.Certificate{
		SerialNumber:     "SE-MCX-202402-ABC12345",
		ParticipantName:  "Jane Doe",
		ParticipantEmail: "jane@example.com",
		ProgramCode:      "MCX",
		ProgramName:      "Multi Commodity Exchange",
		InstituteID:      "i1",
		CollegeName:      "St. Xavier College",
		CertificateFile:  "Jane_Doe_SE-MCX-202402-ABC12345.pdf",
	}
	require.NoError(t, repo.Create(context.Background(), cert))
	assert.NotEmpty(t, cert.ID)
	assert.False(t, cert.IssueDate.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificateRepositoryCreateDuplicateSerial(t *testing.T) {
	repo, mock, cleanup := newCertificateRepoMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO certificates").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Certificate{
		SerialNumber:     "SE-MCX-202402-ABC12345",
		ParticipantName:  "Jane Doe",
		ParticipantEmail: "jane@example.com",
		ProgramCode:      "MCX",
		ProgramName:      "Multi Commodity Exchange",
		InstituteID:      "i1",
		CollegeName:      "St. Xavier College",
		CertificateFile:  "file.pdf",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateSerial))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificateRepositoryFindBySerial(t *testing.T) {
	repo, mock, cleanup := newCertificateRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM certificates WHERE serial_number = $1 LIMIT 1")).
		WithArgs("SE-MCX-202402-ABC12345").
		WillReturnRows(certificateRows())

	cert, err := repo.FindBySerial(context.Background(), "SE-MCX-202402-ABC12345")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", cert.ParticipantName)
	assert.Equal(t, "MCX", cert.ProgramCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificateRepositoryListWithFilters(t *testing.T) {
	repo, mock, cleanup := newCertificateRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM certificates WHERE 1=1 AND program_code = $1 AND institute_id = $2 ORDER BY issue_date DESC LIMIT 20 OFFSET 0")).
		WithArgs("MCX", "i1").
		WillReturnRows(certificateRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM certificates WHERE 1=1 AND program_code = $1 AND institute_id = $2")).
		WithArgs("MCX", "i1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	certs, total, err := repo.List(context.Background(), models.CertificateFilter{
		ProgramCode: "mcx",
		InstituteID: "i1",
	})
	require.NoError(t, err)
	assert.Len(t, certs, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificateRepositoryListWithDateRange(t *testing.T) {
	repo, mock, cleanup := newCertificateRepoMock(t)
	defer cleanup()

	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 29, 0, 0, 0, 0, time.UTC)

	// the date bounds take the placeholders after the preceding filters
	mock.ExpectQuery(regexp.QuoteMeta("FROM certificates WHERE 1=1 AND program_code = $1 AND issue_date >= $2 AND issue_date <= $3 ORDER BY issue_date DESC LIMIT 20 OFFSET 0")).
		WithArgs("MCX", start, end).
		WillReturnRows(certificateRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM certificates WHERE 1=1 AND program_code = $1 AND issue_date >= $2 AND issue_date <= $3")).
		WithArgs("MCX", start, end).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	certs, total, err := repo.List(context.Background(), models.CertificateFilter{
		ProgramCode: "mcx",
		StartDate:   &start,
		EndDate:     &end,
	})
	require.NoError(t, err)
	assert.Len(t, certs, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificateRepositoryMarkEmailSent(t *testing.T) {
	repo, mock, cleanup := newCertificateRepoMock(t)
	defer cleanup()

	mock.ExpectExec("UPDATE certificates SET email_sent = TRUE").
		WithArgs("c1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.MarkEmailSent(context.Background(), "c1", time.Now()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
