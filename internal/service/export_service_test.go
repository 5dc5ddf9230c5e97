package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sepiri/certhub-api/internal/models"
	appErrors "github.com/sepiri/certhub-api/pkg/errors"
	"github.com/sepiri/certhub-api/pkg/storage"
)

type mockCertLister struct {
	certs []models.Certificate
}

func (m *mockCertLister) ListAll(ctx context.Context, filter models.CertificateFilter) ([]models.Certificate, error) {
	return m.certs, nil
}

func newTestExportService(t *testing.T) (*ExportService, *mockCertLister) {
	t.Helper()
	st, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("export-secret", time.Hour)
	lister := &mockCertLister{certs: []models.Certificate{
		{
			SerialNumber:     "SE-MCX-202402-ABC12345",
			ParticipantName:  "Jane Doe",
			ParticipantEmail: "jane@example.com",
			ProgramCode:      "MCX",
			ProgramName:      "Multi Commodity Exchange",
			CollegeName:      "St. Xavier College",
			IssueDate:        time.Date(2024, 2, 12, 10, 0, 0, 0, time.UTC),
			EmailSent:        true,
		},
	}}
	svc := NewExportService(lister, st, signer, ExportConfig{APIPrefix: "/api"}, nil, nil, nil)
	return svc, lister
}

func TestExportServiceGenerateCSV(t *testing.T) {
	svc, _ := newTestExportService(t)

	result, err := svc.Generate(context.Background(), ExportFormatCSV, models.CertificateFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Records)
	assert.True(t, strings.HasPrefix(result.URL, "/api/certificates/export/download/"))
	assert.True(t, strings.HasSuffix(result.RelativePath, ".csv"))

	file, err := svc.Open(result.RelativePath)
	require.NoError(t, err)
	defer file.Close()
	content, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Contains(t, string(content), "SE-MCX-202402-ABC12345")
	assert.Contains(t, string(content), "Multi Commodity Exchange (MCX)")
	assert.Contains(t, string(content), "yes")
}

func TestExportServiceGeneratePDF(t *testing.T) {
	svc, _ := newTestExportService(t)

	result, err := svc.Generate(context.Background(), ExportFormatPDF, models.CertificateFilter{ProgramCode: "MCX"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(result.RelativePath, ".pdf"))

	file, err := svc.Open(result.RelativePath)
	require.NoError(t, err)
	defer file.Close()
	header := make([]byte, 4)
	_, err = file.Read(header)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(header))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc, _ := newTestExportService(t)

	_, err := svc.Generate(context.Background(), ExportFormat("xlsx"), models.CertificateFilter{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestExportServiceTokenRoundTrip(t *testing.T) {
	svc, _ := newTestExportService(t)

	result, err := svc.Generate(context.Background(), ExportFormatCSV, models.CertificateFilter{})
	require.NoError(t, err)

	_, relPath, _, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, result.RelativePath, relPath)

	_, _, _, err = svc.ParseToken(result.Token+"tamper", false)
	require.Error(t, err)
}
