package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sepiri/certhub-api/internal/models"
	appErrors "github.com/sepiri/certhub-api/pkg/errors"
	"github.com/sepiri/certhub-api/pkg/export"
	"github.com/sepiri/certhub-api/pkg/storage"
)

// ExportFormat selects the registry export rendering.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type certificateLister interface {
	ListAll(ctx context.Context, filter models.CertificateFilter) ([]models.Certificate, error)
}

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes registry export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string       `json:"-"`
	Token        string       `json:"token"`
	URL          string       `json:"url"`
	Format       ExportFormat `json:"format"`
	Records      int          `json:"records"`
	ExpiresAt    time.Time    `json:"expiresAt"`
}

// ExportService renders the certificate registry into downloadable files
// behind signed URLs.
type ExportService struct {
	certs   certificateLister
	storage exportStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(certs certificateLister, st exportStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		certs:   certs,
		storage: st,
		csv:     csv,
		pdf:     pdf,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// Generate builds the registry dataset and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, format ExportFormat, filter models.CertificateFilter) (*ExportResult, error) {
	dataset, title, records, err := s.buildDataset(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build registry dataset")
	}

	var payload []byte
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format: %s", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render registry export")
	}

	exportID := uuid.NewString()
	filename := buildExportFilename(filter.ProgramCode, format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store registry export")
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api"
	}

	s.logger.Info("registry_exported",
		zap.String("format", string(format)),
		zap.Int("records", records),
		zap.String("file", relPath),
	)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/certificates/export/download/%s", prefix, token),
		Format:       format,
		Records:      records,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (exportID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Cleanup removes export files older than ttl (defaults to ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildDataset(ctx context.Context, filter models.CertificateFilter) (export.Dataset, string, int, error) {
	certs, err := s.certs.ListAll(ctx, filter)
	if err != nil {
		return export.Dataset{}, "", 0, err
	}

	rows := make([]map[string]string, 0, len(certs))
	for _, cert := range certs {
		emailSent := "no"
		if cert.EmailSent {
			emailSent = "yes"
		}
		rows = append(rows, map[string]string{
			"Serial Number": cert.SerialNumber,
			"Participant":   cert.ParticipantName,
			"Email":         cert.ParticipantEmail,
			"Program":       fmt.Sprintf("%s (%s)", cert.ProgramName, cert.ProgramCode),
			"Institute":     cert.CollegeName,
			"Issue Date":    cert.IssueDate.UTC().Format("2006-01-02"),
			"Email Sent":    emailSent,
		})
	}

	dataset := export.Dataset{
		Headers: []string{"Serial Number", "Participant", "Email", "Program", "Institute", "Issue Date", "Email Sent"},
		Rows:    rows,
	}

	title := "Certificate Registry"
	if filter.ProgramCode != "" {
		title = fmt.Sprintf("Certificate Registry %s", strings.ToUpper(filter.ProgramCode))
	}
	return dataset, title, len(rows), nil
}

func buildExportFilename(programCode string, format ExportFormat) string {
	scope := "all"
	if programCode != "" {
		scope = strings.ToLower(programCode)
	}
	timestamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("registry_%s_%s.%s", scope, timestamp, format)
}
