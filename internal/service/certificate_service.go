package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sepiri/certhub-api/internal/models"
	"github.com/sepiri/certhub-api/internal/serial"
	"github.com/sepiri/certhub-api/internal/template"
	appErrors "github.com/sepiri/certhub-api/pkg/errors"
	"github.com/sepiri/certhub-api/pkg/mailer"
)

// maxSerialAttempts bounds the retry loop when an insert collides on the
// serial number unique index.
const maxSerialAttempts = 3

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	unsafeNamePattern = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
)

type certificateRepository interface {
	Create(ctx context.Context, cert *models.Certificate) error
	FindBySerial(ctx context.Context, serialNumber string) (*models.Certificate, error)
	List(ctx context.Context, filter models.CertificateFilter) ([]models.Certificate, int, error)
	MarkEmailSent(ctx context.Context, id string, sentAt time.Time) error
}

type instituteReader interface {
	FindByID(ctx context.Context, id string) (*models.Institute, error)
}

type certificateTemplateRenderer interface {
	Render(data template.CertificateData) (string, error)
}

type emailTemplateRenderer interface {
	Render(data template.EmailData) (string, error)
}

type pdfExporter interface {
	Export(ctx context.Context, html, filename string) (string, error)
	Path(filename string) string
	Remove(filename string) error
}

type certificateMailer interface {
	Send(ctx context.Context, msg mailer.Message) error
	Verify(ctx context.Context) error
}

type issuanceMetrics interface {
	CertificateIssued(programCode string)
	CertificateFailed(programCode string)
	CertificateEmailSent()
	ObserveRenderDuration(d time.Duration)
}

// CertificateService orchestrates batch issuance: serial generation,
// template rendering, PDF export, persistence and email delivery.
type CertificateService struct {
	repo       certificateRepository
	institutes instituteReader
	certTmpl   certificateTemplateRenderer
	emailTmpl  emailTemplateRenderer
	pdf        pdfExporter
	mailer     certificateMailer
	metrics    issuanceMetrics
	validator  *validator.Validate
	logger     *zap.Logger

	programs           map[string]string
	participantTimeout time.Duration
}

// NewCertificateService constructs a CertificateService. mailer may be nil
// when SMTP is not configured; certificates are then issued without email
// delivery. metrics may be nil.
func NewCertificateService(
	repo certificateRepository,
	institutes instituteReader,
	certTmpl certificateTemplateRenderer,
	emailTmpl emailTemplateRenderer,
	pdf pdfExporter,
	m certificateMailer,
	metrics issuanceMetrics,
	validate *validator.Validate,
	logger *zap.Logger,
	programs map[string]string,
	participantTimeout time.Duration,
) *CertificateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if participantTimeout <= 0 {
		participantTimeout = 90 * time.Second
	}
	// A typed nil from an unconfigured SMTP setup counts as no mailer.
	if mm, ok := m.(*mailer.Mailer); ok && mm == nil {
		m = nil
	}
	return &CertificateService{
		repo:               repo,
		institutes:         institutes,
		certTmpl:           certTmpl,
		emailTmpl:          emailTmpl,
		pdf:                pdf,
		mailer:             m,
		metrics:            metrics,
		validator:          validate,
		logger:             logger,
		programs:           programs,
		participantTimeout: participantTimeout,
	}
}

// Issue processes a batch sequentially. Program and institute are validated
// up front; a bad batch header aborts before any certificate is generated.
// Per-participant failures are collected so one broken entry never sinks
// the rest of the batch.
func (s *CertificateService) Issue(ctx context.Context, req models.BatchRequest, issuedBy *string) (*models.BatchResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}

	programCode := strings.ToUpper(strings.TrimSpace(req.ProgramCode))
	programName, ok := s.programs[programCode]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown program code: %s", req.ProgramCode))
	}

	institute, err := s.institutes.FindByID(ctx, req.InstituteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "institute not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load institute")
	}
	if !institute.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "institute is inactive")
	}

	result := &models.BatchResult{
		Total:  len(req.Participants),
		Failed: make([]models.BatchFailure, 0),
	}

	for _, participant := range req.Participants {
		pctx, cancel := context.WithTimeout(ctx, s.participantTimeout)
		detail, err := s.issueOne(pctx, participant, programCode, programName, institute, issuedBy)
		cancel()

		if err != nil {
			s.logger.Warn("certificate_issue_failed",
				zap.String("participant", participant.Email),
				zap.String("program", programCode),
				zap.Error(err),
			)
			if s.metrics != nil {
				s.metrics.CertificateFailed(programCode)
			}
			result.Failed = append(result.Failed, models.BatchFailure{
				Name:  participant.Name,
				Email: participant.Email,
				Error: err.Error(),
			})
			continue
		}

		result.Successful++
		result.Details = append(result.Details, *detail)
	}

	s.logger.Info("batch_completed",
		zap.String("program", programCode),
		zap.Int("total", result.Total),
		zap.Int("successful", result.Successful),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// issueOne generates, renders, exports and persists a single certificate,
// then attempts delivery. A duplicate serial retries the whole sequence
// with a fresh serial so no record or file ever references a colliding one.
func (s *CertificateService) issueOne(ctx context.Context, participant models.Participant, programCode, programName string, institute *models.Institute, issuedBy *string) (*models.BatchDetail, error) {
	var cert *models.Certificate

	for attempt := 1; ; attempt++ {
		serialNumber, err := serial.Generate(programCode)
		if err != nil {
			return nil, fmt.Errorf("generate serial: %w", err)
		}

		issueDate := time.Now().UTC()
		issueDateText := issueDate.Format("January 2, 2006")

		renderStart := time.Now()
		html, err := s.certTmpl.Render(template.CertificateData{
			ParticipantName: participant.Name,
			ProgramCode:     programCode,
			ProgramFullName: programName,
			CollegeName:     institute.CollegeName,
			SerialNumber:    serialNumber,
			IssueDate:       issueDateText,
		})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrRenderFailed.Code, appErrors.ErrRenderFailed.Status, "certificate rendering failed")
		}

		filename := pdfFilename(participant.Name, serialNumber)
		storedFile, err := s.pdf.Export(ctx, html, filename)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrRenderFailed.Code, appErrors.ErrRenderFailed.Status, "pdf export failed")
		}
		if s.metrics != nil {
			s.metrics.ObserveRenderDuration(time.Since(renderStart))
		}

		cert = &models.Certificate{
			SerialNumber:     serialNumber,
			ParticipantName:  strings.TrimSpace(participant.Name),
			ParticipantEmail: strings.ToLower(strings.TrimSpace(participant.Email)),
			ProgramCode:      programCode,
			ProgramName:      programName,
			InstituteID:      institute.ID,
			CollegeName:      institute.CollegeName,
			CertificateFile:  storedFile,
			IssueDate:        issueDate,
			IssuedBy:         issuedBy,
		}

		err = s.repo.Create(ctx, cert)
		if err == nil {
			break
		}
		// The exported PDF references a serial that will never be persisted.
		if rmErr := s.pdf.Remove(storedFile); rmErr != nil {
			s.logger.Warn("stale_pdf_cleanup_failed", zap.String("file", storedFile), zap.Error(rmErr))
		}
		if appErrors.Is(err, appErrors.ErrDuplicateSerial) && attempt < maxSerialAttempts {
			s.logger.Warn("serial_collision_retry",
				zap.String("serial", serialNumber),
				zap.Int("attempt", attempt),
			)
			continue
		}
		return nil, fmt.Errorf("persist certificate: %w", err)
	}

	if s.metrics != nil {
		s.metrics.CertificateIssued(programCode)
	}

	detail := &models.BatchDetail{
		Name:         cert.ParticipantName,
		Email:        cert.ParticipantEmail,
		SerialNumber: cert.SerialNumber,
	}

	if s.mailer == nil {
		return detail, nil
	}

	if err := s.deliver(ctx, cert); err != nil {
		// The record and PDF stay in place with email_sent = FALSE so the
		// delivery can be repeated later.
		return nil, appErrors.Wrap(err, appErrors.ErrDeliveryFailed.Code, appErrors.ErrDeliveryFailed.Status,
			fmt.Sprintf("certificate %s issued but email delivery failed", cert.SerialNumber))
	}

	if err := s.repo.MarkEmailSent(ctx, cert.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("mark_email_sent_failed", zap.String("serial", cert.SerialNumber), zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.CertificateEmailSent()
	}
	detail.EmailSent = true
	return detail, nil
}

func (s *CertificateService) deliver(ctx context.Context, cert *models.Certificate) error {
	body, err := s.emailTmpl.Render(template.EmailData{
		ParticipantName: cert.ParticipantName,
		ProgramName:     cert.ProgramName,
		ProgramCode:     cert.ProgramCode,
		CollegeName:     cert.CollegeName,
		SerialNumber:    cert.SerialNumber,
		IssueDate:       cert.IssueDate.Format("January 2, 2006"),
	})
	if err != nil {
		return fmt.Errorf("render email: %w", err)
	}

	return s.mailer.Send(ctx, mailer.Message{
		To:             cert.ParticipantEmail,
		Subject:        template.Subject(cert.ProgramName, cert.SerialNumber),
		HTMLBody:       body,
		AttachmentPath: s.pdf.Path(cert.CertificateFile),
		AttachmentName: cert.CertificateFile,
	})
}

// GetBySerial returns a certificate by its serial number after a format check.
func (s *CertificateService) GetBySerial(ctx context.Context, serialNumber string) (*models.Certificate, error) {
	serialNumber = strings.ToUpper(strings.TrimSpace(serialNumber))
	if !serial.Validate(serialNumber) {
		return nil, appErrors.Clone(appErrors.ErrInvalidSerial, fmt.Sprintf("invalid serial number format: %s", serialNumber))
	}

	cert, err := s.repo.FindBySerial(ctx, serialNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}
	return cert, nil
}

// List returns certificates matching the filter with pagination metadata.
func (s *CertificateService) List(ctx context.Context, filter models.CertificateFilter) ([]models.Certificate, *models.Pagination, error) {
	certs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list certificates")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	return certs, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// DownloadPath resolves the on-disk path of a certificate PDF.
func (s *CertificateService) DownloadPath(ctx context.Context, serialNumber string) (string, string, error) {
	cert, err := s.GetBySerial(ctx, serialNumber)
	if err != nil {
		return "", "", err
	}
	return s.pdf.Path(cert.CertificateFile), cert.CertificateFile, nil
}

// Programs returns the program catalog in stable order.
func (s *CertificateService) Programs() []models.Program {
	codes := make([]string, 0, len(s.programs))
	for code := range s.programs {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	programs := make([]models.Program, 0, len(codes))
	for _, code := range codes {
		programs = append(programs, models.Program{Code: code, Name: s.programs[code]})
	}
	return programs
}

// VerifySMTP checks the mail transport connectivity.
func (s *CertificateService) VerifySMTP(ctx context.Context) error {
	if s.mailer == nil {
		return appErrors.Clone(appErrors.ErrValidation, "smtp is not configured")
	}
	if err := s.mailer.Verify(ctx); err != nil {
		return appErrors.Wrap(err, appErrors.ErrDeliveryFailed.Code, appErrors.ErrDeliveryFailed.Status, "smtp verification failed")
	}
	return nil
}

// pdfFilename builds the stored filename from the participant's name and the
// serial. Anything outside [A-Za-z0-9_-] is dropped so a crafted name cannot
// smuggle path segments into the output directory.
func pdfFilename(participantName, serialNumber string) string {
	name := whitespacePattern.ReplaceAllString(strings.TrimSpace(participantName), "_")
	name = unsafeNamePattern.ReplaceAllString(name, "")
	if name == "" {
		name = "participant"
	}
	return fmt.Sprintf("%s_%s.pdf", name, serialNumber)
}
