package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sepiri/certhub-api/internal/models"
	"github.com/sepiri/certhub-api/internal/serial"
	"github.com/sepiri/certhub-api/internal/template"
	appErrors "github.com/sepiri/certhub-api/pkg/errors"
	"github.com/sepiri/certhub-api/pkg/mailer"
)

type mockCertRepo struct {
	created       []*models.Certificate
	emailSent     []string
	bySerial      map[string]*models.Certificate
	duplicateLeft int
	createErr     error
}

func (m *mockCertRepo) Create(ctx context.Context, cert *models.Certificate) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.duplicateLeft > 0 {
		m.duplicateLeft--
		return appErrors.Clone(appErrors.ErrDuplicateSerial, "serial number already exists")
	}
	cert.ID = fmt.Sprintf("cert-%d", len(m.created)+1)
	m.created = append(m.created, cert)
	return nil
}

func (m *mockCertRepo) FindBySerial(ctx context.Context, serialNumber string) (*models.Certificate, error) {
	if cert, ok := m.bySerial[serialNumber]; ok {
		cp := *cert
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCertRepo) List(ctx context.Context, filter models.CertificateFilter) ([]models.Certificate, int, error) {
	out := make([]models.Certificate, 0, len(m.created))
	for _, cert := range m.created {
		out = append(out, *cert)
	}
	return out, len(out), nil
}

func (m *mockCertRepo) MarkEmailSent(ctx context.Context, id string, sentAt time.Time) error {
	m.emailSent = append(m.emailSent, id)
	for _, cert := range m.created {
		if cert.ID == id {
			cert.EmailSent = true
			ts := sentAt
			cert.EmailSentAt = &ts
		}
	}
	return nil
}

type mockInstituteReader struct {
	items map[string]*models.Institute
}

func (m *mockInstituteReader) FindByID(ctx context.Context, id string) (*models.Institute, error) {
	if institute, ok := m.items[id]; ok {
		cp := *institute
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type mockCertTmpl struct {
	err error
}

func (m *mockCertTmpl) Render(data template.CertificateData) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "<html>" + data.ParticipantName + " " + data.SerialNumber + "</html>", nil
}

type mockEmailTmpl struct {
	err error
}

func (m *mockEmailTmpl) Render(data template.EmailData) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "<html>email for " + data.SerialNumber + "</html>", nil
}

type mockPDF struct {
	exported []string
	removed  []string
	err      error
}

func (m *mockPDF) Export(ctx context.Context, html, filename string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.exported = append(m.exported, filename)
	return filename, nil
}

func (m *mockPDF) Path(filename string) string {
	return "/data/certificates/" + filename
}

func (m *mockPDF) Remove(filename string) error {
	m.removed = append(m.removed, filename)
	return nil
}

type mockMailer struct {
	sent    []mailer.Message
	failFor map[string]error
	err     error
}

func (m *mockMailer) Send(ctx context.Context, msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	if err, ok := m.failFor[msg.To]; ok {
		return err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockMailer) Verify(ctx context.Context) error {
	return m.err
}

func testPrograms() map[string]string {
	return map[string]string{
		"MCX": "Multi Commodity Exchange",
		"BSE": "Bombay Stock Exchange",
	}
}

func testInstitutes() *mockInstituteReader {
	return &mockInstituteReader{items: map[string]*models.Institute{
		"i1": {ID: "i1", CollegeName: "St. Xavier College", Active: true},
		"i2": {ID: "i2", CollegeName: "Closed College", Active: false},
	}}
}

func newTestService(repo *mockCertRepo, pdf *mockPDF, m certificateMailer) *CertificateService {
	return NewCertificateService(repo, testInstitutes(), &mockCertTmpl{}, &mockEmailTmpl{}, pdf, m, nil, nil, nil, testPrograms(), time.Minute)
}

func TestIssueBatchSuccess(t *testing.T) {
	repo := &mockCertRepo{}
	pdf := &mockPDF{}
	mail := &mockMailer{}
	svc := newTestService(repo, pdf, mail)

	operator := "user-1"
	result, err := svc.Issue(context.Background(), models.BatchRequest{
		Participants: []models.Participant{
			{Name: "Jane Doe", Email: "JANE@Example.com"},
			{Name: "John Smith", Email: "john@example.com"},
		},
		ProgramCode: "mcx",
		InstituteID: "i1",
	}, &operator)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Successful)
	assert.Empty(t, result.Failed)
	require.Len(t, result.Details, 2)
	assert.True(t, result.Details[0].EmailSent)

	require.Len(t, repo.created, 2)
	cert := repo.created[0]
	assert.True(t, serial.Validate(cert.SerialNumber))
	assert.Equal(t, "MCX", cert.ProgramCode)
	assert.Equal(t, "Multi Commodity Exchange", cert.ProgramName)
	assert.Equal(t, "St. Xavier College", cert.CollegeName)
	assert.Equal(t, "jane@example.com", cert.ParticipantEmail)
	require.NotNil(t, cert.IssuedBy)
	assert.Equal(t, "user-1", *cert.IssuedBy)
	assert.Equal(t, "Jane_Doe_"+cert.SerialNumber+".pdf", cert.CertificateFile)

	require.Len(t, mail.sent, 2)
	assert.Equal(t, "jane@example.com", mail.sent[0].To)
	assert.Contains(t, mail.sent[0].Subject, "Certificate of Participation - Multi Commodity Exchange")
	assert.Contains(t, mail.sent[0].Subject, cert.SerialNumber)
	assert.Equal(t, "/data/certificates/"+cert.CertificateFile, mail.sent[0].AttachmentPath)

	assert.Len(t, repo.emailSent, 2)
}

func TestIssueSanitizesParticipantNameInFilename(t *testing.T) {
	repo := &mockCertRepo{}
	pdf := &mockPDF{}
	svc := newTestService(repo, pdf, &mockMailer{})

	result, err := svc.Issue(context.Background(), models.BatchRequest{
		Participants: []models.Participant{{Name: "../../Evil Name", Email: "evil@example.com"}},
		ProgramCode:  "MCX",
		InstituteID:  "i1",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Successful)

	// a name carrying path segments must not steer the PDF outside the
	// output directory
	require.Len(t, pdf.exported, 1)
	filename := pdf.exported[0]
	assert.NotContains(t, filename, "/")
	assert.NotContains(t, filename, "\\")
	assert.NotContains(t, filename, "..")
	assert.True(t, strings.HasPrefix(filename, "Evil_Name_"))
	require.Len(t, repo.created, 1)
	assert.Equal(t, filename, repo.created[0].CertificateFile)
}

func TestIssueRejectsUnknownProgram(t *testing.T) {
	repo := &mockCertRepo{}
	svc := newTestService(repo, &mockPDF{}, &mockMailer{})

	_, err := svc.Issue(context.Background(), models.BatchRequest{
		Participants: []models.Participant{{Name: "Jane Doe", Email: "jane@example.com"}},
		ProgramCode:  "XYZ",
		InstituteID:  "i1",
	}, nil)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, repo.created)
}

func TestIssueRejectsMissingOrInactiveInstitute(t *testing.T) {
	repo := &mockCertRepo{}
	svc := newTestService(repo, &mockPDF{}, &mockMailer{})

	_, err := svc.Issue(context.Background(), models.BatchRequest{
		Participants: []models.Participant{{Name: "Jane Doe", Email: "jane@example.com"}},
		ProgramCode:  "MCX",
		InstituteID:  "missing",
	}, nil)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Issue(context.Background(), models.BatchRequest{
		Participants: []models.Participant{{Name: "Jane Doe", Email: "jane@example.com"}},
		ProgramCode:  "MCX",
		InstituteID:  "i2",
	}, nil)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, repo.created)
}

func TestIssueEmailFailureKeepsRecord(t *testing.T) {
	repo := &mockCertRepo{}
	mail := &mockMailer{failFor: map[string]error{"jane@example.com": errors.New("smtp unreachable")}}
	svc := newTestService(repo, &mockPDF{}, mail)

	result, err := svc.Issue(context.Background(), models.BatchRequest{
		Participants: []models.Participant{
			{Name: "Jane Doe", Email: "jane@example.com"},
			{Name: "John Smith", Email: "john@example.com"},
		},
		ProgramCode: "MCX",
		InstituteID: "i1",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Successful)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "jane@example.com", result.Failed[0].Email)
	assert.Contains(t, result.Failed[0].Error, "email delivery failed")

	// the record for the failed delivery is still persisted
	require.Len(t, repo.created, 2)
	assert.Len(t, repo.emailSent, 1)
}

func TestIssueRetriesOnDuplicateSerial(t *testing.T) {
	repo := &mockCertRepo{duplicateLeft: 2}
	pdf := &mockPDF{}
	svc := newTestService(repo, pdf, &mockMailer{})

	result, err := svc.Issue(context.Background(), models.BatchRequest{
		Participants: []models.Participant{{Name: "Jane Doe", Email: "jane@example.com"}},
		ProgramCode:  "MCX",
		InstituteID:  "i1",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Successful)
	require.Len(t, repo.created, 1)
	// each attempt regenerates the serial and re-exports the PDF; the two
	// colliding exports are cleaned up again
	assert.Len(t, pdf.exported, 3)
	assert.Equal(t, pdf.exported[:2], pdf.removed)
	assert.True(t, strings.HasSuffix(repo.created[0].CertificateFile, repo.created[0].SerialNumber+".pdf"))
}

func TestIssueGivesUpAfterRepeatedCollisions(t *testing.T) {
	repo := &mockCertRepo{duplicateLeft: maxSerialAttempts}
	pdf := &mockPDF{}
	svc := newTestService(repo, pdf, &mockMailer{})

	result, err := svc.Issue(context.Background(), models.BatchRequest{
		Participants: []models.Participant{{Name: "Jane Doe", Email: "jane@example.com"}},
		ProgramCode:  "MCX",
		InstituteID:  "i1",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Successful)
	require.Len(t, result.Failed, 1)
	assert.Empty(t, repo.created)
	// no export survives a batch that never persisted a record
	assert.Equal(t, pdf.exported, pdf.removed)
}

func TestIssuePDFFailureSkipsPersistence(t *testing.T) {
	repo := &mockCertRepo{}
	svc := newTestService(repo, &mockPDF{err: errors.New("browser crashed")}, &mockMailer{})

	result, err := svc.Issue(context.Background(), models.BatchRequest{
		Participants: []models.Participant{{Name: "Jane Doe", Email: "jane@example.com"}},
		ProgramCode:  "MCX",
		InstituteID:  "i1",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Successful)
	require.Len(t, result.Failed, 1)
	assert.Contains(t, result.Failed[0].Error, "pdf export failed")
	assert.Empty(t, repo.created)
}

func TestIssueWithoutMailerSkipsDelivery(t *testing.T) {
	repo := &mockCertRepo{}
	svc := NewCertificateService(repo, testInstitutes(), &mockCertTmpl{}, &mockEmailTmpl{}, &mockPDF{}, nil, nil, nil, nil, testPrograms(), time.Minute)

	result, err := svc.Issue(context.Background(), models.BatchRequest{
		Participants: []models.Participant{{Name: "Jane Doe", Email: "jane@example.com"}},
		ProgramCode:  "MCX",
		InstituteID:  "i1",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Successful)
	require.Len(t, result.Details, 1)
	assert.False(t, result.Details[0].EmailSent)
	require.Len(t, repo.created, 1)
	assert.False(t, repo.created[0].EmailSent)
}

func TestGetBySerial(t *testing.T) {
	repo := &mockCertRepo{bySerial: map[string]*models.Certificate{
		"SE-MCX-202402-ABC12345": {SerialNumber: "SE-MCX-202402-ABC12345", ParticipantName: "Jane Doe"},
	}}
	svc := newTestService(repo, &mockPDF{}, &mockMailer{})

	cert, err := svc.GetBySerial(context.Background(), "se-mcx-202402-abc12345")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", cert.ParticipantName)

	_, err = svc.GetBySerial(context.Background(), "not-a-serial")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidSerial))

	_, err = svc.GetBySerial(context.Background(), "SE-BSE-202402-00FF00FF")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestProgramsCatalogIsSorted(t *testing.T) {
	svc := newTestService(&mockCertRepo{}, &mockPDF{}, &mockMailer{})

	programs := svc.Programs()
	require.Len(t, programs, 2)
	assert.Equal(t, "BSE", programs[0].Code)
	assert.Equal(t, "MCX", programs[1].Code)
}
