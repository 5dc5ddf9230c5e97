package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sepiri/certhub-api/pkg/config"
)

func testBranding() config.CertificateConfig {
	return config.CertificateConfig{
		Width:         1920,
		Height:        1080,
		InstituteName: "Sepiri EduHub",
		Tagline:       "Excellence in Financial Education",
	}
}

func TestCertificateRendererIncludesAllFields(t *testing.T) {
	r, err := NewCertificateRenderer(testBranding())
	require.NoError(t, err)

	html, err := r.Render(CertificateData{
		ParticipantName: "Jane Doe",
		ProgramCode:     "MCX",
		ProgramFullName: "Multi Commodity Exchange",
		CollegeName:     "St. Xavier College",
		SerialNumber:    "SE-MCX-202402-ABC12345",
		IssueDate:       "February 12, 2024",
	})
	require.NoError(t, err)

	assert.Contains(t, html, "Jane Doe")
	assert.Contains(t, html, "Multi Commodity Exchange (MCX)")
	assert.Contains(t, html, "St. Xavier College")
	assert.Contains(t, html, "SE-MCX-202402-ABC12345")
	assert.Contains(t, html, "February 12, 2024")
	assert.Contains(t, html, "Sepiri EduHub")
	assert.Contains(t, html, "Excellence in Financial Education")
	assert.Contains(t, html, "width: 1920px")
	assert.Contains(t, html, "height: 1080px")
}

func TestCertificateRendererEscapesParticipantName(t *testing.T) {
	r, err := NewCertificateRenderer(testBranding())
	require.NoError(t, err)

	html, err := r.Render(CertificateData{
		ParticipantName: `<script>alert("x")</script>`,
		ProgramCode:     "BSE",
		ProgramFullName: "Bombay Stock Exchange",
		CollegeName:     "College",
		SerialNumber:    "SE-BSE-202402-ABC12345",
		IssueDate:       "February 12, 2024",
	})
	require.NoError(t, err)

	assert.NotContains(t, html, "<script>alert")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestEmailRendererIncludesAllFields(t *testing.T) {
	r, err := NewEmailRenderer(testBranding())
	require.NoError(t, err)

	html, err := r.Render(EmailData{
		ParticipantName: "Jane Doe",
		ProgramName:     "Multi Commodity Exchange",
		ProgramCode:     "MCX",
		CollegeName:     "St. Xavier College",
		SerialNumber:    "SE-MCX-202402-ABC12345",
		IssueDate:       "February 12, 2024",
		Year:            2024,
	})
	require.NoError(t, err)

	assert.Contains(t, html, "Jane Doe")
	assert.Contains(t, html, "Multi Commodity Exchange (MCX)")
	assert.Contains(t, html, "SE-MCX-202402-ABC12345")
	assert.Contains(t, html, "2024 Sepiri EduHub")
}

func TestSubject(t *testing.T) {
	subject := Subject("Multi Commodity Exchange", "SE-MCX-202402-ABC12345")
	assert.Equal(t, "Certificate of Participation - Multi Commodity Exchange [SE-MCX-202402-ABC12345]", subject)
}
