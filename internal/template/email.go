package template

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/sepiri/certhub-api/pkg/config"
)

// EmailData carries the fields shown in the certificate notification email.
type EmailData struct {
	ParticipantName string
	ProgramName     string
	ProgramCode     string
	CollegeName     string
	SerialNumber    string
	IssueDate       string

	InstituteName string
	Tagline       string
	Year          int
}

// EmailRenderer produces the HTML body of the certificate email.
type EmailRenderer struct {
	tmpl     *template.Template
	branding config.CertificateConfig
}

// NewEmailRenderer parses the email template once at startup.
func NewEmailRenderer(branding config.CertificateConfig) (*EmailRenderer, error) {
	tmpl, err := template.New("email").Parse(emailHTML)
	if err != nil {
		return nil, fmt.Errorf("parse email template: %w", err)
	}
	return &EmailRenderer{tmpl: tmpl, branding: branding}, nil
}

// Render fills in the email body.
func (r *EmailRenderer) Render(data EmailData) (string, error) {
	if data.InstituteName == "" {
		data.InstituteName = r.branding.InstituteName
	}
	if data.Tagline == "" {
		data.Tagline = r.branding.Tagline
	}
	if data.Year == 0 {
		data.Year = time.Now().Year()
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}

// Subject builds the email subject line for a certificate.
func Subject(programName, serialNumber string) string {
	return fmt.Sprintf("Certificate of Participation - %s [%s]", programName, serialNumber)
}

const emailHTML = `<!DOCTYPE html>
<html>
<head>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; margin: 0; padding: 0; }
    .container { max-width: 600px; margin: 0 auto; }
    .header {
      background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
      color: white;
      padding: 40px 30px;
      text-align: center;
      border-radius: 10px 10px 0 0;
    }
    .logo {
      width: 80px;
      height: 80px;
      background: white;
      color: #667eea;
      border-radius: 50%;
      display: inline-flex;
      align-items: center;
      justify-content: center;
      font-size: 32px;
      font-weight: bold;
      margin-bottom: 15px;
    }
    .content { background: #ffffff; padding: 40px 30px; border: 1px solid #e0e0e0; }
    .highlight { color: #667eea; font-weight: bold; }
    .info-box {
      background: #f8f9fa;
      border-left: 4px solid #667eea;
      padding: 20px;
      margin: 20px 0;
      border-radius: 5px;
    }
    .serial-box {
      background: #fff3cd;
      border: 2px solid #d4af37;
      padding: 15px;
      border-radius: 5px;
      font-family: monospace;
      font-size: 16px;
      text-align: center;
      margin: 15px 0;
    }
    .footer {
      background: #f5f5f5;
      text-align: center;
      padding: 20px;
      color: #666;
      font-size: 12px;
      border-radius: 0 0 10px 10px;
      border: 1px solid #e0e0e0;
    }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <div class="logo">SE</div>
      <h1 style="margin: 0;">Congratulations!</h1>
      <p style="margin: 10px 0 0 0;">{{.InstituteName}}</p>
    </div>

    <div class="content">
      <p>Dear <strong>{{.ParticipantName}}</strong>,</p>

      <p>We are delighted to present you with your <span class="highlight">Certificate of Participation</span> for successfully completing the <strong>{{.ProgramName}} ({{.ProgramCode}})</strong> program.</p>

      <div class="info-box">
        <p style="margin: 0; font-size: 14px;"><strong>Certificate Details:</strong></p>
        <div class="serial-box">
          <strong>Certificate Serial Number</strong><br>
          {{.SerialNumber}}
        </div>
        <p style="margin: 5px 0; font-size: 13px;">
          <strong>Program:</strong> {{.ProgramName}} ({{.ProgramCode}})<br>
          <strong>Conducted at:</strong> {{.CollegeName}}<br>
          <strong>In collaboration with:</strong> {{.InstituteName}}<br>
          <strong>Issue Date:</strong> {{.IssueDate}}
        </p>
      </div>

      <p>Your personalized certificate is attached to this email as a PDF file.</p>

      <p><strong>Important:</strong> You can verify your certificate authenticity using the serial number provided above.</p>

      <p style="margin-top: 30px; padding-top: 20px; border-top: 1px solid #e0e0e0;">
        <strong>Best regards,</strong><br>
        {{.InstituteName}} Team<br>
        <em>{{.Tagline}}</em>
      </p>
    </div>

    <div class="footer">
      <p style="margin: 5px 0;">&copy; {{.Year}} {{.InstituteName}}. All rights reserved.</p>
    </div>
  </div>
</body>
</html>`
