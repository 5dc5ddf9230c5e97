package models

import "time"

// Certificate is an issued certificate record stored in the certificates
// table. CollegeName is denormalized from the institute at issue time so a
// later rename does not rewrite history.
type Certificate struct {
	ID               string     `db:"id" json:"id"`
	SerialNumber     string     `db:"serial_number" json:"serialNumber"`
	ParticipantName  string     `db:"participant_name" json:"participantName"`
	ParticipantEmail string     `db:"participant_email" json:"participantEmail"`
	ProgramCode      string     `db:"program_code" json:"programCode"`
	ProgramName      string     `db:"program_name" json:"programName"`
	InstituteID      string     `db:"institute_id" json:"instituteId"`
	CollegeName      string     `db:"college_name" json:"collegeName"`
	CertificateFile  string     `db:"certificate_file" json:"certificateFile"`
	IssueDate        time.Time  `db:"issue_date" json:"issueDate"`
	IssuedBy         *string    `db:"issued_by" json:"issuedBy,omitempty"`
	EmailSent        bool       `db:"email_sent" json:"emailSent"`
	EmailSentAt      *time.Time `db:"email_sent_at" json:"emailSentAt,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}

// CertificateFilter narrows certificate listings.
type CertificateFilter struct {
	ProgramCode string
	InstituteID string
	Email       string
	StartDate   *time.Time
	EndDate     *time.Time
	Page        int
	PageSize    int
}

// Participant is a single entry in a batch issuance request.
type Participant struct {
	Name  string `json:"name" validate:"required,min=2"`
	Email string `json:"email" validate:"required,email"`
}

// BatchRequest asks for certificates for a list of participants.
type BatchRequest struct {
	Participants []Participant `json:"participants" validate:"required,min=1,dive"`
	ProgramCode  string        `json:"programCode" validate:"required"`
	InstituteID  string        `json:"instituteId" validate:"required"`
}

// BatchFailure describes one participant whose certificate could not be
// fully issued and delivered.
type BatchFailure struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Error string `json:"error"`
}

// BatchDetail reports the outcome for one successfully issued certificate.
type BatchDetail struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	SerialNumber string `json:"serialNumber"`
	EmailSent    bool   `json:"emailSent"`
}

// BatchResult summarises a whole batch run.
type BatchResult struct {
	Total      int            `json:"total"`
	Successful int            `json:"successful"`
	Failed     []BatchFailure `json:"failed"`
	Details    []BatchDetail  `json:"details"`
}

// Program is one entry of the program catalog.
type Program struct {
	Code string `json:"code"`
	Name string `json:"name"`
}
