package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sepiri/certhub-api/internal/models"
	appErrors "github.com/sepiri/certhub-api/pkg/errors"
)

const pqUniqueViolation = "23505"

const certificateColumns = `id, serial_number, participant_name, participant_email, program_code, program_name, institute_id, college_name, certificate_file, issue_date, issued_by, email_sent, email_sent_at, created_at, updated_at`

// CertificateRepository provides database access for issued certificates.
// When a cache client is present, serial lookups are served from Redis.
type CertificateRepository struct {
	db       *sqlx.DB
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewCertificateRepository creates a certificate repository. cache may be
// nil, in which case every lookup hits the database.
func NewCertificateRepository(db *sqlx.DB, cache *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *CertificateRepository {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &CertificateRepository{db: db, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Create inserts a certificate record. A unique violation on the serial
// number column is surfaced as ErrDuplicateSerial so the caller can retry
// with a fresh serial.
func (r *CertificateRepository) Create(ctx context.Context, cert *models.Certificate) error {
	if cert.ID == "" {
		cert.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if cert.IssueDate.IsZero() {
		cert.IssueDate = now
	}
	if cert.CreatedAt.IsZero() {
		cert.CreatedAt = now
	}
	cert.UpdatedAt = now

	const query = `INSERT INTO certificates (id, serial_number, participant_name, participant_email, program_code, program_name, institute_id, college_name, certificate_file, issue_date, issued_by, email_sent, email_sent_at, created_at, updated_at) VALUES (:id, :serial_number, :participant_name, :participant_email, :program_code, :program_name, :institute_id, :college_name, :certificate_file, :issue_date, :issued_by, :email_sent, :email_sent_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cert); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return appErrors.Clone(appErrors.ErrDuplicateSerial, fmt.Sprintf("serial number %s already exists", cert.SerialNumber))
		}
		return fmt.Errorf("create certificate: %w", err)
	}
	return nil
}

// FindBySerial returns a certificate by its serial number.
func (r *CertificateRepository) FindBySerial(ctx context.Context, serialNumber string) (*models.Certificate, error) {
	if cached := r.fromCache(ctx, serialNumber); cached != nil {
		return cached, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM certificates WHERE serial_number = $1 LIMIT 1`, certificateColumns)
	var cert models.Certificate
	if err := r.db.GetContext(ctx, &cert, query, serialNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find certificate by serial: %w", err)
	}

	r.toCache(ctx, &cert)
	return &cert, nil
}

// List returns certificates matching the filter, newest first, with total count.
func (r *CertificateRepository) List(ctx context.Context, filter models.CertificateFilter) ([]models.Certificate, int, error) {
	baseQuery := `FROM certificates WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.ProgramCode != "" {
		conditions = append(conditions, fmt.Sprintf("program_code = $%d", len(args)+1))
		args = append(args, strings.ToUpper(filter.ProgramCode))
	}
	if filter.InstituteID != "" {
		conditions = append(conditions, fmt.Sprintf("institute_id = $%d", len(args)+1))
		args = append(args, filter.InstituteID)
	}
	if filter.Email != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(participant_email) = LOWER($%d)", len(args)+1))
		args = append(args, filter.Email)
	}
	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("issue_date >= $%d", len(args)+1))
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("issue_date <= $%d", len(args)+1))
		args = append(args, *filter.EndDate)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY issue_date DESC LIMIT %d OFFSET %d", certificateColumns, baseQuery, pageSize, offset)

	var certs []models.Certificate
	if err := r.db.SelectContext(ctx, &certs, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list certificates: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count certificates: %w", err)
	}

	return certs, total, nil
}

// ListAll returns every certificate matching the filter without pagination,
// used by registry exports.
func (r *CertificateRepository) ListAll(ctx context.Context, filter models.CertificateFilter) ([]models.Certificate, error) {
	filter.Page = 1
	filter.PageSize = 100

	var all []models.Certificate
	for {
		page, total, err := r.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(all) >= total || len(page) == 0 {
			return all, nil
		}
		filter.Page++
	}
}

// MarkEmailSent records a successful delivery for the certificate.
func (r *CertificateRepository) MarkEmailSent(ctx context.Context, id string, sentAt time.Time) error {
	const query = `UPDATE certificates SET email_sent = TRUE, email_sent_at = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, sentAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark email sent: %w", err)
	}
	return nil
}

func (r *CertificateRepository) fromCache(ctx context.Context, serialNumber string) *models.Certificate {
	if r.cache == nil {
		return nil
	}
	raw, err := r.cache.Get(ctx, cacheKey(serialNumber)).Result()
	if err != nil {
		return nil
	}
	var cert models.Certificate
	if err := json.Unmarshal([]byte(raw), &cert); err != nil {
		return nil
	}
	return &cert
}

func (r *CertificateRepository) toCache(ctx context.Context, cert *models.Certificate) {
	if r.cache == nil {
		return
	}
	raw, err := json.Marshal(cert)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, cacheKey(cert.SerialNumber), raw, r.cacheTTL).Err(); err != nil {
		r.logger.Debug("cache_set_failed", zap.String("serial", cert.SerialNumber), zap.Error(err))
	}
}

func cacheKey(serialNumber string) string {
	return "cert:serial:" + serialNumber
}
