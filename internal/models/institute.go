package models

import "time"

// Institute is a partner college. Rows are soft-deleted so certificates
// keep a valid reference.
type Institute struct {
	ID          string    `db:"id" json:"id"`
	CollegeName string    `db:"college_name" json:"collegeName"`
	CreatedBy   *string   `db:"created_by" json:"createdBy,omitempty"`
	Active      bool      `db:"active" json:"isActive"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// InstituteRequest creates or renames an institute.
type InstituteRequest struct {
	CollegeName string `json:"collegeName" validate:"required,min=3"`
}
