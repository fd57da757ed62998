package dto

import (
	"time"

	"github.com/grupokali/portal/internal/models"
)

type ContactRequest struct {
	FirstName        string `json:"first_name"`
	PaternalLastName string `json:"paternal_last_name"`
	MaternalLastName string `json:"maternal_last_name"`
	Phone            string `json:"phone"`
}

// ClientRequest carries a full client record. On update an empty password keeps the
// stored one, an empty sat_status keeps the current status and a nil is_active
// leaves the flag alone.
type ClientRequest struct {
	CompanyName string           `json:"company_name"`
	LegalName   string           `json:"legal_name"`
	Location    string           `json:"location"`
	Email       string           `json:"email"`
	Phone       string           `json:"phone"`
	RFC         string           `json:"rfc"`
	Password    string           `json:"password,omitempty"`
	SatStatus   models.SatStatus `json:"sat_status,omitempty"`
	IsActive    *bool            `json:"is_active,omitempty"`
	Admin       ContactRequest   `json:"admin"`
}

// Upload is a file received from a caller.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Download is a blob handed back under its original name.
type Download struct {
	FileName    string
	ContentType string
	Data        []byte
}

type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// UpdateTaskRequest is a partial update; nil fields are left unchanged.
type UpdateTaskRequest struct {
	Title       *string            `json:"title,omitempty"`
	Description *string            `json:"description,omitempty"`
	DueDate     *time.Time         `json:"due_date,omitempty"`
	Status      *models.TaskStatus `json:"status,omitempty"`
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

type CreateAdminRequest struct {
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
	Password string      `json:"password"`
}

type UpdateAdminRequest struct {
	Role models.Role `json:"role"`
}

type CredentialResponse struct {
	Slot models.CredentialSlot `json:"slot"`
	Path string                `json:"path"`
}
