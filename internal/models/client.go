package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClientContact is the person administering the client company.
type ClientContact struct {
	FirstName        string  `gorm:"size:120" json:"first_name"`
	PaternalLastName string  `gorm:"size:120" json:"paternal_last_name"`
	MaternalLastName string  `gorm:"size:120" json:"maternal_last_name"`
	Phone            string  `gorm:"size:40" json:"phone"`
	EFirmaPath       *string `gorm:"column:e_firma_path;size:500" json:"e_firma,omitempty"`
	CSFPath          *string `gorm:"column:csf_path;size:500" json:"csf,omitempty"`
	EFirmaName       string  `gorm:"column:e_firma_name;size:255" json:"e_firma_name,omitempty"`
	CSFName          string  `gorm:"column:csf_name;size:255" json:"csf_name,omitempty"`
}

type Client struct {
	ID           uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyName  string        `gorm:"size:255;not null" json:"company_name"`
	LegalName    string        `gorm:"size:255;not null" json:"legal_name"`
	Location     string        `gorm:"size:255" json:"location"`
	Email        string        `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Phone        string        `gorm:"size:40" json:"phone"`
	RFC          string        `gorm:"column:rfc;size:13;not null;uniqueIndex" json:"rfc"`
	EFirmaPath   *string       `gorm:"column:e_firma_path;size:500" json:"e_firma,omitempty"`
	CSFPath      *string       `gorm:"column:csf_path;size:500" json:"csf,omitempty"`
	EFirmaName   string        `gorm:"column:e_firma_name;size:255" json:"e_firma_name,omitempty"`
	CSFName      string        `gorm:"column:csf_name;size:255" json:"csf_name,omitempty"`
	PasswordHash string        `gorm:"not null" json:"-"`
	SatStatus    SatStatus     `gorm:"size:20;not null" json:"sat_status"`
	IsActive     bool          `gorm:"not null" json:"is_active"`
	Contact      ClientContact `gorm:"embedded;embeddedPrefix:contact_" json:"admin"`
	CreatedAt    time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// CredentialPath returns the stored reference for a slot.
func (c *Client) CredentialPath(slot CredentialSlot) *string {
	switch slot {
	case SlotCompanyEFirma:
		return c.EFirmaPath
	case SlotCompanyCSF:
		return c.CSFPath
	case SlotContactEFirma:
		return c.Contact.EFirmaPath
	case SlotContactCSF:
		return c.Contact.CSFPath
	default:
		return nil
	}
}

// SetCredentialPath updates the in-memory reference for a slot.
func (c *Client) SetCredentialPath(slot CredentialSlot, path *string) {
	switch slot {
	case SlotCompanyEFirma:
		c.EFirmaPath = path
	case SlotCompanyCSF:
		c.CSFPath = path
	case SlotContactEFirma:
		c.Contact.EFirmaPath = path
	case SlotContactCSF:
		c.Contact.CSFPath = path
	}
}

// CredentialName returns the file name a slot was uploaded under.
func (c *Client) CredentialName(slot CredentialSlot) string {
	switch slot {
	case SlotCompanyEFirma:
		return c.EFirmaName
	case SlotCompanyCSF:
		return c.CSFName
	case SlotContactEFirma:
		return c.Contact.EFirmaName
	case SlotContactCSF:
		return c.Contact.CSFName
	default:
		return ""
	}
}

func (c *Client) SetCredentialName(slot CredentialSlot, name string) {
	switch slot {
	case SlotCompanyEFirma:
		c.EFirmaName = name
	case SlotCompanyCSF:
		c.CSFName = name
	case SlotContactEFirma:
		c.Contact.EFirmaName = name
	case SlotContactCSF:
		c.Contact.CSFName = name
	}
}

// CredentialColumn is the column holding a slot's reference.
func CredentialColumn(slot CredentialSlot) string {
	switch slot {
	case SlotCompanyEFirma:
		return "e_firma_path"
	case SlotCompanyCSF:
		return "csf_path"
	case SlotContactEFirma:
		return "contact_e_firma_path"
	case SlotContactCSF:
		return "contact_csf_path"
	default:
		return ""
	}
}

// CredentialNameColumn is the column holding a slot's original file name.
func CredentialNameColumn(slot CredentialSlot) string {
	if column := CredentialColumn(slot); column != "" {
		return strings.TrimSuffix(column, "_path") + "_name"
	}
	return ""
}
