package models

import "time"

// Status is the derived lifecycle classification of a certificate.
type Status string

const (
	StatusActive   Status = "active"
	StatusExpiring Status = "expiring"
	StatusExpired  Status = "expired"
	StatusUnknown  Status = "unknown"
)

// CertificateRecord is the stored shape of one health certificate.
// Records are only ever created or deleted, never updated in place.
type CertificateRecord struct {
	Identifier        string    `json:"certificate_id"`
	SubjectName       string    `json:"name"`
	SubjectIdNumber   string    `json:"id_number"`
	Gender            string    `json:"gender"`
	Nationality       string    `json:"nationality"`
	Profession        string    `json:"profession"`
	LicenseNumber     string    `json:"license_number"`
	CertificateNumber string    `json:"certificate_number"`
	IssueDate         time.Time `json:"issue_date,omitempty"`
	ExpiryDate        time.Time `json:"expiry_date,omitempty"`

	// Hijri dates are opaque display strings, never parsed.
	IssueDateHijri  string `json:"issue_date_hijri,omitempty"`
	ExpiryDateHijri string `json:"expiry_date_hijri,omitempty"`

	// Photo is a bounded-size JPEG embedded as a base64 data URL.
	Photo string `json:"photo,omitempty"`

	// Status is a snapshot taken at creation time. Readers recompute it
	// from ExpiryDate; the persisted value is advisory only.
	Status Status `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by"`
}
