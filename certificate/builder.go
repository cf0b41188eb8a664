package certificate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go-health-certificates/images"
	"go-health-certificates/models"
	"go-health-certificates/storage"
)

const dateFormat = "2006-01-02"

// ValidationError reports the first missing or malformed form field.
// Validation fails fast; the admin fixes one problem at a time.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing or invalid required field %q", e.Field)
}

// EncodingError reports a photo that could not be decoded or re-encoded.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("failed to encode photo: %v", e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// Builder assembles certificate records from admin form input and writes
// them through the store adapter.
type Builder struct {
	adapter   *storage.StoreAdapter
	publicURL string
}

func NewBuilder(adapter *storage.StoreAdapter, publicURL string) *Builder {
	return &Builder{
		adapter:   adapter,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// Validate checks the fixed set of required string fields and that a photo
// was supplied, stopping at the first violation.
func Validate(form models.CertificateForm) error {
	required := []struct {
		field string
		value string
	}{
		{"name", form.SubjectName},
		{"id_number", form.SubjectIdNumber},
		{"gender", form.Gender},
		{"nationality", form.Nationality},
		{"profession", form.Profession},
		{"license_number", form.LicenseNumber},
		{"certificate_number", form.CertificateNumber},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field}
		}
	}

	if strings.TrimSpace(form.Photo) == "" {
		return &ValidationError{Field: "photo"}
	}
	return nil
}

// Build runs validate, photo encoding, identifier generation and status
// derivation, then persists the assembled record. It returns the record
// and its shareable link. Validation and encoding errors abort the build
// with nothing persisted; persistence failures are absorbed by the store
// adapter's mirror fallback and do not fail the build.
func (b *Builder) Build(ctx context.Context, form models.CertificateForm, now time.Time, createdBy string) (models.CertificateRecord, string, error) {
	if err := Validate(form); err != nil {
		return models.CertificateRecord{}, "", err
	}

	issueDate, err := parseDate(form.IssueDate, "issue_date")
	if err != nil {
		return models.CertificateRecord{}, "", err
	}
	expiryDate, err := parseDate(form.ExpiryDate, "expiry_date")
	if err != nil {
		return models.CertificateRecord{}, "", err
	}

	rawPhoto, err := images.FromBase64(form.Photo)
	if err != nil {
		return models.CertificateRecord{}, "", &EncodingError{Err: err}
	}
	photo, err := images.ConvertToProfileJPEG(rawPhoto)
	if err != nil {
		return models.CertificateRecord{}, "", &EncodingError{Err: err}
	}

	id := NewCertificateId(now)
	record := models.CertificateRecord{
		Identifier:        id,
		SubjectName:       form.SubjectName,
		SubjectIdNumber:   form.SubjectIdNumber,
		Gender:            form.Gender,
		Nationality:       form.Nationality,
		Profession:        form.Profession,
		LicenseNumber:     form.LicenseNumber,
		CertificateNumber: form.CertificateNumber,
		IssueDate:         issueDate,
		ExpiryDate:        expiryDate,
		IssueDateHijri:    form.IssueDateHijri,
		ExpiryDateHijri:   form.ExpiryDateHijri,
		Photo:             photo,
		Status:            DeriveStatus(expiryDate, now),
		CreatedAt:         now,
		CreatedBy:         createdBy,
	}

	b.adapter.Put(ctx, id, record)
	slog.Info("Certificate record created", "certificate_id", id, "status", record.Status)

	return record, b.ShareableLink(id), nil
}

// ShareableLink builds the public viewer URL for a certificate.
func (b *Builder) ShareableLink(id string) string {
	return fmt.Sprintf("%s/certificate.html?id=%s", b.publicURL, id)
}

func parseDate(value, field string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(dateFormat, value)
	if err != nil {
		return time.Time{}, &ValidationError{Field: field}
	}
	return parsed, nil
}
