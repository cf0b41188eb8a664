package models

// CertificateForm carries the admin form input for a new certificate.
// Dates arrive as "2006-01-02" strings, the photo as a base64 encoded
// image (raw or data URL).
type CertificateForm struct {
	SubjectName       string `json:"name"`
	SubjectIdNumber   string `json:"id_number"`
	Gender            string `json:"gender"`
	Nationality       string `json:"nationality"`
	Profession        string `json:"profession"`
	LicenseNumber     string `json:"license_number"`
	CertificateNumber string `json:"certificate_number"`
	IssueDate         string `json:"issue_date,omitempty"`
	ExpiryDate        string `json:"expiry_date,omitempty"`
	IssueDateHijri    string `json:"issue_date_hijri,omitempty"`
	ExpiryDateHijri   string `json:"expiry_date_hijri,omitempty"`
	Photo             string `json:"photo"`
}
