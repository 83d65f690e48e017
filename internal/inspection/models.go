// Package inspection defines the document inspection step: quality
// assessment plus structured field extraction from an identity document.
package inspection

import (
	"context"
	"time"

	"acip/internal/customers"
)

// Canonical field keys produced by every provider. Providers whose
// underlying vocabulary differs (passport number, license number) must
// normalize onto these keys before returning.
const (
	FieldFirstName        = "first_name"
	FieldLastName         = "last_name"
	FieldDOB              = "dob"
	FieldDocumentType     = "document_type"
	FieldDocumentNumber   = "document_number"
	FieldIDNumber         = "id_number"
	FieldIssuingAuthority = "issuing_authority"
	FieldNationality      = "nationality"
)

// MinQualityScore is the threshold below which extraction is not attempted
// and the document must be resubmitted.
const MinQualityScore = 0.5

// LowQualityIssue is recorded when the document image fails the quality gate.
const LowQualityIssue = "low image quality"

// Request carries the inputs for a document inspection.
// Reference is comparison context only; it must not bias extraction.
type Request struct {
	CaseID      string
	DocumentRef string
	Reference   *customers.Record
}

// Result is the outcome of a document inspection.
// A failed result (Success=false) never carries extracted fields.
type Result struct {
	Success              bool              `json:"success"`
	DocumentType         string            `json:"document_type,omitempty"`
	QualityScore         float64           `json:"quality_score"`
	Fields               map[string]string `json:"fields,omitempty"`
	Issues               []string          `json:"issues,omitempty"`
	RequiresResubmission bool              `json:"requires_resubmission"`
	ResubmissionReason   string            `json:"resubmission_reason,omitempty"`
	InspectedAt          time.Time         `json:"inspected_at"`
}

// Field returns the named field, or "" if absent.
func (r *Result) Field(key string) string {
	if r == nil || r.Fields == nil {
		return ""
	}
	return r.Fields[key]
}

// Provider extracts structured identity data from a document reference.
type Provider interface {
	Inspect(ctx context.Context, req Request) (*Result, error)
}
