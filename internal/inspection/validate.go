package inspection

import (
	"fmt"
	"time"
)

// requiredFields must be present in every successful extraction; absence is
// reported as a validation issue but does not fail the step.
var requiredFields = []string{FieldFirstName, FieldLastName, FieldDOB, FieldDocumentType}

// NormalizeIDNumber ensures the canonical id_number field is populated from
// whichever alias the extraction produced, and vice versa.
func NormalizeIDNumber(fields map[string]string) {
	if fields == nil {
		return
	}
	if fields[FieldDocumentNumber] != "" && fields[FieldIDNumber] == "" {
		fields[FieldIDNumber] = fields[FieldDocumentNumber]
	} else if fields[FieldIDNumber] != "" && fields[FieldDocumentNumber] == "" {
		fields[FieldDocumentNumber] = fields[FieldIDNumber]
	}
}

// ValidateFields reports issues with the extracted field set.
// Issues are carried forward as risk indicators; they do not fail the step.
func ValidateFields(fields map[string]string) []string {
	var issues []string

	for _, f := range requiredFields {
		if fields[f] == "" {
			issues = append(issues, fmt.Sprintf("Missing required field: %s", f))
		}
	}

	if dob := fields[FieldDOB]; dob != "" {
		if _, err := time.Parse("2006-01-02", dob); err != nil {
			issues = append(issues, fmt.Sprintf("Invalid date format for DOB: %s", dob))
		}
	}

	if fields[FieldDocumentNumber] == "" && fields[FieldIDNumber] == "" {
		issues = append(issues, "Missing document/ID number")
	}

	return issues
}
