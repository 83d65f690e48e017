// Package customers holds the reference customer records that extracted
// document data is verified against.
package customers

// Record is the reference identity record held for a customer.
type Record struct {
	CustomerID   string `json:"customer_id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	DOB          string `json:"dob"`
	IDNumber     string `json:"id_number"`
	DocumentType string `json:"document_type"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

// FullName returns the customer's display name.
func (r Record) FullName() string {
	return r.FirstName + " " + r.LastName
}
