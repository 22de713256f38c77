// Package models defines the client-side data models of the TaxBox client:
// tax returns as served by the API, the session identity, uploadable
// documents and exported blobs.
package models

import "time"

// ReturnStatus is the filing state of a tax return.
type ReturnStatus string

const (
	StatusDraft ReturnStatus = "draft"
	StatusFiled ReturnStatus = "filed"
)

// TaxReturn is a read-only record owned by the backend. Amounts are passed
// through as sent; in particular RefundAmount and AmountOwed are independent
// fields and nothing here assumes only one of them is non-zero.
type TaxReturn struct {
	ID           string       `json:"id"`
	TaxYear      int          `json:"tax_year"`
	Status       ReturnStatus `json:"status"`
	Income       float64      `json:"income"`
	Deductions   float64      `json:"deductions"`
	TaxOwed      float64      `json:"tax_owed"`
	Withholdings float64      `json:"withholdings"`
	RefundAmount float64      `json:"refund_amount"`
	AmountOwed   float64      `json:"amount_owed"`
	CreatedAt    time.Time    `json:"created_at"`
}

// IsDraft reports whether the return has not been filed yet.
func (t TaxReturn) IsDraft() bool {
	return t.Status == StatusDraft
}

// ExportFilename is the name suggested when saving the JSON export.
func (t TaxReturn) ExportFilename() string {
	return ExportFilename(t.ID)
}

// ExportFilename builds the suggested file name for an exported return.
func ExportFilename(id string) string {
	return "tax_return_" + id + ".json"
}

// Blob is an opaque payload returned by an export call.
type Blob struct {
	Data        []byte
	ContentType string
}
