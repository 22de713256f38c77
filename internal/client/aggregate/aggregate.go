// Package aggregate folds a tax-return collection into dashboard totals.
package aggregate

import "github.com/dmitrijs2005/taxbox/internal/client/models"

// Stats are recomputed whenever the record collection is replaced.
type Stats struct {
	TotalRefunds float64
	TotalIncome  float64
	TotalOwed    float64
	PendingCount int
	Count        int
}

// Compute sums refunds, income and amounts owed and counts drafts.
// RefundAmount and AmountOwed are summed independently; a record carrying
// both (or neither) is taken as sent.
func Compute(records []models.TaxReturn) Stats {
	var s Stats
	for i := range records {
		r := &records[i]
		s.TotalRefunds += r.RefundAmount
		s.TotalIncome += r.Income
		s.TotalOwed += r.AmountOwed
		if r.IsDraft() {
			s.PendingCount++
		}
	}
	s.Count = len(records)
	return s
}
