package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dmitrijs2005/taxbox/internal/client/aggregate"
	"github.com/dmitrijs2005/taxbox/internal/client/models"
	"github.com/dmitrijs2005/taxbox/internal/client/notify"
)

func renderReturns(w io.Writer, records []models.TaxReturn) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No tax returns yet")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tYEAR\tSTATUS\tINCOME\tREFUND\tOWED\tCREATED")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.TaxYear, r.Status,
			money(r.Income), money(r.RefundAmount), money(r.AmountOwed),
			r.CreatedAt.Format("2006-01-02"))
	}
	_ = tw.Flush()
}

func renderStats(w io.Writer, s aggregate.Stats) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Returns:\t%d\n", s.Count)
	fmt.Fprintf(tw, "Total income:\t%s\n", money(s.TotalIncome))
	fmt.Fprintf(tw, "Total refunds:\t%s\n", money(s.TotalRefunds))
	fmt.Fprintf(tw, "Total owed:\t%s\n", money(s.TotalOwed))
	fmt.Fprintf(tw, "Pending:\t%d\n", s.PendingCount)
	_ = tw.Flush()
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func formatNotification(n notify.Notification) string {
	mark := "ok"
	if n.Kind == notify.KindError {
		mark = "!!"
	}
	return fmt.Sprintf("[%s] %s (#%d)", mark, n.Message, n.ID)
}
