package notification

import (
	"fmt"

	"loan-tracker/internal/domain/loan"
)

// Render builds the inbox title and message for ev.
func Render(ev loan.Event) (title, message string) {
	switch ev.Kind {
	case loan.EventLoanDecided:
		verb := "approved"
		if ev.Outcome == loan.StatusRejected {
			verb = "rejected"
		}
		title = "Loan " + string(ev.Outcome)
		message = fmt.Sprintf("Your loan application for $%s has been %s", ev.Principal.StringFixed(2), verb)
		if ev.Notes != "" {
			message += ": " + ev.Notes
		}
	case loan.EventPaymentRecorded:
		title = "Payment Received"
		message = fmt.Sprintf("Payment of $%s received. Remaining balance: $%s",
			ev.Amount.Decimal.StringFixed(2), ev.Balance.StringFixed(2))
	case loan.EventLoanCompleted:
		title = "Loan Completed"
		message = fmt.Sprintf("Congratulations! Your loan of $%s has been fully repaid.", ev.Principal.StringFixed(2))
	default:
		title = string(ev.Kind)
		message = fmt.Sprintf("Loan %s updated", ev.LoanID)
	}
	return title, message
}
