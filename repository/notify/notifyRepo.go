package notifyrepo

import "libcirc/model"

// OverdueNotice is the payload posted to the notification webhook for each
// overdue loan. Delivery (email, SMS, ...) is the receiver's business.
type OverdueNotice struct {
	LoanID      int64  `json:"loan_id"`
	PersonID    int64  `json:"person_id"`
	BookID      int64  `json:"book_id"`
	CopyID      int64  `json:"copy_id"`
	DueOn       string `json:"due_on"`
	DaysOverdue int    `json:"days_overdue"`
}

type Repo interface {
	SendOverdueNotice(n OverdueNotice) error
}

// NoticeFor builds the webhook payload for one overdue loan.
func NoticeFor(l model.Loan, daysOverdue int) OverdueNotice {
	return OverdueNotice{
		LoanID:      l.ID,
		PersonID:    l.PersonID,
		BookID:      l.BookID,
		CopyID:      l.CopyID,
		DueOn:       l.DueOn.Format("2006-01-02"),
		DaysOverdue: daysOverdue,
	}
}
