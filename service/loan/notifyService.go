package loan

import (
	"context"
	"log/slog"
	"time"

	notifyrepo "libcirc/repository/notify"
)

// Notifier periodically pulls the overdue list and posts one notice per
// loan to the configured webhook. The core itself stays pull-based; this
// daemon is just a caller of Overdue on a timer.
type Notifier struct {
	svc      Service
	notify   notifyrepo.Repo
	interval time.Duration
	log      *slog.Logger
}

func NewNotifier(svc Service, notify notifyrepo.Repo, interval time.Duration, log *slog.Logger) *Notifier {
	return &Notifier{svc: svc, notify: notify, interval: interval, log: log}
}

// Run blocks until ctx is canceled.
func (n *Notifier) Run(ctx context.Context) {
	t := time.NewTicker(n.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n.sweep(ctx)
		}
	}
}

func (n *Notifier) sweep(ctx context.Context) {
	asOf := time.Now().UTC()
	overdue, err := n.svc.Overdue(ctx, asOf)
	if err != nil {
		n.log.Error("overdue sweep failed", "err", err)
		return
	}

	sent := 0
	for _, l := range overdue {
		days := int(asOf.Sub(l.DueOn).Hours() / 24)
		if err := n.notify.SendOverdueNotice(notifyrepo.NoticeFor(l, days)); err != nil {
			n.log.Warn("overdue notice failed", "loan_id", l.ID, "err", err)
			continue
		}
		sent++
	}
	if len(overdue) > 0 {
		n.log.Info("overdue sweep", "overdue", len(overdue), "notified", sent)
	}
}
