package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/billfold/internal/model"
)

// Notifier delivers one owner's due-soon bills as a single notification.
// today is the day the bills were selected on.
type Notifier interface {
	Notify(ctx context.Context, today model.Date, to model.Recipient, bills []model.BillReminder) error
}

// DueLister selects unpaid reminders inside their warning window, across
// owners.
type DueLister interface {
	ListDueSoon(ctx context.Context, today model.Date) ([]model.DueBill, error)
}

// ScanReport summarizes one scan.
type ScanReport struct {
	Owners int
	Bills  int
	Sent   int
	Failed int
}

type Scanner struct {
	store       DueLister
	notifier    Notifier
	today       Clock
	concurrency int
	logger      *slog.Logger
}

func NewScanner(s DueLister, n Notifier, today Clock, concurrency int, logger *slog.Logger) *Scanner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scanner{store: s, notifier: n, today: today, concurrency: concurrency, logger: logger}
}

// OwnerBills is one owner's share of a scan.
type OwnerBills struct {
	Owner model.Recipient
	Bills []model.BillReminder
}

// GroupDue keeps the bills inside their warning window on today and groups
// them by owner. Owners keep the order in which they first appear.
func GroupDue(due []model.DueBill, today model.Date) []OwnerBills {
	var groups []OwnerBills
	index := make(map[int64]int)
	for _, d := range due {
		if !InWarningWindow(d.Reminder, today) {
			continue
		}
		i, ok := index[d.Owner.UserID]
		if !ok {
			i = len(groups)
			index[d.Owner.UserID] = i
			groups = append(groups, OwnerBills{Owner: d.Owner})
		}
		groups[i].Bills = append(groups[i].Bills, d.Reminder)
	}
	return groups
}

// ScanAndNotify sends every owner with bills in their warning window one
// notification listing those bills. A failed delivery is logged and counted
// without stopping the other owners. Only a failure to read the reminders
// is returned.
func (s *Scanner) ScanAndNotify(ctx context.Context) (ScanReport, error) {
	today := s.today()
	due, err := s.store.ListDueSoon(ctx, today)
	if err != nil {
		return ScanReport{}, fmt.Errorf("list due reminders: %w", err)
	}

	groups := GroupDue(due, today)
	report := ScanReport{Owners: len(groups)}
	for _, g := range groups {
		report.Bills += len(g.Bills)
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, group := range groups {
		g.Go(func() error {
			err := s.notifier.Notify(ctx, today, group.Owner, group.Bills)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				s.logger.Error("bill reminder delivery failed",
					"user_id", group.Owner.UserID,
					"bills", len(group.Bills),
					"error", err,
				)
				return nil
			}
			report.Sent++
			return nil
		})
	}
	_ = g.Wait()

	return report, nil
}
