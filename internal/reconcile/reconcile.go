// Package reconcile reports payments whose user does not exist in the
// identity store. It only reads; nothing is blocked or repaired.
package reconcile

import (
	"context"
	"log/slog"
	"sort"

	"tuition/internal/client"

	"golang.org/x/sync/errgroup"
)

//go:generate mockgen -source=reconcile.go -destination=mocks/reconcile-mocks.go -package=mocks Source

// Source lists both stores. *client.Client satisfies it.
type Source interface {
	ListUsers(ctx context.Context) ([]client.User, error)
	ListPayments(ctx context.Context, userID *int64) ([]client.Payment, error)
}

// Report is the outcome of one reconciliation run.
type Report struct {
	Users    int `json:"users"`
	Payments int `json:"payments"`
	// Orphans are payments referencing an unknown user, in ledger order.
	Orphans []client.Payment `json:"orphans"`
	// OrphanedUserIDs are the distinct unknown user ids, ascending.
	OrphanedUserIDs []int64 `json:"orphanedUserIds"`
}

// Consistent reports whether every payment references a known user.
func (r Report) Consistent() bool { return len(r.Orphans) == 0 }

type Service struct {
	source Source
	logger *slog.Logger
}

func New(source Source, logger *slog.Logger) *Service {
	return &Service{source: source, logger: logger}
}

// FindOrphans lists users and payments concurrently and returns the
// payments with no matching user. A payment recorded between the two
// reads may be reported against a user registered in the meantime.
func (s *Service) FindOrphans(ctx context.Context) (Report, error) {
	var (
		users    []client.User
		payments []client.Payment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.source.ListUsers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		payments, err = s.source.ListPayments(gctx, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	known := make(map[int64]struct{}, len(users))
	for _, u := range users {
		known[u.ID] = struct{}{}
	}

	report := Report{Users: len(users), Payments: len(payments), Orphans: []client.Payment{}}
	seen := make(map[int64]struct{})
	for _, p := range payments {
		if _, ok := known[p.UserID]; ok {
			continue
		}
		report.Orphans = append(report.Orphans, p)
		if _, dup := seen[p.UserID]; !dup {
			seen[p.UserID] = struct{}{}
			report.OrphanedUserIDs = append(report.OrphanedUserIDs, p.UserID)
		}
	}
	sort.Slice(report.OrphanedUserIDs, func(i, j int) bool {
		return report.OrphanedUserIDs[i] < report.OrphanedUserIDs[j]
	})

	if s.logger != nil {
		s.logger.InfoContext(ctx, "reconciliation complete",
			"users", report.Users,
			"payments", report.Payments,
			"orphans", len(report.Orphans),
		)
	}
	return report, nil
}
