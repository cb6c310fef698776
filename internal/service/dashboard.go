package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fleetledger/backoffice/internal/domain"
	"github.com/fleetledger/backoffice/internal/repo"
)

// DashboardService assembles the landing summary.
type DashboardService struct {
	refs    repo.RefDataRepo
	summary *SummaryService
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(refs repo.RefDataRepo, summary *SummaryService) *DashboardService {
	return &DashboardService{refs: refs, summary: summary}
}

// Summary returns the reference data counts and the statistics of the month
// containing now.
func (s *DashboardService) Summary(ctx context.Context, now time.Time) (domain.Dashboard, error) {
	var d domain.Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		d.References, err = s.refs.Counts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		d.Month, err = s.summary.CurrentMonth(gctx, now)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Dashboard{}, classify("service.DashboardService.Summary", err)
	}
	return d, nil
}
