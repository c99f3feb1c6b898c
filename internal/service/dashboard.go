package service

import (
	"context"
	"sort"
	"sync"

	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/gymdesk/internal/model"
)

// recentActivityLimit is the number of log rows shown on the dashboard.
const recentActivityLimit = 20

// Dashboard runs the overview reads concurrently.  Each read settles on
// its own: a failure empties that section and is listed in Failed, the
// others are still returned.
type Dashboard struct {
	ledger     *Ledger
	payments   *Payments
	leads      LeadStore
	prospects  ProspectStore
	audit      *AuditLog
	expiryDays int
	log        *log.Logger
}

func NewDashboard(ledger *Ledger, payments *Payments, leads LeadStore, prospects ProspectStore,
	audit *AuditLog, expiryDays int, lg *log.Logger) *Dashboard {
	return &Dashboard{
		ledger:     ledger,
		payments:   payments,
		leads:      leads,
		prospects:  prospects,
		audit:      audit,
		expiryDays: expiryDays,
		log:        lg,
	}
}

func (d *Dashboard) Snapshot(ctx context.Context) *model.DashboardSnapshot {
	from, to := d.payments.MonthToDate()
	out := &model.DashboardSnapshot{
		ExpiringMemberships: []model.ExpiringMembership{},
		Revenue: &model.RevenueStats{
			StartDate:           from.Time,
			EndDate:             to.Time,
			TotalRevenue:        decimal.Zero,
			NewCustomersRevenue: decimal.Zero,
			RenewalsRevenue:     decimal.Zero,
			ByMembershipType:    map[string]*model.TypeRevenue{},
		},
		LeadsByStatus:  map[model.LeadStatus]int{},
		RecentActivity: []model.LogRow{},
		Failed:         []string{},
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	run := func(section string, read func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := read(); err != nil {
				d.log.Warnf("dashboard: %s: %v", section, err)
				mu.Lock()
				out.Failed = append(out.Failed, section)
				mu.Unlock()
			}
		}()
	}

	// each read assigns only its own field
	run(model.SectionExpiring, func() error {
		rows, err := d.ledger.GetExpiringMemberships(ctx, d.expiryDays)
		if err == nil {
			out.ExpiringMemberships = rows
		}
		return err
	})
	run(model.SectionRevenue, func() error {
		st, err := d.payments.RevenueStats(ctx, from, to)
		if err == nil {
			out.Revenue = st
		}
		return err
	})
	run(model.SectionLeads, func() error {
		counts, err := d.leads.CountByStatus(ctx)
		if err == nil {
			out.LeadsByStatus = counts
		}
		return err
	})
	run(model.SectionProspects, func() error {
		n, err := d.prospects.CountUnconverted(ctx)
		if err == nil {
			out.UnconvertedProspects = n
		}
		return err
	})
	run(model.SectionActivity, func() error {
		rows, err := d.audit.Recent(ctx, recentActivityLimit)
		if err == nil {
			out.RecentActivity = rows
		}
		return err
	})

	wg.Wait()
	sort.Strings(out.Failed)
	return out
}
