package service

import (
	"context"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/gymdesk/internal/model"
	"github.com/iliyamo/gymdesk/internal/repository"
)

// world is an in-memory database shared by the fake stores.  InTx
// snapshots it and restores the snapshot when fn fails.
type world struct {
	mu sync.Mutex

	plans       map[uint64]model.MembershipPlan
	memberships map[uint64]model.Membership
	payments    map[uint64]model.Payment
	members     map[uint64]model.Member
	leads       map[uint64]model.Lead
	prospects   map[uint64]model.Prospect
	logs        []model.LogRow
	nextID      uint64

	failPayment error // returned by payments.CreateTx when set
	failLogs    error // returned by logs.Insert/List when set
	failLeads   error // returned by leads.CountByStatus when set
}

func newWorld() *world {
	return &world{
		plans:       map[uint64]model.MembershipPlan{},
		memberships: map[uint64]model.Membership{},
		payments:    map[uint64]model.Payment{},
		members:     map[uint64]model.Member{},
		leads:       map[uint64]model.Lead{},
		prospects:   map[uint64]model.Prospect{},
		nextID:      100,
	}
}

func (w *world) id() uint64 {
	w.nextID++
	return w.nextID
}

type worldState struct {
	plans       map[uint64]model.MembershipPlan
	memberships map[uint64]model.Membership
	payments    map[uint64]model.Payment
	members     map[uint64]model.Member
	leads       map[uint64]model.Lead
	prospects   map[uint64]model.Prospect
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (w *world) InTx(ctx context.Context, fn func(tx repository.DBTX) error) error {
	snap := worldState{
		plans:       cloneMap(w.plans),
		memberships: cloneMap(w.memberships),
		payments:    cloneMap(w.payments),
		members:     cloneMap(w.members),
		leads:       cloneMap(w.leads),
		prospects:   cloneMap(w.prospects),
	}
	if err := fn(nil); err != nil {
		w.plans, w.memberships, w.payments = snap.plans, snap.memberships, snap.payments
		w.members, w.leads, w.prospects = snap.members, snap.leads, snap.prospects
		return err
	}
	return nil
}

// plans

type fakePlans struct{ w *world }

func (f fakePlans) List(ctx context.Context, includeInactive bool) ([]model.MembershipPlan, error) {
	out := []model.MembershipPlan{}
	for _, p := range f.w.plans {
		if p.IsActive || includeInactive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DurationMonths != out[j].DurationMonths {
			return out[i].DurationMonths < out[j].DurationMonths
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (f fakePlans) GetByID(ctx context.Context, id uint64) (*model.MembershipPlan, error) {
	return f.GetByIDTx(ctx, nil, id)
}

func (f fakePlans) GetByIDTx(ctx context.Context, tx repository.DBTX, id uint64) (*model.MembershipPlan, error) {
	p, ok := f.w.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (f fakePlans) GetByNameTx(ctx context.Context, tx repository.DBTX, name string) (*model.MembershipPlan, error) {
	for _, p := range f.w.plans {
		if p.Name == name {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f fakePlans) Create(ctx context.Context, p *model.MembershipPlan) error {
	for _, e := range f.w.plans {
		if e.Name == p.Name {
			return repository.ErrConflict
		}
	}
	p.ID = f.w.id()
	f.w.plans[p.ID] = *p
	return nil
}

func (f fakePlans) Update(ctx context.Context, p *model.MembershipPlan) error {
	if _, ok := f.w.plans[p.ID]; !ok {
		return repository.ErrNotFound
	}
	f.w.plans[p.ID] = *p
	return nil
}

// memberships

type fakeMemberships struct{ w *world }

func (f fakeMemberships) CreateTx(ctx context.Context, tx repository.DBTX, m *model.Membership) error {
	m.ID = f.w.id()
	if p, ok := f.w.plans[m.MembershipPlanID]; ok {
		m.PlanName = p.Name
	}
	f.w.memberships[m.ID] = *m
	return nil
}

func (f fakeMemberships) GetByIDTx(ctx context.Context, tx repository.DBTX, id uint64) (*model.Membership, error) {
	m, ok := f.w.memberships[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (f fakeMemberships) ExpireTx(ctx context.Context, tx repository.DBTX, id uint64) error {
	m, ok := f.w.memberships[id]
	if !ok {
		return repository.ErrNotFound
	}
	m.Status = model.MembershipExpired
	f.w.memberships[id] = m
	return nil
}

func (f fakeMemberships) UpdateTx(ctx context.Context, tx repository.DBTX, id uint64, status model.MembershipStatus, endDate time.Time) error {
	m, ok := f.w.memberships[id]
	if !ok {
		return repository.ErrNotFound
	}
	m.Status, m.EndDate = status, endDate
	f.w.memberships[id] = m
	return nil
}

func (f fakeMemberships) ListByUser(ctx context.Context, userID uint64) ([]model.Membership, error) {
	out := []model.Membership{}
	for _, m := range f.w.memberships {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f fakeMemberships) Expiring(ctx context.Context, from, to time.Time) ([]model.ExpiringMembership, error) {
	out := []model.ExpiringMembership{}
	for _, m := range f.w.memberships {
		if m.Status != model.MembershipActive || m.EndDate.Before(from) || m.EndDate.After(to) {
			continue
		}
		u := f.w.members[m.UserID]
		out = append(out, model.ExpiringMembership{Membership: m, MemberName: u.Name, MemberEmail: u.Email})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	return out, nil
}

// payments

type fakePayments struct{ w *world }

func (f fakePayments) CreateTx(ctx context.Context, tx repository.DBTX, p *model.Payment) error {
	if f.w.failPayment != nil {
		return f.w.failPayment
	}
	p.ID = f.w.id()
	if m, ok := f.w.memberships[p.MembershipID]; ok {
		p.PlanName = m.PlanName
	}
	f.w.payments[p.ID] = *p
	return nil
}

func (f fakePayments) List(ctx context.Context, flt model.PaymentFilter) ([]model.Payment, error) {
	out := []model.Payment{}
	for _, p := range f.w.payments {
		if flt.UserID != 0 && p.UserID != flt.UserID {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f fakePayments) CompletedBetween(ctx context.Context, start, end time.Time) ([]model.Payment, error) {
	out := []model.Payment{}
	for _, p := range f.w.payments {
		if p.PaymentStatus == model.PaymentCompleted && !p.PaymentDate.Before(start) && !p.PaymentDate.After(end) {
			out = append(out, p)
		}
	}
	return out, nil
}

// members

type fakeMembers struct{ w *world }

func (f fakeMembers) CreateTx(ctx context.Context, tx repository.DBTX, m *model.Member) error {
	if m.LeadID != nil {
		for _, e := range f.w.members {
			if e.LeadID != nil && *e.LeadID == *m.LeadID {
				return repository.ErrConflict
			}
		}
	}
	m.ID = f.w.id()
	f.w.members[m.ID] = *m
	return nil
}

func (f fakeMembers) GetByID(ctx context.Context, id uint64) (*model.Member, error) {
	return f.GetByIDTx(ctx, nil, id)
}

func (f fakeMembers) GetByIDTx(ctx context.Context, tx repository.DBTX, id uint64) (*model.Member, error) {
	m, ok := f.w.members[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (f fakeMembers) SetMembershipTx(ctx context.Context, tx repository.DBTX, userID uint64, s model.MembershipSnapshot) error {
	m, ok := f.w.members[userID]
	if !ok {
		return repository.ErrNotFound
	}
	id, start, end := s.MembershipID, s.StartDate, s.EndDate
	m.CurrentMembershipID = &id
	m.MembershipType = s.PlanName
	m.MembershipStatus = s.Status
	m.MembershipStartDate, m.MembershipEndDate = &start, &end
	m.CancellationReason = ""
	f.w.members[userID] = m
	return nil
}

func (f fakeMembers) PatchMembershipTx(ctx context.Context, tx repository.DBTX, userID, membershipID uint64, status *model.MemberStatus, endDate *time.Time) (bool, error) {
	m, ok := f.w.members[userID]
	if !ok || m.CurrentMembershipID == nil || *m.CurrentMembershipID != membershipID {
		return false, nil
	}
	if status != nil {
		m.MembershipStatus = *status
	}
	if endDate != nil {
		e := *endDate
		m.MembershipEndDate = &e
	}
	f.w.members[userID] = m
	return true, nil
}

func (f fakeMembers) SetStatusTx(ctx context.Context, tx repository.DBTX, id uint64, status model.MemberStatus, reason string) error {
	m, ok := f.w.members[id]
	if !ok {
		return repository.ErrNotFound
	}
	m.MembershipStatus, m.CancellationReason = status, reason
	f.w.members[id] = m
	return nil
}

// leads

type fakeLeads struct{ w *world }

func (f fakeLeads) CreateTx(ctx context.Context, tx repository.DBTX, l *model.Lead) error {
	if l.ProspectID != nil {
		for _, e := range f.w.leads {
			if e.ProspectID != nil && *e.ProspectID == *l.ProspectID {
				return repository.ErrConflict
			}
		}
	}
	l.ID = f.w.id()
	f.w.leads[l.ID] = *l
	return nil
}

func (f fakeLeads) GetByIDTx(ctx context.Context, tx repository.DBTX, id uint64) (*model.Lead, error) {
	l, ok := f.w.leads[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &l, nil
}

func (f fakeLeads) SetStatusTx(ctx context.Context, tx repository.DBTX, id uint64, status model.LeadStatus, lostReason string) error {
	l, ok := f.w.leads[id]
	if !ok {
		return repository.ErrNotFound
	}
	l.Status, l.LostReason = status, lostReason
	f.w.leads[id] = l
	return nil
}

func (f fakeLeads) MarkConvertedTx(ctx context.Context, tx repository.DBTX, id uint64) error {
	l, ok := f.w.leads[id]
	if !ok || l.ConvertedToUser {
		return repository.ErrConflict
	}
	l.Status, l.ConvertedToUser = model.LeadConverted, true
	f.w.leads[id] = l
	return nil
}

func (f fakeLeads) CountByStatus(ctx context.Context) (map[model.LeadStatus]int, error) {
	if f.w.failLeads != nil {
		return nil, f.w.failLeads
	}
	out := map[model.LeadStatus]int{}
	for _, st := range model.LeadStatuses {
		out[st] = 0
	}
	for _, l := range f.w.leads {
		out[l.Status]++
	}
	return out, nil
}

// prospects

type fakeProspects struct{ w *world }

func (f fakeProspects) GetByIDTx(ctx context.Context, tx repository.DBTX, id uint64) (*model.Prospect, error) {
	p, ok := f.w.prospects[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (f fakeProspects) MarkConvertedTx(ctx context.Context, tx repository.DBTX, id, leadID uint64) error {
	p, ok := f.w.prospects[id]
	if !ok || p.ConvertedToLead {
		return repository.ErrConflict
	}
	p.ConvertedToLead, p.LeadID = true, &leadID
	f.w.prospects[id] = p
	return nil
}

func (f fakeProspects) CountUnconverted(ctx context.Context) (int, error) {
	n := 0
	for _, p := range f.w.prospects {
		if !p.ConvertedToLead {
			n++
		}
	}
	return n, nil
}

// logs

type fakeLogs struct{ w *world }

func (f fakeLogs) Insert(ctx context.Context, e model.LogEntry, at time.Time) (uint64, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	if f.w.failLogs != nil {
		return 0, f.w.failLogs
	}
	row := model.LogRow{ID: uint64(len(f.w.logs) + 1), LogEntry: e, CreatedAt: at}
	f.w.logs = append(f.w.logs, row)
	return row.ID, nil
}

func (f fakeLogs) List(ctx context.Context, flt model.LogFilter) ([]model.LogRow, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	if f.w.failLogs != nil {
		return nil, f.w.failLogs
	}
	out := []model.LogRow{}
	for i := len(f.w.logs) - 1; i >= 0; i-- {
		r := f.w.logs[i]
		switch {
		case flt.UserID != nil && (r.RelatedUserID == nil || *r.RelatedUserID != *flt.UserID):
			continue
		case flt.MembershipID != nil && (r.RelatedMembershipID == nil || *r.RelatedMembershipID != *flt.MembershipID):
			continue
		case flt.PerformerID != nil && (r.PerformedBy == nil || r.PerformedBy.ID == nil || *r.PerformedBy.ID != *flt.PerformerID):
			continue
		case flt.ActionType != "" && r.ActionType != flt.ActionType:
			continue
		}
		out = append(out, r)
	}
	if flt.Limit > 0 && len(out) > flt.Limit {
		out = out[:flt.Limit]
	}
	return out, nil
}

// actions returns the recorded action types in order.
func (w *world) actions() []model.ActionType {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]model.ActionType, 0, len(w.logs))
	for _, r := range w.logs {
		out = append(out, r.ActionType)
	}
	return out
}

// fixture wires every service over one world.
type fixture struct {
	w          *world
	recorder   *Recorder
	catalog    *Catalog
	ledger     *Ledger
	payments   *Payments
	conversion *Conversion
	auditLog   *AuditLog
	dashboard  *Dashboard
}

var testToday = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

func newFixture() *fixture {
	w := newWorld()
	lg := log.New("test")
	lg.SetOutput(io.Discard)

	now := func() time.Time { return testToday.Add(9 * time.Hour) }

	rec := NewRecorder(DBSink{Logs: fakeLogs{w}}, lg)
	rec.now = now
	cat := NewCatalog(fakePlans{w}, rec, lg)
	led := NewLedger(w, cat, fakeMemberships{w}, fakePayments{w}, fakeMembers{w}, rec, lg)
	led.now = now
	pay := NewPayments(w, fakePayments{w}, fakeMemberships{w}, rec)
	pay.now = now
	conv := NewConversion(w, fakeProspects{w}, fakeLeads{w}, fakeMembers{w}, led, rec, lg)
	al := NewAuditLog(fakeLogs{w})
	dash := NewDashboard(led, pay, fakeLeads{w}, fakeProspects{w}, al, 30, lg)

	return &fixture{w: w, recorder: rec, catalog: cat, ledger: led, payments: pay,
		conversion: conv, auditLog: al, dashboard: dash}
}

// seedPlan stores a plan and returns it.
func (f *fixture) seedPlan(name string, months int, price string) model.MembershipPlan {
	p := model.MembershipPlan{ID: f.w.id(), Name: name, DurationMonths: months, Price: dec(price), IsActive: true}
	f.w.plans[p.ID] = p
	return p
}

func (f *fixture) seedMember(name string) model.Member {
	m := model.Member{ID: f.w.id(), Name: name, Email: strings.ToLower(name) + "@example.com",
		MembershipStatus: model.MemberExpired}
	f.w.members[m.ID] = m
	return m
}

func (f *fixture) seedLead(name string) model.Lead {
	l := model.Lead{ID: f.w.id(), Name: name, Email: strings.ToLower(name) + "@example.com",
		Phone: "555-0100", TrainingGoal: model.GoalFitness, Status: model.LeadContacted}
	f.w.leads[l.ID] = l
	return l
}

func (f *fixture) seedProspect(name string) model.Prospect {
	p := model.Prospect{ID: f.w.id(), Name: name, Email: strings.ToLower(name) + "@example.com",
		Attribution: model.Attribution{UTMSource: "instagram"}}
	f.w.prospects[p.ID] = p
	return p
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decp(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func uitoa(n uint64) string { return strconv.FormatUint(n, 10) }
