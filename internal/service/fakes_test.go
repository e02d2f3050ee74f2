package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/conexx/hub/internal/domain"
	"github.com/conexx/hub/pkg/payment"
	"golang.org/x/crypto/bcrypt"
)

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[string]*domain.User
	store []*domain.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[string]*domain.User{}}
}

func (f *fakeUsers) add(role, password string) *domain.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	u := &domain.User{
		ID:        domain.NewID(),
		Email:     domain.NewID() + "@conexx.test",
		Password:  string(hash),
		Role:      role,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[u.ID] = u
	f.store = append(f.store, u)
	return u
}

func (f *fakeUsers) Create(_ context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return fmt.Errorf("duplicate email")
		}
	}
	c := *u
	f.byID[u.ID] = &c
	f.store = append(f.store, &c)
	return nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (f *fakeUsers) ListAll(_ context.Context) ([]*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.User(nil), f.store...), nil
}

func (f *fakeUsers) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	return nil
}

type fakeTenants struct {
	mu   sync.Mutex
	byID map[string]*domain.Tenant
}

func newFakeTenants() *fakeTenants {
	return &fakeTenants{byID: map[string]*domain.Tenant{}}
}

func (f *fakeTenants) add(owner *domain.User, percent float64) *domain.Tenant {
	t := &domain.Tenant{
		ID:                 domain.NewID(),
		OwnerUserID:        owner.ID,
		Name:               "Loja " + owner.ID[:8],
		Document:           "12345678000190",
		Email:              owner.Email,
		CompanyPercentage:  percent,
		SubscriptionStatus: domain.TenantSubscriptionNone,
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[t.ID] = t
	return t
}

func (f *fakeTenants) get(id string) *domain.Tenant {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *f.byID[id]
	return &c
}

func (f *fakeTenants) Create(_ context.Context, t *domain.Tenant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *t
	f.byID[t.ID] = &c
	return nil
}

func (f *fakeTenants) FindByID(_ context.Context, id string) (*domain.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.byID[id]; ok {
		c := *t
		return &c, nil
	}
	return nil, nil
}

func (f *fakeTenants) List(_ context.Context) ([]*domain.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Tenant
	for _, t := range f.byID {
		c := *t
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTenants) ListByOwner(ctx context.Context, ownerUserID string) ([]*domain.Tenant, error) {
	all, _ := f.List(ctx)
	var out []*domain.Tenant
	for _, t := range all {
		if t.OwnerUserID == ownerUserID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTenants) Update(_ context.Context, t *domain.Tenant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur := f.byID[t.ID]
	cur.Name, cur.Email, cur.CompanyPercentage = t.Name, t.Email, t.CompanyPercentage
	return nil
}

func (f *fakeTenants) SetCustomerID(_ context.Context, tenantID, customerID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.byID[tenantID]
	if t.AsaasCustomerID == nil {
		t.AsaasCustomerID = &customerID
	}
	return *t.AsaasCustomerID, nil
}

func (f *fakeTenants) SetPendingPlan(_ context.Context, tenantID, planID, cycle, paymentURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.byID[tenantID]
	t.PendingPlanID, t.PendingBillingCycle = &planID, &cycle
	if paymentURL != "" {
		t.PendingPaymentURL = &paymentURL
	}
	if t.SubscriptionStatus == domain.TenantSubscriptionNone {
		t.SubscriptionStatus = domain.TenantSubscriptionPending
	}
	return nil
}

func (f *fakeTenants) ApplySubscription(_ context.Context, tenantID string, upd domain.TenantSubscriptionUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.byID[tenantID]
	if upd.PlanID != "" {
		t.PlanID = &upd.PlanID
	}
	if upd.BillingCycle != "" {
		t.BillingCycle = &upd.BillingCycle
	}
	if upd.NextBilling != nil {
		t.NextBilling = upd.NextBilling
	}
	t.SubscriptionStatus = upd.SubscriptionStatus
	t.PendingPlanID, t.PendingBillingCycle, t.PendingPaymentURL = nil, nil, nil
	return nil
}

func (f *fakeTenants) SetSubscriptionStatus(_ context.Context, tenantID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[tenantID].SubscriptionStatus = status
	return nil
}

func (f *fakeTenants) RefreshGrossRevenue(_ context.Context, tenantID string) (int64, error) {
	return 0, nil
}

type fakeFees struct {
	mu   sync.Mutex
	byID map[string]*domain.WeeklyFee
	// beforeTransition runs inside Transition before the status check.
	beforeTransition func(f *domain.WeeklyFee)
}

func newFakeFees() *fakeFees {
	return &fakeFees{byID: map[string]*domain.WeeklyFee{}}
}

func (f *fakeFees) put(fee *domain.WeeklyFee) *domain.WeeklyFee {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fee.ID == "" {
		fee.ID = domain.NewID()
	}
	c := *fee
	f.byID[fee.ID] = &c
	return fee
}

func (f *fakeFees) get(id string) *domain.WeeklyFee {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *f.byID[id]
	return &c
}

func (f *fakeFees) findLocked(match func(*domain.WeeklyFee) bool) *domain.WeeklyFee {
	for _, fee := range f.byID {
		if match(fee) {
			c := *fee
			return &c
		}
	}
	return nil
}

func (f *fakeFees) FindByID(_ context.Context, id string) (*domain.WeeklyFee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findLocked(func(w *domain.WeeklyFee) bool { return w.ID == id }), nil
}

func (f *fakeFees) FindByTenantWeek(_ context.Context, tenantID string, weekStart time.Time) (*domain.WeeklyFee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findLocked(func(w *domain.WeeklyFee) bool {
		return w.TenantID == tenantID && w.WeekStart.Equal(weekStart)
	}), nil
}

func (f *fakeFees) FindByAsaasPaymentID(_ context.Context, paymentID string) (*domain.WeeklyFee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findLocked(func(w *domain.WeeklyFee) bool {
		return w.AsaasPaymentID != nil && *w.AsaasPaymentID == paymentID
	}), nil
}

func (f *fakeFees) upsertLocked(fee *domain.WeeklyFee) bool {
	for _, cur := range f.byID {
		if cur.TenantID == fee.TenantID && cur.WeekStart.Equal(fee.WeekStart) {
			if cur.Status == domain.FeePending {
				cur.WeekEnd = fee.WeekEnd
				cur.RevenueWeek = fee.RevenueWeek
				cur.PercentApplied = fee.PercentApplied
				cur.AmountDue = fee.AmountDue
			}
			return false
		}
	}
	c := *fee
	c.Status = domain.FeePending
	f.byID[c.ID] = &c
	return true
}

func (f *fakeFees) UpsertPending(ctx context.Context, fee *domain.WeeklyFee) (*domain.WeeklyFee, error) {
	f.mu.Lock()
	f.upsertLocked(fee)
	f.mu.Unlock()
	return f.FindByTenantWeek(ctx, fee.TenantID, fee.WeekStart)
}

func (f *fakeFees) CommitBatch(_ context.Context, fees []*domain.WeeklyFee) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	created := 0
	for _, fee := range fees {
		if f.upsertLocked(fee) {
			created++
		}
	}
	return created, nil
}

func (f *fakeFees) Transition(_ context.Context, id, from, to string, c domain.FeeChanges) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fee, ok := f.byID[id]
	if !ok {
		return false, nil
	}
	if f.beforeTransition != nil {
		f.beforeTransition(fee)
	}
	if fee.Status != from {
		return false, nil
	}
	fee.Status = to
	if c.AsaasPaymentID != nil {
		fee.AsaasPaymentID = c.AsaasPaymentID
	}
	if c.AsaasInvoiceURL != nil {
		fee.AsaasInvoiceURL = c.AsaasInvoiceURL
	}
	if c.BillingType != nil {
		fee.BillingType = c.BillingType
	}
	if c.DueDate != nil {
		fee.DueDate = c.DueDate
	}
	if c.PaymentDate != nil {
		fee.PaymentDate = c.PaymentDate
	}
	return true, nil
}

func (f *fakeFees) List(_ context.Context, filter domain.FeeFilter) ([]*domain.WeeklyFee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	allowed := map[string]bool{}
	for _, id := range filter.TenantIDs {
		allowed[id] = true
	}
	var out []*domain.WeeklyFee
	for _, fee := range f.byID {
		if len(allowed) > 0 && !allowed[fee.TenantID] {
			continue
		}
		if filter.Status != "" && fee.Status != filter.Status {
			continue
		}
		c := *fee
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekStart.After(out[j].WeekStart) })
	return out, nil
}

type fakeOrders struct {
	mu     sync.Mutex
	orders map[string][]domain.Order
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: map[string][]domain.Order{}}
}

func (f *fakeOrders) UpsertBatch(_ context.Context, tenantID string, orders []domain.Order) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[tenantID] = append(f.orders[tenantID], orders...)
	return len(orders), nil
}

func (f *fakeOrders) SumApproved(_ context.Context, tenantID string, from, to time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, o := range f.orders[tenantID] {
		if o.Status == domain.OrderApproved && !o.PlacedAt.Before(from) && o.PlacedAt.Before(to) {
			total += o.Value
		}
	}
	return total, nil
}

type fakeEvents struct {
	mu    sync.Mutex
	byKey map[string]*domain.WebhookEvent
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{byKey: map[string]*domain.WebhookEvent{}}
}

func (f *fakeEvents) get(key string) *domain.WebhookEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.byKey[domain.ProviderAsaas+"|"+key]
	if !ok {
		return nil
	}
	c := *ev
	return &c
}

func (f *fakeEvents) Claim(_ context.Context, ev *domain.WebhookEvent) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := ev.Provider + "|" + ev.EventID
	cur, ok := f.byKey[key]
	if !ok {
		c := *ev
		f.byKey[key] = &c
		return true, nil
	}
	if cur.Status != domain.WebhookError {
		return false, nil
	}
	cur.Status = domain.WebhookReceived
	cur.ErrorMessage = nil
	ev.ID = cur.ID
	return true, nil
}

func (f *fakeEvents) update(id string, fn func(*domain.WebhookEvent)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ev := range f.byKey {
		if ev.ID == id {
			fn(ev)
		}
	}
}

func (f *fakeEvents) MarkProcessed(_ context.Context, id string) error {
	now := time.Now()
	f.update(id, func(ev *domain.WebhookEvent) {
		ev.Status = domain.WebhookProcessed
		ev.ProcessedAt = &now
	})
	return nil
}

func (f *fakeEvents) MarkError(_ context.Context, id, message string) error {
	f.update(id, func(ev *domain.WebhookEvent) {
		ev.Status = domain.WebhookError
		ev.ErrorMessage = &message
	})
	return nil
}

func (f *fakeEvents) List(_ context.Context, status string, limit int) ([]*domain.WebhookEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.WebhookEvent
	for _, ev := range f.byKey {
		if status == "" || ev.Status == status {
			c := *ev
			out = append(out, &c)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakePayments struct {
	mu   sync.Mutex
	byID map[string]*domain.Payment
}

func newFakePayments() *fakePayments {
	return &fakePayments{byID: map[string]*domain.Payment{}}
}

func (f *fakePayments) get(asaasID string) *domain.Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[asaasID]
	if !ok {
		return nil
	}
	c := *p
	return &c
}

func (f *fakePayments) Upsert(_ context.Context, p *domain.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *p
	if cur, ok := f.byID[p.AsaasPaymentID]; ok {
		if cur.PaidAt != nil {
			c.PaidAt = cur.PaidAt
		}
		if cur.Status == domain.PaymentPaid && c.Status == domain.PaymentPending {
			c.Status = cur.Status
		}
	}
	f.byID[p.AsaasPaymentID] = &c
	return nil
}

type fakeSubscriptions struct {
	mu   sync.Mutex
	byID map[string]*domain.Subscription
}

func newFakeSubscriptions() *fakeSubscriptions {
	return &fakeSubscriptions{byID: map[string]*domain.Subscription{}}
}

func (f *fakeSubscriptions) get(id string) *domain.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *f.byID[id]
	return &c
}

func (f *fakeSubscriptions) Create(_ context.Context, s *domain.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *s
	f.byID[s.ID] = &c
	return nil
}

func (f *fakeSubscriptions) FindByAsaasID(_ context.Context, asaasID string) (*domain.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.byID {
		if s.AsaasSubscriptionID == asaasID {
			c := *s
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeSubscriptions) FindLatestByTenant(_ context.Context, tenantID string) (*domain.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *domain.Subscription
	for _, s := range f.byID {
		if s.TenantID == tenantID && (latest == nil || s.CreatedAt.After(latest.CreatedAt)) {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	c := *latest
	return &c, nil
}

func (f *fakeSubscriptions) UpdateFromProvider(_ context.Context, id, status string, value int64, cycle string, nextDue *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.byID[id]
	if status != "" {
		s.Status = status
	}
	s.Value, s.Cycle = value, cycle
	if nextDue != nil {
		s.NextDueDate = nextDue
	}
	return nil
}

type fakeGateway struct {
	mu sync.Mutex

	customers     []payment.CustomerRequest
	charges       []payment.ChargeRequest
	deleted       []string
	subscriptions []payment.SubscriptionRequest

	createPaymentErr error
	deletePaymentErr error
	seq              int
}

func (g *fakeGateway) next(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s_%d", prefix, g.seq)
}

func (g *fakeGateway) CreateCustomer(_ context.Context, req payment.CustomerRequest) (*payment.Customer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.customers = append(g.customers, req)
	return &payment.Customer{ID: g.next("cus"), Name: req.Name}, nil
}

func (g *fakeGateway) CreatePayment(_ context.Context, req payment.ChargeRequest) (*payment.Charge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createPaymentErr != nil {
		return nil, g.createPaymentErr
	}
	g.charges = append(g.charges, req)
	id := g.next("pay")
	return &payment.Charge{
		ID:          id,
		Customer:    req.Customer,
		Value:       req.Value,
		BillingType: req.BillingType,
		Status:      "PENDING",
		DueDate:     req.DueDate,
		InvoiceURL:  "https://asaas.test/i/" + id,
	}, nil
}

func (g *fakeGateway) DeletePayment(_ context.Context, paymentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.deletePaymentErr != nil {
		return g.deletePaymentErr
	}
	g.deleted = append(g.deleted, paymentID)
	return nil
}

func (g *fakeGateway) CreateSubscription(_ context.Context, req payment.SubscriptionRequest) (*payment.Subscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subscriptions = append(g.subscriptions, req)
	return &payment.Subscription{
		ID:          g.next("sub"),
		Customer:    req.Customer,
		Value:       req.Value,
		Cycle:       req.Cycle,
		NextDueDate: req.NextDueDate,
		Status:      "ACTIVE",
	}, nil
}

func (g *fakeGateway) ListSubscriptionPayments(_ context.Context, subscriptionID string) ([]payment.Charge, error) {
	return []payment.Charge{{ID: "pay_first", Subscription: subscriptionID, InvoiceURL: "https://asaas.test/i/first"}}, nil
}
