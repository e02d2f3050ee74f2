package service

import (
	"time"

	"github.com/conexx/hub/pkg/logger"
)

var saoPaulo = time.FixedZone("BRT", -3*60*60)

// billing wires the services over in-memory stores.
type billing struct {
	users         *fakeUsers
	tenants       *fakeTenants
	fees          *fakeFees
	orders        *fakeOrders
	events        *fakeEvents
	payments      *fakePayments
	subscriptions *fakeSubscriptions
	gateway       *fakeGateway

	auth       *AuthService
	calculator *FeeCalculator
	lifecycle  *FeeLifecycle
	reconciler *Reconciler
	webhooks   *WebhookService
	checkout   *SubscriptionService
}

func newBilling(now time.Time) *billing {
	log := logger.Discard()
	b := &billing{
		users:         newFakeUsers(),
		tenants:       newFakeTenants(),
		fees:          newFakeFees(),
		orders:        newFakeOrders(),
		events:        newFakeEvents(),
		payments:      newFakePayments(),
		subscriptions: newFakeSubscriptions(),
		gateway:       &fakeGateway{},
	}
	clock := func() time.Time { return now }

	b.auth = NewAuthService("secret", "", "", b.users, log)
	b.calculator = NewFeeCalculator(b.fees, b.tenants, b.orders, saoPaulo, log)
	b.lifecycle = NewFeeLifecycle(b.fees, b.tenants, b.gateway, b.auth, saoPaulo, 3, log)
	b.lifecycle.now = clock
	b.reconciler = NewReconciler(b.payments, b.subscriptions, b.tenants, b.users, b.fees, b.lifecycle, saoPaulo, log)
	b.reconciler.now = clock
	b.webhooks = NewWebhookService(b.events, b.reconciler, log)
	b.checkout = NewSubscriptionService(b.subscriptions, b.tenants, b.gateway, saoPaulo, log)
	b.checkout.now = clock
	return b
}
