package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	"storefront/internal/pkg/apperr"
	"storefront/internal/pkg/auth"
	"storefront/internal/service/order/domain"
)

var (
	testNow  = time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)
	customer = auth.Session{UserID: "u1", Role: auth.RoleCustomer}
	stranger = auth.Session{UserID: "u2", Role: auth.RoleCustomer}
	admin    = auth.Session{UserID: "ops", Role: auth.RoleAdmin}
)

// memStore 是订单和商品的内存存储，memTx 在失败时恢复快照
type memStore struct {
	mu       sync.Mutex
	orders   map[string]domain.Order
	products map[string]domain.Product
}

func newMemStore(products ...domain.Product) *memStore {
	st := &memStore{orders: map[string]domain.Order{}, products: map[string]domain.Product{}}
	for _, p := range products {
		st.products[p.ID] = p
	}
	return st
}

type memOrders struct{ st *memStore }

func (r memOrders) Create(_ context.Context, o *domain.Order) error {
	if _, ok := r.st.orders[o.ID]; ok {
		return fmt.Errorf("duplicate id %s", o.ID)
	}
	for _, existing := range r.st.orders {
		if o.PaymentKey != "" && existing.PaymentKey == o.PaymentKey {
			return domain.ErrDuplicateSubmission
		}
	}
	r.st.orders[o.ID] = *o
	return nil
}

func (r memOrders) Update(_ context.Context, o *domain.Order) error {
	r.st.orders[o.ID] = *o
	return nil
}

func (r memOrders) FindByID(_ context.Context, id string) (*domain.Order, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return r.find(id)
}

func (r memOrders) FindByIDForUpdate(_ context.Context, id string) (*domain.Order, error) {
	return r.find(id)
}

func (r memOrders) find(id string) (*domain.Order, error) {
	o, ok := r.st.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return &o, nil
}

func (r memOrders) ListByUser(_ context.Context, userID string) ([]*domain.Order, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*domain.Order
	for _, o := range r.st.orders {
		if o.UserID == userID {
			o := o
			out = append(out, &o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type memProducts struct{ st *memStore }

func (r memProducts) FindByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := r.st.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

func (r memProducts) FindByIDForUpdate(ctx context.Context, id string) (*domain.Product, error) {
	return r.FindByID(ctx, id)
}

func (r memProducts) SaveStock(_ context.Context, p *domain.Product) error {
	r.st.products[p.ID] = *p
	return nil
}

type memTx struct{ st *memStore }

func (t memTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.st.mu.Lock()
	defer t.st.mu.Unlock()

	orders := make(map[string]domain.Order, len(t.st.orders))
	for k, v := range t.st.orders {
		orders[k] = v
	}
	products := make(map[string]domain.Product, len(t.st.products))
	for k, v := range t.st.products {
		products[k] = v
	}
	if err := fn(ctx); err != nil {
		t.st.orders, t.st.products = orders, products
		return err
	}
	return nil
}

type fakeCoupons struct {
	err   error
	calls []string
}

func (f *fakeCoupons) RedeemCoupon(_ context.Context, couponID, userID, orderID string, orderTotal, discount int64) error {
	f.calls = append(f.calls, fmt.Sprintf("%s/%s/%s/%d/%d", couponID, userID, orderID, orderTotal, discount))
	return f.err
}

type memGuard struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (g *memGuard) Acquire(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.keys[key] {
		return false, nil
	}
	g.keys[key] = true
	return true, nil
}

func (g *memGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, key)
	return nil
}

type recordingPublisher struct {
	err    error
	events []*domain.OrderEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e *domain.OrderEvent) error {
	p.events = append(p.events, e)
	return p.err
}

type fixture struct {
	svc       *OrderApplicationService
	st        *memStore
	coupons   *fakeCoupons
	guard     *memGuard
	publisher *recordingPublisher
}

func newFixture() *fixture {
	st := newMemStore(
		domain.Product{ID: "p1", Name: "Coat", Price: 40000, Stock: 2, Status: domain.ProductForSale},
		domain.Product{ID: "p2", Name: "Scarf", Price: 20000, Stock: 10, Sales: 3, Status: domain.ProductForSale},
	)
	f := &fixture{
		st:        st,
		coupons:   &fakeCoupons{},
		guard:     &memGuard{keys: map[string]bool{}},
		publisher: &recordingPublisher{},
	}
	seq := 0
	f.svc = NewOrderApplicationService(memOrders{st}, memProducts{st}, memTx{st}, f.coupons, noop.NewTracerProvider().Tracer("test"),
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(func() string { seq++; return fmt.Sprintf("order-%03d", seq) }),
		WithSubmissionGuard(f.guard),
		WithEventPublisher(f.publisher),
	)
	return f
}

func placeRequest(paymentKey string) *PlaceOrderRequest {
	return &PlaceOrderRequest{
		Items: []domain.OrderItem{
			{ProductID: "p1", Name: "Coat", Price: 40000, Quantity: 2},
			{ProductID: "p2", Name: "Scarf", Price: 20000, Quantity: 1},
		},
		Shipping: domain.ShippingInfo{RecipientName: "Kim", Phone: "010-1234-5678", ZipCode: "06236", Address: "Seoul"},
		Payment:  domain.Payment{Method: "card", Key: paymentKey, Confirmed: true},
		Pricing:  domain.Pricing{ShippingFee: 3000, DiscountAmount: 15000, TotalAmount: 88000, CouponID: "c1"},
	}
}

func (f *fixture) product(id string) domain.Product { return f.st.products[id] }

func TestPlaceOrderThenListContainsItOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	placed, err := f.svc.PlaceOrder(ctx, customer, placeRequest("pay-1"))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if placed.Status != domain.StatePaid || placed.UserID != customer.UserID {
		t.Errorf("placed = %+v", placed)
	}

	orders, err := f.svc.ListOrders(ctx, customer)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	count := 0
	for _, o := range orders {
		if o.ID == placed.ID {
			count++
		}
	}
	if count != 1 {
		t.Errorf("placed order appears %d times, want 1", count)
	}
}

func TestPlaceOrderAdjustsStockAndRedeemsCoupon(t *testing.T) {
	f := newFixture()
	placed, err := f.svc.PlaceOrder(context.Background(), customer, placeRequest("pay-1"))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	if p := f.product("p1"); p.Stock != 0 || p.Sales != 2 || p.Status != domain.ProductSoldOut {
		t.Errorf("p1 = %+v, want sold out with 2 sales", p)
	}
	if p := f.product("p2"); p.Stock != 9 || p.Sales != 4 {
		t.Errorf("p2 = %+v", p)
	}
	want := "c1/u1/" + placed.ID + "/100000/15000"
	if len(f.coupons.calls) != 1 || f.coupons.calls[0] != want {
		t.Errorf("coupon calls = %v, want [%s]", f.coupons.calls, want)
	}
	if len(f.publisher.events) != 1 || f.publisher.events[0].Type != domain.EventOrderPlaced {
		t.Errorf("events = %+v", f.publisher.events)
	}
}

func TestPlaceOrderRollsBackWhenCouponRejected(t *testing.T) {
	f := newFixture()
	f.coupons.err = errors.New("coupon already used")

	if _, err := f.svc.PlaceOrder(context.Background(), customer, placeRequest("pay-1")); err == nil {
		t.Fatal("PlaceOrder succeeded with a rejected coupon")
	}
	if len(f.st.orders) != 0 {
		t.Errorf("orders = %d, want 0 after rollback", len(f.st.orders))
	}
	if p := f.product("p1"); p.Stock != 2 || p.Sales != 0 {
		t.Errorf("p1 = %+v, want untouched", p)
	}
	if len(f.guard.keys) != 0 {
		t.Error("submission guard not released after failure")
	}

	f.coupons.err = nil
	if _, err := f.svc.PlaceOrder(context.Background(), customer, placeRequest("pay-1")); err != nil {
		t.Fatalf("retry with same payment key: %v", err)
	}
}

func TestPlaceOrderDuplicatePaymentKey(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	req := placeRequest("pay-1")
	req.Items = req.Items[1:]
	req.Pricing = domainPricing(20000)
	if _, err := f.svc.PlaceOrder(ctx, customer, req); err != nil {
		t.Fatalf("first PlaceOrder: %v", err)
	}
	_, err := f.svc.PlaceOrder(ctx, customer, req)
	if !errors.Is(err, domain.ErrDuplicateSubmission) {
		t.Fatalf("err = %v, want ErrDuplicateSubmission", err)
	}
	if len(f.st.orders) != 1 {
		t.Errorf("orders = %d, want 1", len(f.st.orders))
	}
	if len(f.guard.keys) != 1 {
		t.Error("duplicate submission released the first order's guard")
	}
}

func domainPricing(subtotal int64) domain.Pricing {
	return domain.Pricing{ShippingFee: 3000, TotalAmount: subtotal + 3000}
}

func TestPlaceOrderValidationFailure(t *testing.T) {
	f := newFixture()
	req := placeRequest("")
	req.Items = nil

	_, err := f.svc.PlaceOrder(context.Background(), customer, req)
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestPlaceOrderPublishFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.publisher.err = errors.New("broker down")

	if _, err := f.svc.PlaceOrder(context.Background(), customer, placeRequest("pay-1")); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if len(f.st.orders) != 1 {
		t.Error("order not persisted")
	}
}

func TestCancellationFlowRestocks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	placed, _ := f.svc.PlaceOrder(ctx, customer, placeRequest("pay-1"))

	if _, err := f.svc.RequestCancel(ctx, stranger, placed.ID, "mine now"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Errorf("stranger cancel request err = %v", err)
	}
	view, err := f.svc.RequestCancel(ctx, customer, placed.ID, "changed my mind")
	if err != nil {
		t.Fatalf("RequestCancel: %v", err)
	}
	if view.Status != domain.StatePaid || view.CancelRequested == nil {
		t.Errorf("after request: %+v", view)
	}
	if p := f.product("p1"); p.Stock != 0 {
		t.Error("cancel request restocked before approval")
	}

	if _, err := f.svc.ApproveCancellation(ctx, customer, placed.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("customer approval err = %v, want forbidden", err)
	}
	view, err = f.svc.ApproveCancellation(ctx, admin, placed.ID)
	if err != nil {
		t.Fatalf("ApproveCancellation: %v", err)
	}
	if view.Status != domain.StateCancelled || view.CancelledAt == nil {
		t.Errorf("after approval: %+v", view)
	}
	if p := f.product("p1"); p.Stock != 2 || p.Sales != 0 || p.Status != domain.ProductForSale {
		t.Errorf("p1 = %+v, want restocked", p)
	}
	if p := f.product("p2"); p.Stock != 10 || p.Sales != 3 {
		t.Errorf("p2 = %+v, want restocked", p)
	}
}

func TestChangeStatusToCancelledRestocks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	placed, _ := f.svc.PlaceOrder(ctx, customer, placeRequest("pay-1"))

	if _, err := f.svc.ChangeStatus(ctx, admin, placed.ID, ChangeStatusRequest{Status: domain.StateCancelled}); err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if p := f.product("p1"); p.Stock != 2 {
		t.Errorf("p1 stock = %d, want 2", p.Stock)
	}
}

func TestReturnFlowRestocksOnCompletion(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	placed, _ := f.svc.PlaceOrder(ctx, customer, placeRequest("pay-1"))

	if _, err := f.svc.RequestReturn(ctx, customer, placed.ID, "too small"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("return before delivery err = %v", err)
	}

	steps := []ChangeStatusRequest{
		{Status: domain.StatePreparing},
		{Status: domain.StateShipping, TrackingCarrier: "CJ", TrackingNumber: "5512"},
		{Status: domain.StateDelivered},
	}
	for _, step := range steps {
		if _, err := f.svc.ChangeStatus(ctx, admin, placed.ID, step); err != nil {
			t.Fatalf("ChangeStatus(%s): %v", step.Status, err)
		}
	}

	view, err := f.svc.RequestReturn(ctx, customer, placed.ID, "too small")
	if err != nil {
		t.Fatalf("RequestReturn: %v", err)
	}
	if view.Status != domain.StateReturnRequested || view.TrackingNumber != "5512" {
		t.Errorf("after return request: %+v", view)
	}
	if p := f.product("p1"); p.Stock != 0 {
		t.Error("return request restocked before completion")
	}

	view, err = f.svc.ChangeStatus(ctx, admin, placed.ID, ChangeStatusRequest{Status: domain.StateReturnCompleted})
	if err != nil {
		t.Fatalf("complete return: %v", err)
	}
	if view.Status != domain.StateReturnCompleted || view.ReturnedAt == nil {
		t.Errorf("after completion: %+v", view)
	}
	if p := f.product("p1"); p.Stock != 2 || p.Sales != 0 {
		t.Errorf("p1 = %+v, want restocked", p)
	}
}

func TestChangeStatusRejections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	placed, _ := f.svc.PlaceOrder(ctx, customer, placeRequest("pay-1"))

	if _, err := f.svc.ChangeStatus(ctx, customer, placed.ID, ChangeStatusRequest{Status: domain.StatePreparing}); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("customer change err = %v, want forbidden", err)
	}
	if _, err := f.svc.ChangeStatus(ctx, admin, placed.ID, ChangeStatusRequest{Status: domain.StateDelivered}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("skip to delivered err = %v, want invalid transition", err)
	}
	var verr *apperr.ValidationError
	if _, err := f.svc.ChangeStatus(ctx, admin, placed.ID, ChangeStatusRequest{Status: "lost"}); !errors.As(err, &verr) {
		t.Errorf("unknown status err = %v, want validation error", err)
	}
	if got := f.st.orders[placed.ID].Status; got != domain.StatePaid {
		t.Errorf("status = %s after rejected changes, want %s", got, domain.StatePaid)
	}
}

func TestGetOrderHidesOtherUsersOrders(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	placed, _ := f.svc.PlaceOrder(ctx, customer, placeRequest("pay-1"))

	if _, err := f.svc.GetOrder(ctx, stranger, placed.ID); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Errorf("stranger err = %v, want not found", err)
	}
	if _, err := f.svc.GetOrder(ctx, admin, placed.ID); err != nil {
		t.Errorf("admin GetOrder: %v", err)
	}
}
