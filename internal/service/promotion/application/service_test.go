package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	"storefront/internal/pkg/apperr"
	"storefront/internal/pkg/auth"
	"storefront/internal/service/promotion/domain"
)

var fixedNow = time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)

type memCoupons struct {
	mu      sync.Mutex
	coupons map[string]*domain.Coupon
	usages  []*domain.CouponUsage
	failOn  string
}

func newMemCoupons(cs ...*domain.Coupon) *memCoupons {
	m := &memCoupons{coupons: map[string]*domain.Coupon{}}
	for _, c := range cs {
		m.coupons[c.ID] = c
	}
	return m
}

func (m *memCoupons) ListByUser(_ context.Context, userID string) ([]*domain.Coupon, error) {
	if m.failOn == "list" {
		return nil, apperr.Store("coupons.list", errors.New("connection refused"))
	}
	var out []*domain.Coupon
	for _, c := range m.coupons {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memCoupons) FindByID(_ context.Context, id string) (*domain.Coupon, error) {
	c, ok := m.coupons[id]
	if !ok {
		return nil, domain.ErrCouponNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCoupons) FindByIDForUpdate(ctx context.Context, id string) (*domain.Coupon, error) {
	return m.FindByID(ctx, id)
}

func (m *memCoupons) MarkUsed(_ context.Context, c *domain.Coupon) error {
	stored := m.coupons[c.ID]
	if stored.IsUsed {
		return &domain.CouponAlreadyUsedError{CouponID: c.ID, OrderID: stored.OrderID}
	}
	cp := *c
	m.coupons[c.ID] = &cp
	return nil
}

func (m *memCoupons) AppendUsage(_ context.Context, u *domain.CouponUsage) error {
	if m.failOn == "usage" {
		return apperr.Store("coupon_usage.insert", errors.New("disk full"))
	}
	m.usages = append(m.usages, u)
	return nil
}

// serialTx 用互斥锁模拟事务隔离，失败时回滚到调用前的快照
type serialTx struct{ repo *memCoupons }

func (t serialTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	snapshot := make(map[string]*domain.Coupon, len(t.repo.coupons))
	for k, v := range t.repo.coupons {
		cp := *v
		snapshot[k] = &cp
	}
	usages := len(t.repo.usages)
	if err := fn(ctx); err != nil {
		t.repo.coupons = snapshot
		t.repo.usages = t.repo.usages[:usages]
		return err
	}
	return nil
}

func newService(repo *memCoupons) *PromotionService {
	n := 0
	return NewPromotionService(repo, serialTx{repo}, NopLocker{}, noop.NewTracerProvider().Tracer("test"),
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { n++; return "usage-" + string(rune('0'+n)) }),
	)
}

func coupon(id, user string, value, minAmount int64) *domain.Coupon {
	return &domain.Coupon{
		ID: id, Name: id, Type: domain.CouponTypeFlat, Value: value, MinAmount: minAmount,
		StartsAt: fixedNow.AddDate(0, -1, 0), EndsAt: fixedNow.AddDate(0, 1, 0), UserID: user,
	}
}

var alice = auth.Session{UserID: "alice", Role: auth.RoleCustomer}

func TestQuoteFlatCoupon(t *testing.T) {
	svc := newService(newMemCoupons(coupon("c1", "alice", 15000, 50000)))

	got, err := svc.Quote(context.Background(), alice, "c1", 100000)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if got.DiscountAmount != 15000 || got.FinalAmount != 85000 {
		t.Errorf("quote = %+v, want discount 15000 final 85000", got)
	}
}

func TestQuoteBelowMinimum(t *testing.T) {
	svc := newService(newMemCoupons(coupon("c1", "alice", 15000, 50000)))

	_, err := svc.Quote(context.Background(), alice, "c1", 40000)
	var ierr *domain.CouponIneligibleError
	if !errors.As(err, &ierr) || ierr.Reason != domain.ReasonBelowMinimum {
		t.Fatalf("err = %v, want min_amount ineligibility", err)
	}
}

func TestListEligibleFiltersByOwnerAndWindow(t *testing.T) {
	expired := coupon("old", "alice", 1000, 0)
	expired.EndsAt = fixedNow.Add(-time.Second)
	svc := newService(newMemCoupons(
		coupon("c1", "alice", 15000, 50000),
		coupon("c2", "bob", 1000, 0),
		expired,
	))

	views, err := svc.ListEligible(context.Background(), alice, 100000)
	if err != nil {
		t.Fatalf("ListEligible: %v", err)
	}
	if len(views) != 1 || views[0].ID != "c1" || views[0].Discount != 15000 {
		t.Errorf("views = %+v, want only c1 with discount 15000", views)
	}
}

func TestListEligibleStoreFailure(t *testing.T) {
	repo := newMemCoupons()
	repo.failOn = "list"
	svc := newService(repo)

	_, err := svc.ListEligible(context.Background(), alice, 1000)
	if !apperr.IsStore(err) {
		t.Fatalf("err = %v, want ExternalStoreError", err)
	}
	if err.Error() == "connection refused" {
		t.Error("store error leaked its cause")
	}
}

func TestConsumeOnce(t *testing.T) {
	repo := newMemCoupons(coupon("c1", "alice", 15000, 50000))
	svc := newService(repo)
	ctx := context.Background()
	req := ConsumeRequest{OrderID: "o1", OrderTotal: 100000, DiscountAmount: 15000}

	usage, err := svc.Consume(ctx, alice, "c1", req)
	if err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if usage.DiscountAmount != 15000 || usage.OrderID != "o1" {
		t.Errorf("usage = %+v", usage)
	}

	req.OrderID = "o2"
	_, err = svc.Consume(ctx, alice, "c1", req)
	if !errors.Is(err, domain.ErrCouponAlreadyUsed) {
		t.Fatalf("second consume err = %v, want already used", err)
	}
	if len(repo.usages) != 1 {
		t.Errorf("usages = %d, want 1", len(repo.usages))
	}
	if stored := repo.coupons["c1"]; stored.OrderID != "o1" || stored.UsedAt == nil {
		t.Errorf("stored coupon changed after second consume: %+v", stored)
	}
}

func TestConsumeConcurrentSingleWinner(t *testing.T) {
	repo := newMemCoupons(coupon("c1", "alice", 15000, 0))
	svc := newService(repo)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Consume(context.Background(), alice, "c1",
				ConsumeRequest{OrderID: "o", OrderTotal: 20000, DiscountAmount: 15000})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("successful consumes = %d, want 1", wins)
	}
}

func TestRedeemRejections(t *testing.T) {
	expired := coupon("exp", "alice", 1000, 0)
	expired.EndsAt = fixedNow.Add(-time.Minute)

	tests := []struct {
		name string
		req  RedeemRequest
		is   error
	}{
		{"discount mismatch", RedeemRequest{CouponID: "c1", UserID: "alice", OrderID: "o", OrderTotal: 100000, DiscountAmount: 20000}, domain.ErrCouponIneligible},
		{"expired", RedeemRequest{CouponID: "exp", UserID: "alice", OrderID: "o", OrderTotal: 100000, DiscountAmount: 1000}, domain.ErrCouponIneligible},
		{"other owner", RedeemRequest{CouponID: "c1", UserID: "mallory", OrderID: "o", OrderTotal: 100000, DiscountAmount: 15000}, domain.ErrCouponNotFound},
		{"unknown coupon", RedeemRequest{CouponID: "nope", UserID: "alice", OrderID: "o", OrderTotal: 100000}, domain.ErrCouponNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemCoupons(coupon("c1", "alice", 15000, 50000), expired)
			_, err := newService(repo).Redeem(context.Background(), tt.req)
			if !errors.Is(err, tt.is) {
				t.Fatalf("err = %v, want %v", err, tt.is)
			}
			if len(repo.usages) != 0 {
				t.Error("usage recorded for a rejected redeem")
			}
		})
	}
}

func TestRedeemRequiresIDs(t *testing.T) {
	_, err := newService(newMemCoupons()).Redeem(context.Background(), RedeemRequest{UserID: "alice"})
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) || len(verr.Fields) != 2 {
		t.Fatalf("err = %v, want validation error on coupon_id and order_id", err)
	}
}

func TestRedeemRollsBackOnUsageFailure(t *testing.T) {
	repo := newMemCoupons(coupon("c1", "alice", 15000, 0))
	repo.failOn = "usage"

	err := newService(repo).RedeemCoupon(context.Background(), "c1", "alice", "o1", 20000, 15000)
	if !apperr.IsStore(err) {
		t.Fatalf("err = %v, want store error", err)
	}
	if repo.coupons["c1"].IsUsed {
		t.Error("coupon marked used although the transaction failed")
	}
}
