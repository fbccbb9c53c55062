package domain

import (
	"errors"
	"testing"
	"time"

	"storefront/internal/pkg/apperr"
)

var now = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

func validParams() NewOrderParams {
	return NewOrderParams{
		ID:     "o1",
		UserID: "u1",
		Items: []OrderItem{
			{ProductID: "p1", Name: "Coat", Price: 40000, Quantity: 2},
			{ProductID: "p2", Name: "Scarf", Price: 20000, Quantity: 1},
		},
		Shipping: ShippingInfo{RecipientName: "Kim", Phone: "010-0000-0000", ZipCode: "06236", Address: "Seoul"},
		Payment:  Payment{Method: "card", Key: "pay_1", Confirmed: true},
		Pricing:  Pricing{ShippingFee: 3000, DiscountAmount: 15000, TotalAmount: 88000, CouponID: "c1"},
	}
}

func TestNewOrder(t *testing.T) {
	o, err := NewOrder(validParams(), now)
	if err != nil {
		t.Fatalf("NewOrder: %v", err)
	}
	if o.Status != StatePaid {
		t.Errorf("status = %s, want %s", o.Status, StatePaid)
	}
	if o.Subtotal != 100000 || o.TotalAmount != 88000 {
		t.Errorf("subtotal %d total %d, want 100000 and 88000", o.Subtotal, o.TotalAmount)
	}

	p := validParams()
	p.Payment.Confirmed = false
	o, err = NewOrder(p, now)
	if err != nil {
		t.Fatalf("NewOrder unconfirmed: %v", err)
	}
	if o.Status != StateReceived {
		t.Errorf("status = %s, want %s", o.Status, StateReceived)
	}
}

func TestNewOrderItemsAreSnapshotted(t *testing.T) {
	p := validParams()
	o, _ := NewOrder(p, now)
	p.Items[0].Price = 1
	if o.Items[0].Price != 40000 {
		t.Error("order items share memory with the request")
	}
}

func TestNewOrderValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*NewOrderParams)
		field  string
	}{
		{"no items", func(p *NewOrderParams) { p.Items = nil; p.Pricing = Pricing{ShippingFee: 3000, TotalAmount: 3000} }, "items"},
		{"zero quantity", func(p *NewOrderParams) { p.Items[1].Quantity = 0; p.Pricing.TotalAmount = 68000 }, "items[1].quantity"},
		{"negative price", func(p *NewOrderParams) { p.Items[1].Price = -1; p.Pricing.TotalAmount = 67999 }, "items[1].price"},
		{"missing user", func(p *NewOrderParams) { p.UserID = "" }, "user_id"},
		{"missing address", func(p *NewOrderParams) { p.Shipping.Address = "" }, "shipping.address"},
		{"missing payment method", func(p *NewOrderParams) { p.Payment.Method = "" }, "payment.payment_method"},
		{"total mismatch", func(p *NewOrderParams) { p.Pricing.TotalAmount = 100000 }, "pricing.total_amount"},
		{"discount without coupon", func(p *NewOrderParams) { p.Pricing.CouponID = "" }, "pricing.coupon_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)
			_, err := NewOrder(p, now)

			var verr *apperr.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			for _, f := range verr.Fields {
				if f.Field == tt.field {
					return
				}
			}
			t.Errorf("fields = %+v, want one for %q", verr.Fields, tt.field)
		})
	}
}

func TestOrderLifecycle(t *testing.T) {
	o, _ := NewOrder(validParams(), now)

	steps := []State{StatePreparing, StateShipping, StateDelivered}
	for _, s := range steps {
		if err := o.Transition(s, now); err != nil {
			t.Fatalf("transition to %s: %v", s, err)
		}
	}
	if err := o.Cancel(now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("cancel delivered order: err = %v, want invalid transition", err)
	}
	if err := o.RequestReturn("size", now); err != nil {
		t.Fatalf("RequestReturn: %v", err)
	}
	if err := o.CompleteReturn(now); err != nil {
		t.Fatalf("CompleteReturn: %v", err)
	}
	if o.ReturnedAt == nil || o.ReturnReason != "size" {
		t.Errorf("return metadata not recorded: %+v", o)
	}
}

func TestSkippingStepsRejected(t *testing.T) {
	o, _ := NewOrder(validParams(), now)
	err := o.Transition(StateDelivered, now)

	var terr *InvalidTransitionError
	if !errors.As(err, &terr) || terr.From != StatePaid || terr.To != StateDelivered {
		t.Fatalf("err = %v, want InvalidTransitionError paid -> delivered", err)
	}
	if o.Status != StatePaid {
		t.Errorf("status changed to %s after rejected transition", o.Status)
	}
}

func TestShipRecordsTracking(t *testing.T) {
	o, _ := NewOrder(validParams(), now)
	_ = o.Transition(StatePreparing, now)
	if err := o.Ship("CJ", "1234", now); err != nil {
		t.Fatalf("Ship: %v", err)
	}
	if o.TrackingCarrier != "CJ" || o.TrackingNumber != "1234" {
		t.Errorf("tracking = %s/%s", o.TrackingCarrier, o.TrackingNumber)
	}
}

func TestRequestCancel(t *testing.T) {
	o, _ := NewOrder(validParams(), now)

	if err := o.RequestCancel(" ", now); err == nil {
		t.Error("empty reason accepted")
	}
	if err := o.RequestCancel("changed my mind", now); err != nil {
		t.Fatalf("RequestCancel: %v", err)
	}
	if o.Status != StatePaid || !o.HasPendingCancel() {
		t.Errorf("status %s pending %v, want unchanged status with pending request", o.Status, o.HasPendingCancel())
	}
	if err := o.RequestCancel("again", now); !errors.Is(err, ErrCancelAlreadyRequested) {
		t.Errorf("second request err = %v", err)
	}

	shipped, _ := NewOrder(validParams(), now)
	_ = shipped.Transition(StatePreparing, now)
	if err := shipped.RequestCancel("late", now); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("cancel request while preparing: err = %v", err)
	}
}

func TestProductStock(t *testing.T) {
	p := &Product{ID: "p1", Stock: 2, Sales: 5, Status: ProductForSale}

	p.Decrement(3)
	if p.Stock != 0 || p.Sales != 8 || p.Status != ProductSoldOut {
		t.Fatalf("after decrement: %+v", p)
	}

	p.Restock(2)
	if p.Stock != 2 || p.Sales != 6 || p.Status != ProductForSale {
		t.Fatalf("after restock: %+v", p)
	}

	p.Restock(10)
	if p.Sales != 0 {
		t.Errorf("sales = %d, want clamped to 0", p.Sales)
	}
}
