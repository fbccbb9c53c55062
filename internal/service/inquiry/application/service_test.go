package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	"storefront/internal/pkg/apperr"
	"storefront/internal/pkg/auth"
	"storefront/internal/service/inquiry/domain"
	"storefront/internal/service/inquiry/infrastructure/rule"
	orderdomain "storefront/internal/service/order/domain"
)

var kst = time.FixedZone("KST", 9*60*60)

type memInquiries struct{ saved []*domain.Inquiry }

func (m *memInquiries) Create(_ context.Context, i *domain.Inquiry) error {
	m.saved = append(m.saved, i)
	return nil
}

type memProducts map[string]*orderdomain.Product

func (m memProducts) FindByID(_ context.Context, id string) (*orderdomain.Product, error) {
	if p, ok := m[id]; ok {
		return p, nil
	}
	return nil, orderdomain.ErrProductNotFound
}

type memHistory []*orderdomain.Order

func (m memHistory) ListByUser(context.Context, string) ([]*orderdomain.Order, error) {
	return m, nil
}

func newService(t *testing.T, repo *memInquiries, history memHistory, submitted time.Time) *InquiryService {
	t.Helper()
	rs, err := rule.LoadRuleSet("")
	if err != nil {
		t.Fatalf("LoadRuleSet: %v", err)
	}
	engine, err := rule.NewCELEngine(rs)
	if err != nil {
		t.Fatalf("NewCELEngine: %v", err)
	}
	products := memProducts{"p1": {ID: "p1", Brand: "Hermes"}}
	return NewInquiryService(repo, products, history, engine, kst, noop.NewTracerProvider().Tracer("test"),
		WithClock(func() time.Time { return submitted }),
		WithIDGenerator(func() string { return "inq-1" }),
	)
}

var session = auth.Session{UserID: "u1", Role: auth.RoleCustomer}

func TestSubmitScoresAndPersists(t *testing.T) {
	repo := &memInquiries{}
	history := memHistory{
		{Status: orderdomain.StateDelivered, TotalAmount: 4_000_000},
		{Status: orderdomain.StateDelivered, TotalAmount: 1_000_000},
		{Status: orderdomain.StateCancelled, TotalAmount: 9_000_000},
	}
	// 05:00 UTC 是首尔时间 14:00
	svc := newService(t, repo, history, time.Date(2025, 4, 2, 5, 0, 0, 0, time.UTC))

	view, err := svc.Submit(context.Background(), session, SubmitRequest{
		Category: domain.CategoryPaymentOrder,
		Title:    "refund",
		Content:  "please refund my order",
		SMSOptIn: true,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if view.Score != 9 || view.Priority != domain.PriorityHigh {
		t.Errorf("view = %+v, want score 9 high", view)
	}
	if len(repo.saved) != 1 || repo.saved[0].VIPLevel != 3 || repo.saved[0].Status != domain.StatusOpen {
		t.Errorf("saved = %+v", repo.saved)
	}
}

func TestSubmitUsesProductBrandAndLocalTime(t *testing.T) {
	repo := &memInquiries{}
	// 12:30 UTC 是首尔时间 21:30，属于非营业时间
	svc := newService(t, repo, nil, time.Date(2025, 4, 2, 12, 30, 0, 0, time.UTC))

	view, err := svc.Submit(context.Background(), session, SubmitRequest{
		Category:  domain.CategoryProduct,
		Title:     "color",
		Content:   "what shades are available",
		ProductID: "p1",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	// product 1 + premium brand 2 - off hours 1
	if view.Score != 2 || view.Priority != domain.PriorityMedium {
		t.Errorf("view = %+v, want score 2 medium", view)
	}
	if repo.saved[0].Brand != "Hermes" {
		t.Errorf("brand = %q", repo.saved[0].Brand)
	}
}

func TestSubmitValidation(t *testing.T) {
	repo := &memInquiries{}
	svc := newService(t, repo, nil, time.Date(2025, 4, 2, 5, 0, 0, 0, time.UTC))

	tests := []struct {
		name string
		req  SubmitRequest
	}{
		{"unknown category", SubmitRequest{Category: "billing", Title: "t", Content: "c"}},
		{"blank title", SubmitRequest{Category: domain.CategoryAccount, Title: " ", Content: "c"}},
		{"unknown product", SubmitRequest{Category: domain.CategoryProduct, Title: "t", Content: "c", ProductID: "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), session, tt.req)
			var verr *apperr.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}
	if len(repo.saved) != 0 {
		t.Errorf("invalid inquiries persisted: %d", len(repo.saved))
	}
}
