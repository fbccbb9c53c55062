package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/apperr"
	"storefront/internal/pkg/auth"
	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/metrics"
	"storefront/internal/service/inquiry/domain"
	loyaltydomain "storefront/internal/service/loyalty/domain"
	orderdomain "storefront/internal/service/order/domain"
)

// ProductLookup 查询咨询关联的商品，用于取品牌
type ProductLookup interface {
	FindByID(ctx context.Context, id string) (*orderdomain.Product, error)
}

// OrderHistory 读取用户订单，用于计算 VIP 等级
type OrderHistory interface {
	ListByUser(ctx context.Context, userID string) ([]*orderdomain.Order, error)
}

// SubmitRequest 是提交咨询的请求体
type SubmitRequest struct {
	Category  domain.Category `json:"category"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	ProductID string          `json:"product_id,omitempty"`
	SMSOptIn  bool            `json:"sms_opt_in"`
}

// InquiryView 是返回给客户端的咨询
type InquiryView struct {
	ID        string          `json:"id"`
	Category  domain.Category `json:"category"`
	Title     string          `json:"title"`
	ProductID string          `json:"product_id,omitempty"`
	Priority  domain.Priority `json:"priority"`
	Score     int             `json:"score"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

type InquiryService struct {
	repo     domain.InquiryRepository
	products ProductLookup
	orders   OrderHistory
	engine   domain.RuleEngine
	tracer   trace.Tracer
	loc      *time.Location

	now   func() time.Time
	newID func() string
}

type Option func(*InquiryService)

func WithClock(now func() time.Time) Option {
	return func(s *InquiryService) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *InquiryService) { s.newID = newID }
}

// NewInquiryService 创建服务；loc 是判断营业时间所用的业务时区
func NewInquiryService(repo domain.InquiryRepository, products ProductLookup, orders OrderHistory, engine domain.RuleEngine, loc *time.Location, tracer trace.Tracer, opts ...Option) *InquiryService {
	s := &InquiryService{
		repo:     repo,
		products: products,
		orders:   orders,
		engine:   engine,
		loc:      loc,
		tracer:   tracer,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit 校验、打分并保存一条咨询
func (s *InquiryService) Submit(ctx context.Context, session auth.Session, req SubmitRequest) (*InquiryView, error) {
	ctx, span := s.tracer.Start(ctx, "inquiry.Submit")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", session.UserID), attribute.String("inquiry.category", string(req.Category)))

	verr := &apperr.ValidationError{}
	if !req.Category.Valid() {
		verr.Add("category", "must be one of payment/order, shipping, product, account")
	}
	if strings.TrimSpace(req.Title) == "" {
		verr.Add("title", "required")
	}
	if strings.TrimSpace(req.Content) == "" {
		verr.Add("content", "required")
	}
	if err := verr.OrNil(); err != nil {
		return nil, s.fail(ctx, span, err)
	}

	inquiry := &domain.Inquiry{
		ID:        s.newID(),
		UserID:    session.UserID,
		Category:  req.Category,
		Title:     req.Title,
		Content:   req.Content,
		ProductID: req.ProductID,
		SMSOptIn:  req.SMSOptIn,
		Status:    domain.StatusOpen,
		CreatedAt: s.now(),
	}

	if req.ProductID != "" {
		product, err := s.products.FindByID(ctx, req.ProductID)
		if errors.Is(err, orderdomain.ErrProductNotFound) {
			verr.Add("product_id", "unknown product")
			return nil, s.fail(ctx, span, verr)
		}
		if err != nil {
			return nil, s.fail(ctx, span, err)
		}
		inquiry.Brand = product.Brand
	}

	orders, err := s.orders.ListByUser(ctx, session.UserID)
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}
	inquiry.VIPLevel = domain.VIPLevel(loyaltydomain.SumDelivered(orders))

	if err := inquiry.Triage(s.engine, inquiry.CreatedAt.In(s.loc)); err != nil {
		return nil, s.fail(ctx, span, err)
	}
	if err := s.repo.Create(ctx, inquiry); err != nil {
		return nil, s.fail(ctx, span, err)
	}

	metrics.InquiriesTriaged.WithLabelValues(string(inquiry.Priority)).Inc()
	span.SetAttributes(attribute.Int("inquiry.score", inquiry.Score), attribute.String("inquiry.priority", string(inquiry.Priority)))
	logger.Ctx(ctx).Info().
		Str("inquiry_id", inquiry.ID).
		Int("score", inquiry.Score).
		Str("priority", string(inquiry.Priority)).
		Strs("rules", inquiry.MatchedRules).
		Msg("inquiry triaged")

	return &InquiryView{
		ID:        inquiry.ID,
		Category:  inquiry.Category,
		Title:     inquiry.Title,
		ProductID: inquiry.ProductID,
		Priority:  inquiry.Priority,
		Score:     inquiry.Score,
		Status:    inquiry.Status,
		CreatedAt: inquiry.CreatedAt,
	}, nil
}

func (s *InquiryService) fail(ctx context.Context, span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if apperr.IsStore(err) {
		logger.Ctx(ctx).Error().Err(errors.Unwrap(err)).Msg("inquiry store operation failed")
	}
	return err
}
